package chat

import (
	"context"
	"sync"

	"github.com/wakahia/baraza/core/profile"
)

// PanelState is the messaging panel's view state.
type PanelState int

const (
	PanelClosed PanelState = iota
	PanelDirectory
	PanelConversation
)

func (s PanelState) String() string {
	switch s {
	case PanelClosed:
		return "closed"
	case PanelDirectory:
		return "directory"
	case PanelConversation:
		return "conversation"
	}
	return "unknown"
}

// Panel coordinates which of {closed, directory, conversation} is shown and
// wires directory and search results into opening a conversation session.
// It is user-driven: the initial state is closed and there is no terminal
// state. Every failure is contained within the panel; none may crash or
// block the host.
type Panel struct {
	svc    *Service
	userID string

	mu        sync.Mutex
	state     PanelState
	directory []profile.Profile
	results   []profile.Profile
	resultSeq uint64

	searchSeq uint64 // bumped per Search call; last query wins
	session   *Session
}

// State returns the current view state.
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Session exposes the panel's conversation session.
func (p *Panel) Session() *Session { return p.session }

// Open shows the panel: closed -> directory, loading the counterpart list.
// Opening an already-open panel just refreshes the directory.
func (p *Panel) Open(ctx context.Context) []profile.Profile {
	p.mu.Lock()
	if p.state == PanelConversation {
		p.mu.Unlock()
		return p.Directory()
	}
	p.state = PanelDirectory
	p.mu.Unlock()

	dir := p.svc.ListCounterparts(ctx, p.userID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PanelDirectory {
		return nil // closed while loading
	}
	p.directory = dir
	return dir
}

// Directory returns the last loaded counterpart list.
func (p *Panel) Directory() []profile.Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.directory
}

// Search re-executes on every keystroke once the length threshold is met.
// Superseded queries lose: if a newer query resolved first, a stale result
// is discarded and the newest results are returned instead.
func (p *Panel) Search(ctx context.Context, query string) []profile.Profile {
	p.mu.Lock()
	p.searchSeq++
	seq := p.searchSeq
	p.mu.Unlock()

	res := p.svc.profiles.Search(ctx, query, p.userID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq > p.resultSeq {
		p.resultSeq = seq
		p.results = res
	}
	return p.results
}

// Select opens a conversation with the chosen directory entry or search
// result: directory -> conversation. Selecting while a conversation is
// already open switches threads; the session releases the old subscription
// before claiming the new one.
func (p *Panel) Select(ctx context.Context, counterpart profile.Profile) error {
	p.mu.Lock()
	if p.state == PanelClosed {
		p.mu.Unlock()
		return ErrNoSession
	}
	p.mu.Unlock()

	if err := p.session.Open(ctx, counterpart); err != nil {
		return err
	}

	p.mu.Lock()
	p.state = PanelConversation
	p.results = nil
	p.mu.Unlock()
	return nil
}

// Back returns from the conversation to the directory, closing the session
// and reloading the counterpart list.
func (p *Panel) Back(ctx context.Context) []profile.Profile {
	p.mu.Lock()
	if p.state != PanelConversation {
		p.mu.Unlock()
		return p.Directory()
	}
	p.state = PanelDirectory
	p.mu.Unlock()

	p.session.Close()
	return p.Open(ctx)
}

// Shut hides the panel from any state, closing the session if one is
// active. Safe to call repeatedly.
func (p *Panel) Shut() {
	p.mu.Lock()
	p.state = PanelClosed
	p.directory = nil
	p.results = nil
	p.mu.Unlock()

	p.session.Close()
}
