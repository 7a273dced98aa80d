package chat

import (
	"context"
	"sync"

	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/profile"
)

// Event is what a session forwards to its consumer for every live message
// appended to the open thread.
type Event struct {
	Message Message `json:"message"`
	// ScrollToLatest asks the view to jump to the newest message.
	ScrollToLatest bool `json:"scroll_to_latest"`
}

// Session is the active 1:1 thread: history plus at most one live
// subscription. The subscription is owned exclusively by the session and is
// released before a new one is claimed, so switching counterparts can never
// leak a subscription or double-deliver events.
//
// Incoming events are filtered to the exact pair and appended in receipt
// order; sorting only applies to the initial history load. A generation
// token guards against a slow history fetch resolving after a newer open.
type Session struct {
	svc    *Service
	userID string

	mu          sync.Mutex
	gen         uint64
	open        bool
	counterpart profile.Profile
	thread      []Message
	sub         Subscription
	live        chan Event
	done        chan struct{}
}

// Open closes any previously open session, loads the full history with the
// counterpart and establishes the live subscription. A failed history read
// degrades to an empty thread (logged); a failed subscribe is returned since
// the session would otherwise silently miss messages.
func (s *Session) Open(ctx context.Context, counterpart profile.Profile) error {
	s.Close()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	history, err := s.svc.PairHistory(ctx, s.userID, counterpart.ID)
	if err != nil {
		s.svc.log.Error("loading conversation history", err)
		history = nil
	}

	sub, err := s.svc.broker.Subscribe(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.gen {
		// superseded by a newer Open or Close while we were loading
		s.mu.Unlock()
		return sub.Close()
	}
	s.open = true
	s.counterpart = counterpart
	s.thread = history
	s.sub = sub
	s.live = make(chan Event, s.svc.conf.Chat.EventBuffer)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.pump(gen, counterpart.ID, sub, s.live, s.done)
	return nil
}

// pump appends matching live events to the thread in receipt order and
// forwards them to the live channel.
func (s *Session) pump(gen uint64, counterpartID string, sub Subscription, live chan<- Event, done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			if !msg.Belongs(s.userID, counterpartID) {
				continue
			}

			s.mu.Lock()
			if gen != s.gen {
				s.mu.Unlock()
				return
			}
			s.thread = append(s.thread, msg)
			s.mu.Unlock()

			select {
			case live <- Event{Message: msg, ScrollToLatest: true}:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// Send writes a message to the open counterpart. It is a no-op returning
// ErrEmptyContent when the content is empty or whitespace-only, and
// ErrNoSession when no conversation is open. The sent message is not locally
// appended; the live subscription delivers it back so the thread has a
// single source of truth.
func (s *Session) Send(ctx context.Context, content string) (Message, error) {
	s.mu.Lock()
	open, counterpartID := s.open, s.counterpart.ID
	s.mu.Unlock()

	if !open {
		return Message{}, ErrNoSession
	}
	content = core.CleanString(content)
	if content == "" {
		return Message{}, ErrEmptyContent
	}
	return s.svc.Send(ctx, s.userID, NewMessage{ReceiverID: counterpartID, Content: content})
}

// Counterpart returns the profile of the open thread's other participant.
func (s *Session) Counterpart() (profile.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart, s.open
}

// Thread returns a snapshot of the current ordered thread.
func (s *Session) Thread() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Message, len(s.thread))
	copy(snapshot, s.thread)
	return snapshot
}

// Live returns the channel of events appended since Open. It is nil when no
// session is open.
func (s *Session) Live() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Close tears down the live subscription. It is idempotent and safe to call
// when no subscription exists.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	s.open = false
	s.gen++
	sub, done := s.sub, s.done
	s.sub = nil
	s.live = nil
	s.done = nil
	s.thread = nil
	s.counterpart = profile.Profile{}
	s.mu.Unlock()

	close(done)
	if sub != nil {
		_ = sub.Close()
	}
}
