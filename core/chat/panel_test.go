package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wakahia/baraza/core/chat"
	"github.com/wakahia/baraza/core/profile"
	"github.com/wakahia/baraza/storage/database/dummy"
)

func TestPanel_Transitions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")
	createMessage(t, f, alice.ID, me.ID, "hey", time.Now())

	panel := f.svc.NewPanel(me.ID)
	assert.Equal(t, chat.PanelClosed, panel.State())

	dir := panel.Open(ctx)
	assert.Equal(t, chat.PanelDirectory, panel.State())
	assert.Equal(t, []string{alice.ID}, profileIDs(dir))

	if err := panel.Select(ctx, alice); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	assert.Equal(t, chat.PanelConversation, panel.State())
	assert.Equal(t, 1, f.hub.Len())

	dir = panel.Back(ctx)
	assert.Equal(t, chat.PanelDirectory, panel.State())
	assert.Equal(t, []string{alice.ID}, profileIDs(dir))
	assert.Zero(t, f.hub.Len(), "leaving the conversation releases the subscription")

	panel.Shut()
	assert.Equal(t, chat.PanelClosed, panel.State())
	assert.Empty(t, panel.Directory())
}

func TestPanel_SelectSwitchesThreads(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")
	bob := createProfile(t, f, "Bob Mwangi", "bobm")

	panel := f.svc.NewPanel(me.ID)
	panel.Open(ctx)

	if err := panel.Select(ctx, alice); err != nil {
		t.Fatalf("Select(alice) failed: %v", err)
	}
	if err := panel.Select(ctx, bob); err != nil {
		t.Fatalf("Select(bob) failed: %v", err)
	}

	assert.Equal(t, chat.PanelConversation, panel.State())
	assert.Equal(t, 1, f.hub.Len())
	cp, open := panel.Session().Counterpart()
	assert.True(t, open)
	assert.Equal(t, bob.ID, cp.ID)
}

func TestPanel_SelectWhileClosed(t *testing.T) {
	f := setup(t)
	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")

	panel := f.svc.NewPanel(me.ID)
	err := panel.Select(context.Background(), alice)
	assert.Equal(t, chat.ErrNoSession, err)
	assert.Equal(t, chat.PanelClosed, panel.State())
	assert.Zero(t, f.hub.Len())
}

func TestPanel_ShutIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")

	panel := f.svc.NewPanel(me.ID)

	// from closed, repeatedly
	panel.Shut()
	panel.Shut()
	assert.Equal(t, chat.PanelClosed, panel.State())

	// from a live conversation
	panel.Open(ctx)
	if err := panel.Select(ctx, alice); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	panel.Shut()
	panel.Shut()
	assert.Equal(t, chat.PanelClosed, panel.State())
	assert.Zero(t, f.hub.Len())
}

func TestPanel_BackOutsideConversation(t *testing.T) {
	f := setup(t)
	me := createProfile(t, f, "Me Myself", "myself")

	panel := f.svc.NewPanel(me.ID)
	assert.Empty(t, panel.Back(context.Background()))
	assert.Equal(t, chat.PanelClosed, panel.State())
}

func TestPanel_Search(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")
	createProfile(t, f, "Bob Mwangi", "bobm")

	panel := f.svc.NewPanel(me.ID)
	panel.Open(ctx)

	assert.Empty(t, panel.Search(ctx, "al"), "below the length threshold")
	assert.Equal(t, []string{alice.ID}, profileIDs(panel.Search(ctx, "ali")))

	// selecting a result clears it
	if err := panel.Select(ctx, alice); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	assert.Equal(t, chat.PanelConversation, panel.State())
}

// gatedProfileRepo holds every search until the test releases its query,
// letting tests resolve concurrent searches out of order.
type gatedProfileRepo struct {
	profile.Repository

	mu    sync.Mutex
	gates map[string]chan struct{}
}

func (r *gatedProfileRepo) gate(query string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gates == nil {
		r.gates = make(map[string]chan struct{})
	}
	g, ok := r.gates[query]
	if !ok {
		g = make(chan struct{})
		r.gates[query] = g
	}
	return g
}

func (r *gatedProfileRepo) release(query string) { close(r.gate(query)) }

func (r *gatedProfileRepo) SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]profile.Profile, error) {
	<-r.gate(query)
	return r.Repository.SearchProfiles(ctx, query, excludeID, limit)
}

func TestPanel_SearchLastQueryWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")
	createProfile(t, f, "Alison Wambui", "alison")

	gated := &gatedProfileRepo{Repository: dummydb.NewProfileRepository(f.db)}
	profSvc := profile.NewService(gated, testConfig(), testLogger())
	svc := chat.NewService(f.msgRepo, profSvc, f.hub, testConfig(), testLogger())
	panel := svc.NewPanel(me.ID)
	panel.Open(ctx)

	results := make(chan []profile.Profile, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		results <- panel.Search(ctx, "alis")
	}()
	// the second keystroke narrows the query; make sure it is sequenced
	// after the first before releasing anything
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		results <- panel.Search(ctx, "alice")
	}()
	time.Sleep(20 * time.Millisecond)

	// resolve out of order: the newer query first, then the stale one
	gated.release("alice")
	time.Sleep(20 * time.Millisecond)
	gated.release("alis")
	wg.Wait()
	close(results)

	// both callers observe the newest results; the stale resolution is
	// discarded
	for res := range results {
		assert.Equal(t, []string{alice.ID}, profileIDs(res))
	}
}
