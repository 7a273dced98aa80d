package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wakahia/baraza/core/chat"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func contents(msgs []chat.Message) []string {
	cs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		cs = append(cs, m.Content)
	}
	return cs
}

func TestSession_OpenLoadsHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")
	createMessage(t, f, me.ID, alice.ID, "first", at)
	createMessage(t, f, alice.ID, me.ID, "second", at.Add(time.Minute))

	sess := f.svc.NewSession(me.ID)
	defer sess.Close()
	if err := sess.Open(ctx, alice); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	// history load followed by zero live events reproduces the persisted set
	assert.Equal(t, []string{"first", "second"}, contents(sess.Thread()))
}

func TestSession_LiveAppend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")

	sess := f.svc.NewSession(me.ID)
	defer sess.Close()
	if err := sess.Open(ctx, alice); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	// inbound from the counterpart
	createMessage(t, f, alice.ID, me.ID, "hi", time.Now())

	assert.Eventually(t, func() bool { return len(sess.Thread()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"hi"}, contents(sess.Thread()))

	ev := <-sess.Live()
	assert.Equal(t, "hi", ev.Message.Content)
	assert.Equal(t, alice.ID, ev.Message.SenderID)
	assert.True(t, ev.ScrollToLatest)
}

func TestSession_SendDeliveredViaSubscription(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")

	sess := f.svc.NewSession(me.ID)
	defer sess.Close()
	if err := sess.Open(ctx, alice); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	msg, err := sess.Send(ctx, "  hello  ")
	if err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	assert.Equal(t, "hello", msg.Content)

	// no optimistic append: the write comes back through the subscription,
	// exactly once
	assert.Eventually(t, func() bool { return len(sess.Thread()) == 1 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"hello"}, contents(sess.Thread()))
}

func TestSession_SendNoOps(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")

	sess := f.svc.NewSession(me.ID)

	t.Run("no open session", func(t *testing.T) {
		_, err := sess.Send(ctx, "hi")
		assert.Equal(t, chat.ErrNoSession, err)
	})

	if err := sess.Open(ctx, alice); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer sess.Close()

	t.Run("empty and whitespace-only content", func(t *testing.T) {
		for _, content := range []string{"", "   "} {
			_, err := sess.Send(ctx, content)
			assert.Equal(t, chat.ErrEmptyContent, err)
		}

		// no row written, no event observed
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, sess.Thread())
		history, err := f.svc.PairHistory(ctx, me.ID, alice.ID)
		if err != nil {
			t.Fatalf("PairHistory() failed: %v", err)
		}
		assert.Empty(t, history)
	})
}

func TestSession_PairScoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")
	bob := createProfile(t, f, "Bob Mwangi", "bobm")

	sess := f.svc.NewSession(me.ID)
	defer sess.Close()
	if err := sess.Open(ctx, alice); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	// events outside the pair are ignored, even ones involving me
	createMessage(t, f, bob.ID, me.ID, "from bob", time.Now())
	createMessage(t, f, me.ID, bob.ID, "to bob", time.Now())
	createMessage(t, f, alice.ID, bob.ID, "not mine at all", time.Now())
	createMessage(t, f, alice.ID, me.ID, "from alice", time.Now())

	assert.Eventually(t, func() bool { return len(sess.Thread()) == 1 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"from alice"}, contents(sess.Thread()))
}

func TestSession_SwitchCounterpart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")
	bob := createProfile(t, f, "Bob Mwangi", "bobm")

	sess := f.svc.NewSession(me.ID)
	defer sess.Close()

	if err := sess.Open(ctx, alice); err != nil {
		t.Fatalf("Open(alice) failed: %v", err)
	}
	assert.Equal(t, 1, f.hub.Len())

	// switching must release the old subscription before claiming the new one
	if err := sess.Open(ctx, bob); err != nil {
		t.Fatalf("Open(bob) failed: %v", err)
	}
	assert.Equal(t, 1, f.hub.Len(), "exactly one live subscription after switching")

	// an X-pair-only event must not reach Y's thread
	createMessage(t, f, alice.ID, me.ID, "stale alice msg", time.Now())
	createMessage(t, f, bob.ID, me.ID, "hi from bob", time.Now())

	assert.Eventually(t, func() bool { return len(sess.Thread()) == 1 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"hi from bob"}, contents(sess.Thread()))

	cp, open := sess.Counterpart()
	assert.True(t, open)
	assert.Equal(t, bob.ID, cp.ID)
}

func TestSession_CloseIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")
	alice := createProfile(t, f, "Alice Wairimu", "alice")

	sess := f.svc.NewSession(me.ID)

	// safe with no subscription at all
	sess.Close()
	sess.Close()

	if err := sess.Open(ctx, alice); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	assert.Equal(t, 1, f.hub.Len())

	sess.Close()
	sess.Close()
	assert.Zero(t, f.hub.Len())
	assert.Empty(t, sess.Thread())
}

func TestSession_SelfMessageDeliveredOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	me := createProfile(t, f, "Me Myself", "myself")

	sess := f.svc.NewSession(me.ID)
	defer sess.Close()
	if err := sess.Open(ctx, me); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	// matches both direction predicates; must append exactly once
	createMessage(t, f, me.ID, me.ID, "note to self", time.Now())

	assert.Eventually(t, func() bool { return len(sess.Thread()) >= 1 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"note to self"}, contents(sess.Thread()))
}

func TestSessions_Converge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := createProfile(t, f, "Abe Kimani", "abe")
	b := createProfile(t, f, "Bea Njeri", "bea")

	sessA := f.svc.NewSession(a.ID)
	sessB := f.svc.NewSession(b.ID)
	defer sessA.Close()
	defer sessB.Close()

	if err := sessA.Open(ctx, b); err != nil {
		t.Fatalf("Open(a) failed: %v", err)
	}
	if err := sessB.Open(ctx, a); err != nil {
		t.Fatalf("Open(b) failed: %v", err)
	}

	if _, err := sessA.Send(ctx, "hi bea"); err != nil {
		t.Fatalf("Send(a) failed: %v", err)
	}
	if _, err := sessB.Send(ctx, "hi abe"); err != nil {
		t.Fatalf("Send(b) failed: %v", err)
	}
	if _, err := sessA.Send(ctx, "how are you?"); err != nil {
		t.Fatalf("Send(a) failed: %v", err)
	}

	// once both received all live events, both threads converge to the same
	// ordered sequence
	assert.Eventually(t, func() bool {
		return len(sessA.Thread()) == 3 && len(sessB.Thread()) == 3
	}, waitFor, tick)
	assert.Equal(t, contents(sessA.Thread()), contents(sessB.Thread()))
}
