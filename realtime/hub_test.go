package realtime_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wakahia/baraza/core/chat"
	"github.com/wakahia/baraza/realtime"
	"github.com/wakahia/baraza/services/logger"
)

func newHub() *realtime.Hub {
	return realtime.NewHub(4, logsvc.NewConsoleLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)))
}

func drain(sub chat.Subscription) []chat.Message {
	var msgs []chat.Message
	for {
		select {
		case m := <-sub.Events():
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestHub_FanOut(t *testing.T) {
	hub := newHub()
	ctx := context.Background()

	subA, err := hub.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("Subscribe(a) failed: %v", err)
	}
	subB, err := hub.Subscribe(ctx, "b")
	if err != nil {
		t.Fatalf("Subscribe(b) failed: %v", err)
	}
	subC, err := hub.Subscribe(ctx, "c")
	if err != nil {
		t.Fatalf("Subscribe(c) failed: %v", err)
	}
	assert.Equal(t, 3, hub.Len())

	msg := chat.Message{ID: "m1", SenderID: "a", ReceiverID: "b", Content: "hi"}
	hub.Publish(msg)

	assert.Equal(t, []chat.Message{msg}, drain(subA), "sender matches")
	assert.Equal(t, []chat.Message{msg}, drain(subB), "receiver matches")
	assert.Empty(t, drain(subC), "bystanders see nothing")
}

func TestHub_SelfMessageDeliveredOnce(t *testing.T) {
	hub := newHub()

	sub, err := hub.Subscribe(context.Background(), "a")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	// both predicates match; still one delivery
	hub.Publish(chat.Message{ID: "m1", SenderID: "a", ReceiverID: "a"})
	assert.Len(t, drain(sub), 1)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := newHub()

	sub, err := hub.Subscribe(context.Background(), "a")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	// overflow the buffer without reading; Publish must not block
	for i := 0; i < 10; i++ {
		hub.Publish(chat.Message{ID: "m", SenderID: "a", ReceiverID: "b"})
	}
	assert.Len(t, drain(sub), 4)
}

func TestHub_SubscriptionClose(t *testing.T) {
	hub := newHub()

	sub, err := hub.Subscribe(context.Background(), "a")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	assert.Equal(t, 1, hub.Len())

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close(), "closing twice is safe")
	assert.Zero(t, hub.Len())

	// a closed subscription gets nothing new
	hub.Publish(chat.Message{ID: "m1", SenderID: "a", ReceiverID: "b"})
	_, open := <-sub.Events()
	assert.False(t, open)
}
