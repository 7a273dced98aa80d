package realtime

import (
	"context"
	"sync"

	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/chat"
)

// Hub is the in-process push surface: message-insert events fan out to every
// subscriber whose user is the sender or the receiver. Delivery is exactly
// once per subscriber even when both direction predicates match (a
// self-directed message). Slow consumers never block publishers; overflowing
// events are dropped and logged.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	buffer int
	log    core.Logger
}

var (
	_ chat.Broker    = (*Hub)(nil)
	_ chat.Publisher = (*Hub)(nil)
)

func NewHub(buffer int, log core.Logger) *Hub {
	return &Hub{
		subs:   make(map[*subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers for insert events where userID is sender or receiver.
func (h *Hub) Subscribe(_ context.Context, userID string) (chat.Subscription, error) {
	sub := &subscription{
		hub:    h,
		userID: userID,
		events: make(chan chat.Message, h.buffer),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub, nil
}

// Publish delivers the event to every matching subscriber in commit order.
func (h *Hub) Publish(msg chat.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if msg.SenderID != sub.userID && msg.ReceiverID != sub.userID {
			continue
		}
		select {
		case sub.events <- msg:
		default:
			h.log.Warn("dropping event for slow subscriber", msg.ID, sub.userID)
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

type subscription struct {
	hub    *Hub
	userID string
	events chan chat.Message
	once   sync.Once
}

func (s *subscription) Events() <-chan chat.Message { return s.events }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.events)
	})
	return nil
}
