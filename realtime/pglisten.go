package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/chat"
)

// NotifyChannel is the Postgres NOTIFY channel fed by the messages insert
// trigger (see migrations).
const NotifyChannel = "baraza_messages"

const (
	minReconnectInterval = 200 * time.Millisecond
	maxReconnectInterval = 30 * time.Second
	pingInterval         = 90 * time.Second
)

// PGBroker implements the push surface over Postgres LISTEN/NOTIFY: the
// insert trigger on the messages table notifies each committed row as JSON,
// and the broker fans it out through an embedded Hub. pq.Listener
// re-establishes the connection with bounded backoff after a drop, so
// subscribers survive transient disconnects.
type PGBroker struct {
	hub      *Hub
	listener *pq.Listener
	log      core.Logger
	done     chan struct{}
	closed   sync.Once
}

var _ chat.Broker = (*PGBroker)(nil)

func NewPGBroker(conninfo string, buffer int, log core.Logger) (*PGBroker, error) {
	b := &PGBroker{
		hub:  NewHub(buffer, log),
		log:  log,
		done: make(chan struct{}),
	}
	b.listener = pq.NewListener(conninfo, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Warn("realtime listener event", ev, err)
			}
		})
	if err := b.listener.Listen(NotifyChannel); err != nil {
		_ = b.listener.Close()
		return nil, errors.Wrapf(err, "listening on %s", NotifyChannel)
	}

	go b.loop()
	return b, nil
}

func (b *PGBroker) Subscribe(ctx context.Context, userID string) (chat.Subscription, error) {
	return b.hub.Subscribe(ctx, userID)
}

func (b *PGBroker) loop() {
	for {
		select {
		case n := <-b.listener.Notify:
			if n == nil {
				// connection re-established; pq resumes LISTEN on its own
				continue
			}
			var msg chat.Message
			if err := json.Unmarshal([]byte(n.Extra), &msg); err != nil {
				b.log.Error("decoding message notification", err)
				continue
			}
			b.hub.Publish(msg)
		case <-time.After(pingInterval):
			go func() {
				if err := b.listener.Ping(); err != nil {
					b.log.Warn("pinging realtime listener", err)
				}
			}()
		case <-b.done:
			return
		}
	}
}

// Close stops the listener. Safe to call more than once.
func (b *PGBroker) Close() error {
	b.closed.Do(func() { close(b.done) })
	return b.listener.Close()
}
