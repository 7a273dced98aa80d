package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wakahia/baraza/core/chat"
)

type messageRepository struct {
	db *messageTable
	// pub mirrors the Postgres insert trigger: every committed row is
	// published to the push surface. May be nil in pure-storage tests.
	pub chat.Publisher
}

var _ chat.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB, pub chat.Publisher) *messageRepository {
	return &messageRepository{db: db.message, pub: pub}
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	repo.db.Lock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	stored := msg
	repo.db.table = append(repo.db.table, &stored)
	repo.db.Unlock()

	if repo.pub != nil {
		repo.pub.Publish(stored)
	}
	return stored, nil
}

func (repo *messageRepository) QueryPairMessages(_ context.Context, a, b string) ([]chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]chat.Message, 0)
	for _, msg := range repo.db.table {
		if msg.Belongs(a, b) {
			msgs = append(msgs, *msg)
		}
	}
	chat.SortThread(msgs)
	return msgs, nil
}

func (repo *messageRepository) QueryCounterpartIDs(_ context.Context, userID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	// union of distinct receivers of sent and senders of received, keeping
	// the most recent message timestamp per counterpart
	lastAt := make(map[string]time.Time)
	for _, msg := range repo.db.table {
		var counterpart string
		switch userID {
		case msg.SenderID:
			counterpart = msg.ReceiverID
		case msg.ReceiverID:
			counterpart = msg.SenderID
		default:
			continue
		}
		if msg.CreatedAt.After(lastAt[counterpart]) {
			lastAt[counterpart] = msg.CreatedAt
		}
	}

	ids := make([]string, 0, len(lastAt))
	for id := range lastAt {
		ids = append(ids, id)
	}
	// most-recent-message-first
	sort.Slice(ids, func(i, j int) bool { return lastAt[ids[i]].After(lastAt[ids[j]]) })
	return ids, nil
}
