package chat

import (
	"sort"
	"time"

	"github.com/wakahia/baraza/core"
)

// Message is a single directed communication. Messages are immutable once
// created; there is no edit or delete. The store assigns ID and CreatedAt
// at write time.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// Less orders messages by CreatedAt ascending, ties broken by ID ascending
// so the order stays deterministic when timestamps collide.
func (m Message) Less(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// Belongs reports whether the message is part of the 1:1 thread between
// userID and counterpartID, in either direction. This includes the user's
// own writes from another device or tab.
func (m Message) Belongs(userID, counterpartID string) bool {
	return (m.SenderID == userID && m.ReceiverID == counterpartID) ||
		(m.SenderID == counterpartID && m.ReceiverID == userID)
}

// SortThread sorts a message history in place into thread order. It only
// applies to history loads; live events are appended in receipt order.
func SortThread(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Less(msgs[j]) })
}

// NewMessage contains information needed to send a Message.
type NewMessage struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

func (nm *NewMessage) Validate() error {
	nm.ReceiverID = core.CleanString(nm.ReceiverID)
	nm.Content = core.CleanString(nm.Content)
	return core.Validate.Struct(nm)
}
