package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/wakahia/baraza/core/chat"
)

type messageRow struct {
	ID         string    `db:"id"`
	SenderID   string    `db:"sender_id"`
	ReceiverID string    `db:"receiver_id"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r messageRow) toMessage() chat.Message {
	return chat.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
	}
}

type messageRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	// created_at is assigned by the store at write time
	var row messageRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO messages (id, sender_id, receiver_id, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, sender_id, receiver_id, content, created_at`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) QueryPairMessages(ctx context.Context, a, b string) ([]chat.Message, error) {
	var rows []messageRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, sender_id, receiver_id, content, created_at
		 FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2)
		    OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at ASC, id ASC`, a, b)
	if err != nil {
		return nil, errors.Wrap(err, "querying pair messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toMessage())
	}
	return msgs, nil
}

func (repo *messageRepository) QueryCounterpartIDs(ctx context.Context, userID string) ([]string, error) {
	// union of receivers of sent and senders of received, deduplicated,
	// most-recent-message-first
	var ids []string
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT counterpart_id FROM (
		     SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS counterpart_id,
		            max(created_at) AS last_at
		     FROM messages
		     WHERE sender_id = $1 OR receiver_id = $1
		     GROUP BY 1
		 ) t
		 WHERE counterpart_id <> $1
		 ORDER BY last_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying counterpart ids")
	}
	return ids, nil
}
