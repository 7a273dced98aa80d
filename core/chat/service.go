package chat

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/profile"
)

var (
	// errors
	ErrNoSession    = errors.New("no open conversation")
	ErrEmptyContent = errors.New("message content is empty")
)

type (
	Repository interface {
		// CreateMessage persists a message, assigning ID and CreatedAt when
		// they are unset.
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryPairMessages returns the full history between a and b in
		// thread order (CreatedAt ascending, ties by ID ascending).
		QueryPairMessages(ctx context.Context, a, b string) ([]Message, error)
		// QueryCounterpartIDs returns the distinct ids of everyone userID has
		// exchanged messages with, most-recent-message-first.
		QueryCounterpartIDs(ctx context.Context, userID string) ([]string, error)
	}

	// Subscription is the receiving end of the push surface. Events delivers
	// message-insert events in backend commit order; Close is idempotent and
	// releases server-side resources.
	Subscription interface {
		Events() <-chan Message
		Close() error
	}

	// Broker is the push surface: Subscribe yields insert events for every
	// message where userID is sender OR receiver, exactly once per event.
	Broker interface {
		Subscribe(ctx context.Context, userID string) (Subscription, error)
	}

	// Publisher is the sending end of the push surface. Storage backends
	// without their own notification channel (the in-memory one) publish
	// through it on insert; Postgres notifies via trigger instead.
	Publisher interface {
		Publish(msg Message)
	}

	Service struct {
		repo     Repository
		profiles *profile.Service
		broker   Broker
		conf     *core.Config
		log      core.Logger
	}
)

func NewService(repo Repository, profiles *profile.Service, broker Broker, conf *core.Config, log core.Logger) *Service {
	return &Service{repo: repo, profiles: profiles, broker: broker, conf: conf, log: log}
}

func (svc *Service) Profiles() *profile.Service { return svc.profiles }

// ListCounterparts derives the conversation directory: every profile the
// user has exchanged messages with, most-recent-message-first. The user is
// never their own counterpart, even when self-directed rows exist. Read
// failures degrade to an empty directory and are logged; the panel must
// never crash its host.
func (svc *Service) ListCounterparts(ctx context.Context, userID string) []profile.Profile {
	ids, err := svc.repo.QueryCounterpartIDs(ctx, userID)
	if err != nil {
		svc.log.Error("listing counterparts", err)
		return nil
	}

	filtered := ids[:0]
	for _, id := range ids {
		if id != userID {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		// avoid a malformed "fetch zero ids" lookup
		return nil
	}

	profs, err := svc.profiles.GetByIDs(ctx, filtered)
	if err != nil {
		svc.log.Error("resolving counterpart profiles", err)
		return nil
	}

	// restore most-recent-message-first ordering; the batch lookup does not
	// guarantee it
	byID := make(map[string]profile.Profile, len(profs))
	for _, p := range profs {
		byID[p.ID] = p
	}
	ordered := make([]profile.Profile, 0, len(profs))
	for _, id := range filtered {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// Send validates and writes a new message row. Write failures propagate to
// the caller so they can be surfaced; the caller's input is not cleared and
// can be retried. The stored message is delivered back through the live
// subscription, not appended locally.
func (svc *Service) Send(ctx context.Context, senderID string, nm NewMessage) (Message, error) {
	if err := nm.Validate(); err != nil {
		return Message{}, err
	}
	msg := Message{
		SenderID:   senderID,
		ReceiverID: nm.ReceiverID,
		Content:    nm.Content,
	}
	stored, err := svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, pkgerrors.Wrap(err, "inserting message")
	}
	return stored, nil
}

// PairHistory loads the full message history between the user and a
// counterpart in thread order.
func (svc *Service) PairHistory(ctx context.Context, userID, counterpartID string) ([]Message, error) {
	msgs, err := svc.repo.QueryPairMessages(ctx, userID, counterpartID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying pair history")
	}
	SortThread(msgs)
	return msgs, nil
}

// NewSession builds an unopened conversation session bound to the user.
func (svc *Service) NewSession(userID string) *Session {
	return &Session{svc: svc, userID: userID}
}

// NewPanel builds a messaging panel for the user, starting closed.
func (svc *Service) NewPanel(userID string) *Panel {
	return &Panel{svc: svc, userID: userID, session: svc.NewSession(userID)}
}
