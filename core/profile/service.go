package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wakahia/baraza/core"
)

var (
	// errors
	ErrNotFound     = errors.New("profile not found")
	ErrHandleExists = errors.New("a profile with this handle already exists")
)

type (
	Repository interface {
		CheckHandleUniqueness(ctx context.Context, handle string) error
		CreateProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfileByID(ctx context.Context, id string) (Profile, error)
		// GetProfilesByID resolves a batch of ids in one lookup. Unknown ids
		// are skipped, not errors.
		GetProfilesByID(ctx context.Context, ids []string) ([]Profile, error)
		GetProfileByHandle(ctx context.Context, handle string) (Profile, error)
		// SearchProfiles does a case-insensitive substring match on one of
		// Profile.Name or Profile.Handle, excluding excludeID.
		SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]Profile, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
		log  core.Logger
	}
)

func NewService(repo Repository, conf *core.Config, log core.Logger) *Service {
	return &Service{repo: repo, conf: conf, log: log}
}

func (svc *Service) checkHandleUniqueness(handle string) error {
	if err := svc.repo.CheckHandleUniqueness(context.Background(), handle); err != nil {
		if err == ErrHandleExists {
			return core.NewValidationError(err, core.FieldError{Field: "handle", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, np NewProfile) (Profile, error) {
	prof := Profile{
		ID:        uuid.New().String(),
		Name:      np.Name,
		Handle:    strings.TrimPrefix(np.Handle, "@"),
		Role:      np.Role,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateProfile(ctx, prof)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfileByID(ctx, id)
}

func (svc *Service) GetByIDs(ctx context.Context, ids []string) ([]Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetProfilesByID(ctx, ids)
}

func (svc *Service) GetByHandle(ctx context.Context, handle string) (Profile, error) {
	return svc.repo.GetProfileByHandle(ctx, core.CleanString(strings.TrimPrefix(handle, "@"), true /* lower */))
}

// Search matches profiles against `query` as the user types.
//
// Queries shorter than the configured minimum length return no results
// (debounce-by-length, not a timer). A leading "@" sentinel is stripped so a
// handle-style query still matches. The searching user is always excluded.
// Read failures degrade to an empty result set and are logged.
func (svc *Service) Search(ctx context.Context, query, excludeID string) []Profile {
	query = core.CleanString(query)
	if len(query) < svc.conf.Chat.SearchMinLength {
		return nil
	}
	query = strings.TrimPrefix(query, "@")

	profs, err := svc.repo.SearchProfiles(ctx, query, excludeID, svc.conf.Chat.SearchLimit)
	if err != nil {
		svc.log.Error("searching profiles", err)
		return nil
	}
	return profs
}
