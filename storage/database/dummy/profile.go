package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wakahia/baraza/core/profile"
)

type profileRepository struct {
	db *profileTable
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) query() []profile.Profile {
	profs := make([]profile.Profile, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		profs = append(profs, *p)
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].Name < profs[j].Name })
	return profs
}

func (repo *profileRepository) CheckHandleUniqueness(_ context.Context, handle string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.table {
		if p.Handle == handle {
			return profile.ErrHandleExists
		}
	}
	return nil
}

func (repo *profileRepository) CreateProfile(_ context.Context, prof profile.Profile) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	repo.db.table[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) GetProfileByID(_ context.Context, id string) (profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prof, ok := repo.db.table[id]; ok {
		return *prof, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) GetProfilesByID(_ context.Context, ids []string) ([]profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	profs := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		if prof, ok := repo.db.table[id]; ok {
			profs = append(profs, *prof)
		}
	}
	return profs, nil
}

func (repo *profileRepository) GetProfileByHandle(_ context.Context, handle string) (profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, prof := range repo.db.table {
		if prof.Handle == handle {
			return *prof, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) SearchProfiles(_ context.Context, query, excludeID string, limit int) ([]profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	query = strings.ToLower(query)
	matches := make([]profile.Profile, 0, limit)
	for _, prof := range repo.query() {
		if prof.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(prof.Name), query) ||
			strings.Contains(strings.ToLower(prof.Handle), query) {
			matches = append(matches, prof)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}
