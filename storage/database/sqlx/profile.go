package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/wakahia/baraza/core/profile"
)

type profileRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Handle    string      `db:"handle"`
	Role      null.String `db:"role"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r profileRow) toProfile() profile.Profile {
	return profile.Profile{
		ID:        r.ID,
		Name:      r.Name,
		Handle:    r.Handle,
		Role:      r.Role.String,
		CreatedAt: r.CreatedAt,
	}
}

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to profile.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return profile.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *profileRepository) CheckHandleUniqueness(ctx context.Context, handle string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE handle = $1)`, handle)
	if err != nil {
		return errors.Wrap(err, "checking handle uniqueness")
	}
	if exists {
		return profile.ErrHandleExists
	}
	return nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	row := profileRow{
		ID:        prof.ID,
		Name:      prof.Name,
		Handle:    prof.Handle,
		Role:      null.NewString(prof.Role, prof.Role != ""),
		CreatedAt: prof.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO profiles (id, name, handle, role, created_at)
		 VALUES (:id, :name, :handle, :role, :created_at)`, row)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return row.toProfile(), nil
}

func (repo *profileRepository) GetProfileByID(ctx context.Context, id string) (profile.Profile, error) {
	var row profileRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, name, handle, role, created_at FROM profiles WHERE id = $1`, id)
	if err != nil {
		return profile.Profile{}, trapNoRowsErr(err, "getting profile by id")
	}
	return row.toProfile(), nil
}

func (repo *profileRepository) GetProfilesByID(ctx context.Context, ids []string) ([]profile.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT id, name, handle, role, created_at FROM profiles WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building profiles batch query")
	}

	var rows []profileRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "getting profiles by id")
	}
	profs := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		profs = append(profs, row.toProfile())
	}
	return profs, nil
}

func (repo *profileRepository) GetProfileByHandle(ctx context.Context, handle string) (profile.Profile, error) {
	var row profileRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, name, handle, role, created_at FROM profiles WHERE handle = $1`, handle)
	if err != nil {
		return profile.Profile{}, trapNoRowsErr(err, "getting profile by handle")
	}
	return row.toProfile(), nil
}

func (repo *profileRepository) SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]profile.Profile, error) {
	var rows []profileRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, name, handle, role, created_at
		 FROM profiles
		 WHERE (name ILIKE $1 OR handle ILIKE $1) AND id <> $2
		 ORDER BY name
		 LIMIT $3`,
		"%"+query+"%", excludeID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "searching profiles")
	}
	profs := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		profs = append(profs, row.toProfile())
	}
	return profs, nil
}
