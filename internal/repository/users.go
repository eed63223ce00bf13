package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamu-dev/chamu/internal/domain"
)

// UsersRepository provides persistence helpers for user profiles.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, name, country_id, location_id, target_region_id, created_at, updated_at`

// UserParams bundles the profile fields submitted through the info form.
type UserParams struct {
	Name           string
	CountryID      *string
	LocationID     *string
	TargetRegionID *string
}

// Create inserts a new profile row.
func (r *UsersRepository) Create(ctx context.Context, params UserParams) (domain.UserProfile, error) {
	const query = `
        INSERT INTO users (name, country_id, location_id, target_region_id)
        VALUES ($1,$2,$3,$4)
        RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, params.Name, params.CountryID, params.LocationID, params.TargetRegionID))
}

// Update overwrites a profile with a resubmitted form.
func (r *UsersRepository) Update(ctx context.Context, id string, params UserParams) (domain.UserProfile, error) {
	const query = `
        UPDATE users
        SET name = $2,
            country_id = $3,
            location_id = $4,
            target_region_id = $5,
            updated_at = now()
        WHERE id = $1
        RETURNING ` + userColumns
	user, err := scanUser(r.pool.QueryRow(ctx, query, id, params.Name, params.CountryID, params.LocationID, params.TargetRegionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserProfile{}, ErrNotFound
		}
		return domain.UserProfile{}, err
	}
	return user, nil
}

// GetByID fetches a profile by its identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserProfile{}, ErrNotFound
		}
		return domain.UserProfile{}, err
	}
	return user, nil
}

// DeleteStale removes profiles older than maxAge that never submitted an
// evaluation. Run periodically as maintenance.
func (r *UsersRepository) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	const query = `
        DELETE FROM users u
        WHERE u.created_at < now() - make_interval(secs => $1)
          AND NOT EXISTS (SELECT 1 FROM evaluations e WHERE e.user_id = u.id)
    `
	tag, err := r.pool.Exec(ctx, query, maxAge.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (domain.UserProfile, error) {
	var u domain.UserProfile
	err := row.Scan(&u.ID, &u.Name, &u.CountryID, &u.LocationID, &u.TargetRegionID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return u, nil
}
