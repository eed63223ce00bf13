package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamu-dev/chamu/internal/domain"
)

// LocationsRepository provides persistence helpers for regions and the
// municipalities underneath them.
type LocationsRepository struct {
	pool *pgxpool.Pool
}

const locationColumns = `id, name, region_id, latitude, longitude, created_at, updated_at`

// GetOrCreateRegion returns the region with the given name, creating it if absent.
func (r *LocationsRepository) GetOrCreateRegion(ctx context.Context, name string) (domain.Region, error) {
	const query = `
        INSERT INTO regions (name)
        VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name, created_at
    `
	var reg domain.Region
	if err := r.pool.QueryRow(ctx, query, name).Scan(&reg.ID, &reg.Name, &reg.CreatedAt); err != nil {
		return domain.Region{}, err
	}
	return reg, nil
}

// GetRegionByName fetches a region by its unique name.
func (r *LocationsRepository) GetRegionByName(ctx context.Context, name string) (domain.Region, error) {
	const query = `SELECT id, name, created_at FROM regions WHERE name = $1`
	var reg domain.Region
	err := r.pool.QueryRow(ctx, query, name).Scan(&reg.ID, &reg.Name, &reg.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Region{}, ErrNotFound
		}
		return domain.Region{}, err
	}
	return reg, nil
}

// Upsert creates a location or re-attaches it to a region. A nil regionID
// never detaches an existing parent: hierarchy is immutable once set.
func (r *LocationsRepository) Upsert(ctx context.Context, name string, regionID *string) (domain.Location, error) {
	const query = `
        INSERT INTO locations (name, region_id)
        VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE
        SET region_id = COALESCE(locations.region_id, EXCLUDED.region_id),
            updated_at = now()
        RETURNING ` + locationColumns
	return scanLocation(r.pool.QueryRow(ctx, query, name, regionID))
}

// GetByName fetches a location by its unique name.
func (r *LocationsRepository) GetByName(ctx context.Context, name string) (domain.Location, error) {
	const query = `SELECT ` + locationColumns + ` FROM locations WHERE name = $1`
	loc, err := scanLocation(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Location{}, ErrNotFound
		}
		return domain.Location{}, err
	}
	return loc, nil
}

// GetByID fetches a location by its identifier.
func (r *LocationsRepository) GetByID(ctx context.Context, id string) (domain.Location, error) {
	const query = `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	loc, err := scanLocation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Location{}, ErrNotFound
		}
		return domain.Location{}, err
	}
	return loc, nil
}

// Candidates lists matching candidates, optionally restricted to locations
// whose parent region matches regionID. An unknown region simply yields an
// empty slice.
func (r *LocationsRepository) Candidates(ctx context.Context, regionID *string) ([]domain.Location, error) {
	const query = `
        SELECT ` + locationColumns + `
        FROM locations
        WHERE $1::uuid IS NULL OR region_id = $1::uuid
        ORDER BY name
    `
	rows, err := r.pool.Query(ctx, query, regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// UngeocodedLocation pairs a location with its region name for building a
// geocoder query string.
type UngeocodedLocation struct {
	Location   domain.Location
	RegionName *string
}

// ListWithoutCoordinates returns locations the geocoding job still has to fill in.
func (r *LocationsRepository) ListWithoutCoordinates(ctx context.Context) ([]UngeocodedLocation, error) {
	const query = `
        SELECT l.id, l.name, l.region_id, l.latitude, l.longitude, l.created_at, l.updated_at, r.name
        FROM locations l
        LEFT JOIN regions r ON r.id = l.region_id
        WHERE l.latitude IS NULL
        ORDER BY l.name
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UngeocodedLocation
	for rows.Next() {
		var (
			loc        domain.Location
			lat, lon   *float64
			regionName *string
		)
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.RegionID, &lat, &lon, &loc.CreatedAt, &loc.UpdatedAt, &regionName); err != nil {
			return nil, err
		}
		out = append(out, UngeocodedLocation{Location: loc, RegionName: regionName})
	}
	return out, rows.Err()
}

// UpdateCoordinates stores a geocoded point for a location.
func (r *LocationsRepository) UpdateCoordinates(ctx context.Context, id string, coords domain.Coordinates) error {
	const query = `UPDATE locations SET latitude = $2, longitude = $3, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, coords.Latitude, coords.Longitude)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLocation(row pgx.Row) (domain.Location, error) {
	var (
		loc      domain.Location
		lat, lon *float64
	)
	err := row.Scan(&loc.ID, &loc.Name, &loc.RegionID, &lat, &lon, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return domain.Location{}, err
	}
	if lat != nil && lon != nil {
		loc.Coordinates = &domain.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	return loc, nil
}
