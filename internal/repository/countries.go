package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamu-dev/chamu/internal/domain"
)

// CountriesRepository provides persistence helpers for countries.
type CountriesRepository struct {
	pool *pgxpool.Pool
}

const countryColumns = `id, name, created_at`

// GetOrCreate returns the country with the given name, creating it if absent.
func (r *CountriesRepository) GetOrCreate(ctx context.Context, name string) (domain.Country, error) {
	const query = `
        INSERT INTO countries (name)
        VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING ` + countryColumns
	var c domain.Country
	err := r.pool.QueryRow(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return domain.Country{}, err
	}
	return c, nil
}

// GetByName fetches a country by its unique name.
func (r *CountriesRepository) GetByName(ctx context.Context, name string) (domain.Country, error) {
	const query = `SELECT ` + countryColumns + ` FROM countries WHERE name = $1`
	var c domain.Country
	err := r.pool.QueryRow(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Country{}, ErrNotFound
		}
		return domain.Country{}, err
	}
	return c, nil
}

// List returns all countries ordered by name.
func (r *CountriesRepository) List(ctx context.Context) ([]domain.Country, error) {
	const query = `SELECT ` + countryColumns + ` FROM countries ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Country
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count reports how many countries exist. Base-score imports require at
// least one, since every imported value seeds one record per country.
func (r *CountriesRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
