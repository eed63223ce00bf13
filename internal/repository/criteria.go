package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamu-dev/chamu/internal/domain"
)

// CriteriaRepository provides persistence helpers for evaluation criteria.
// Criteria are seeded by import and rarely change afterwards.
type CriteriaRepository struct {
	pool *pgxpool.Pool
}

const criterionColumns = `id, name, slug, left_label, right_label, reverse, created_at`

// CriterionUpsertParams bundles the fields required to seed a criterion.
type CriterionUpsertParams struct {
	Name       string
	LeftLabel  string
	RightLabel string
	Reverse    bool
}

// Upsert creates the criterion or refreshes its labels and polarity flag.
func (r *CriteriaRepository) Upsert(ctx context.Context, params CriterionUpsertParams) (domain.Criterion, error) {
	const query = `
        INSERT INTO criteria (name, slug, left_label, right_label, reverse)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (name) DO UPDATE
        SET left_label = EXCLUDED.left_label,
            right_label = EXCLUDED.right_label,
            reverse = EXCLUDED.reverse
        RETURNING ` + criterionColumns
	row := r.pool.QueryRow(ctx, query,
		params.Name, domain.Slugify(params.Name), params.LeftLabel, params.RightLabel, params.Reverse)
	return scanCriterion(row)
}

// GetByName fetches a criterion by its unique name.
func (r *CriteriaRepository) GetByName(ctx context.Context, name string) (domain.Criterion, error) {
	const query = `SELECT ` + criterionColumns + ` FROM criteria WHERE name = $1`
	c, err := scanCriterion(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Criterion{}, ErrNotFound
		}
		return domain.Criterion{}, err
	}
	return c, nil
}

// List returns all seeded criteria in a stable order.
func (r *CriteriaRepository) List(ctx context.Context) ([]domain.Criterion, error) {
	const query = `SELECT ` + criterionColumns + ` FROM criteria ORDER BY created_at, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ByIDs fetches the criteria matching the given ids. Callers compare the
// result length against the request to detect unknown ids.
func (r *CriteriaRepository) ByIDs(ctx context.Context, ids []string) ([]domain.Criterion, error) {
	const query = `SELECT ` + criterionColumns + ` FROM criteria WHERE id = ANY($1::uuid[])`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCriterion(row pgx.Row) (domain.Criterion, error) {
	var c domain.Criterion
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.LeftLabel, &c.RightLabel, &c.Reverse, &c.CreatedAt)
	if err != nil {
		return domain.Criterion{}, err
	}
	return c, nil
}
