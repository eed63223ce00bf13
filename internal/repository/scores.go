package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/scoring"
)

// ScoresRepository persists one record per (location, country, criterion)
// triple. Records are created lazily on base-score import and mutated by the
// evaluation recompute; they are never deleted in normal operation.
type ScoresRepository struct {
	pool *pgxpool.Pool
}

const scoreColumns = `location_id, country_id, criterion_id, base_score, avg_score, final_score, created_at, updated_at`

// upsertBaseQuery seeds one score record per existing country. On conflict
// the base score is overwritten and the final score re-blended against any
// existing evaluation average.
var upsertBaseQuery = fmt.Sprintf(`
    INSERT INTO scores (location_id, country_id, criterion_id, base_score, final_score)
    SELECT $1, c.id, $2, $3::float8, $3::float8 FROM countries c
    ON CONFLICT (location_id, country_id, criterion_id) DO UPDATE
    SET base_score = EXCLUDED.base_score,
        final_score = CASE WHEN scores.avg_score IS NULL THEN EXCLUDED.base_score
                           ELSE EXCLUDED.base_score*%g + scores.avg_score*%g END,
        updated_at = now()
`, scoring.BaseWeight, scoring.AvgWeight)

// UpsertBase writes an imported base score for every country partition and
// reports how many records were touched.
func (r *ScoresRepository) UpsertBase(ctx context.Context, locationID, criterionID string, value float64) (int64, error) {
	tag, err := r.pool.Exec(ctx, upsertBaseQuery, locationID, criterionID, value)
	if err != nil {
		return 0, fmt.Errorf("upsert base score: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Find returns the record for one triple, or ErrNotFound. Callers that want
// the fallback chain use scoring.EffectiveScore on the result.
func (r *ScoresRepository) Find(ctx context.Context, locationID, countryID, criterionID string) (domain.ScoreRecord, error) {
	const query = `
        SELECT ` + scoreColumns + `
        FROM scores
        WHERE location_id = $1 AND country_id = $2 AND criterion_id = $3
    `
	rec, err := scanScore(r.pool.QueryRow(ctx, query, locationID, countryID, criterionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ScoreRecord{}, ErrNotFound
		}
		return domain.ScoreRecord{}, err
	}
	return rec, nil
}

// ByCountry bulk-fetches the records for a country partition across the
// given locations, keyed by location id then criterion id. Missing triples
// are simply absent from the map.
func (r *ScoresRepository) ByCountry(ctx context.Context, countryID string, locationIDs []string) (map[string]map[string]domain.ScoreRecord, error) {
	const query = `
        SELECT ` + scoreColumns + `
        FROM scores
        WHERE country_id = $1 AND location_id = ANY($2::uuid[])
    `
	rows, err := r.pool.Query(ctx, query, countryID, locationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]domain.ScoreRecord)
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		byCriterion, ok := out[rec.LocationID]
		if !ok {
			byCriterion = make(map[string]domain.ScoreRecord)
			out[rec.LocationID] = byCriterion
		}
		byCriterion[rec.CriterionID] = rec
	}
	return out, rows.Err()
}

// ScoreView pairs a score record with its criterion for display listings.
type ScoreView struct {
	Criterion domain.Criterion
	Record    domain.ScoreRecord
}

// ListForLocation returns the per-criterion records of one location within a
// country partition, ordered like the seeded criteria.
func (r *ScoresRepository) ListForLocation(ctx context.Context, locationID, countryID string) ([]ScoreView, error) {
	const query = `
        SELECT c.id, c.name, c.slug, c.left_label, c.right_label, c.reverse, c.created_at,
               s.location_id, s.country_id, s.criterion_id, s.base_score, s.avg_score, s.final_score, s.created_at, s.updated_at
        FROM scores s
        JOIN criteria c ON c.id = s.criterion_id
        WHERE s.location_id = $1 AND s.country_id = $2
        ORDER BY c.created_at, c.name
    `
	rows, err := r.pool.Query(ctx, query, locationID, countryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ScoreView, 0)
	for rows.Next() {
		var v ScoreView
		err := rows.Scan(
			&v.Criterion.ID, &v.Criterion.Name, &v.Criterion.Slug,
			&v.Criterion.LeftLabel, &v.Criterion.RightLabel, &v.Criterion.Reverse, &v.Criterion.CreatedAt,
			&v.Record.LocationID, &v.Record.CountryID, &v.Record.CriterionID,
			&v.Record.BaseScore, &v.Record.AvgScore, &v.Record.FinalScore,
			&v.Record.CreatedAt, &v.Record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanScore(row pgx.Row) (domain.ScoreRecord, error) {
	var rec domain.ScoreRecord
	err := row.Scan(
		&rec.LocationID, &rec.CountryID, &rec.CriterionID,
		&rec.BaseScore, &rec.AvgScore, &rec.FinalScore,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	return rec, nil
}
