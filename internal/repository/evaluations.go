package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/scoring"
)

// EvaluationsRepository stores user evaluations and keeps the score records
// of the affected (location, country) partition consistent with them.
type EvaluationsRepository struct {
	pool *pgxpool.Pool
}

// SubmitParams is one validated evaluation batch: one 1-5 score per
// criterion for a single (user, location).
type SubmitParams struct {
	UserID     string
	LocationID string
	CountryID  string
	Scores     map[string]int // criterion id -> score
}

// SubmitResult reports what the recompute touched. SkippedCriteria lists
// criteria that have evaluations but no score record yet (base data not
// imported); they are skipped, not failed.
type SubmitResult struct {
	Inserted        int
	UpdatedCriteria []string
	SkippedCriteria []string
}

// partitionLockQuery serializes writers of one (location, country) partition
// for the rest of the transaction. Under READ COMMITTED, two concurrent
// submissions could otherwise both compute an average from a snapshot missing
// the other's rows and the later commit would win with a stale value; taking
// the lock first means the recompute statement never starts before a
// competing transaction has committed.
const partitionLockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1::text || '/' || $2::text, 0))`

// recomputeQuery refreshes avg_score and final_score from the current
// evaluations of a (location, country) partition. Averages are restricted to
// evaluators of the partition's country.
var recomputeQuery = fmt.Sprintf(`
    UPDATE scores s
    SET avg_score = sub.avg_score,
        final_score = s.base_score*%g + sub.avg_score*%g,
        updated_at = now()
    FROM (
        SELECT e.criterion_id, AVG(e.score)::float8 AS avg_score
        FROM evaluations e
        JOIN users u ON u.id = e.user_id
        WHERE e.location_id = $1 AND u.country_id = $2
        GROUP BY e.criterion_id
    ) sub
    WHERE s.location_id = $1 AND s.country_id = $2 AND s.criterion_id = sub.criterion_id
    RETURNING s.criterion_id
`, scoring.BaseWeight, scoring.AvgWeight)

const evaluatedCriteriaQuery = `
    SELECT DISTINCT e.criterion_id
    FROM evaluations e
    JOIN users u ON u.id = e.user_id
    WHERE e.location_id = $1 AND u.country_id = $2
`

// Submit replaces the user's prior evaluations for the location with the new
// batch and recomputes the partition's aggregates, all in one transaction.
// The partition lock serializes concurrent submissions for the same
// (location, country) so neither can overwrite the other's average.
func (r *EvaluationsRepository) Submit(ctx context.Context, params SubmitParams) (SubmitResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, partitionLockQuery, params.LocationID, params.CountryID); err != nil {
		return SubmitResult{}, fmt.Errorf("lock partition: %w", err)
	}

	// A resubmission replaces, never duplicates.
	if _, err := tx.Exec(ctx,
		`DELETE FROM evaluations WHERE user_id = $1 AND location_id = $2`,
		params.UserID, params.LocationID); err != nil {
		return SubmitResult{}, fmt.Errorf("delete prior evaluations: %w", err)
	}

	criterionIDs := make([]string, 0, len(params.Scores))
	for id := range params.Scores {
		criterionIDs = append(criterionIDs, id)
	}
	sort.Strings(criterionIDs)

	var result SubmitResult
	for _, criterionID := range criterionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO evaluations (user_id, location_id, criterion_id, score) VALUES ($1,$2,$3,$4)`,
			params.UserID, params.LocationID, criterionID, params.Scores[criterionID]); err != nil {
			return SubmitResult{}, fmt.Errorf("insert evaluation for criterion %s: %w", criterionID, err)
		}
		result.Inserted++
	}

	updated, skipped, err := recompute(ctx, tx, params.LocationID, params.CountryID)
	if err != nil {
		return SubmitResult{}, err
	}
	result.UpdatedCriteria = updated
	result.SkippedCriteria = skipped

	if err := tx.Commit(ctx); err != nil {
		return SubmitResult{}, fmt.Errorf("commit submit: %w", err)
	}
	return result, nil
}

// Recompute re-derives the aggregates for a (location, country) partition
// from stored evaluations. Running it again with no new evaluations is a
// no-op on the resulting values.
func (r *EvaluationsRepository) Recompute(ctx context.Context, locationID, countryID string) ([]string, []string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin recompute: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, partitionLockQuery, locationID, countryID); err != nil {
		return nil, nil, fmt.Errorf("lock partition: %w", err)
	}

	updated, skipped, err := recompute(ctx, tx, locationID, countryID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit recompute: %w", err)
	}
	return updated, skipped, nil
}

func recompute(ctx context.Context, tx pgx.Tx, locationID, countryID string) (updated, skipped []string, err error) {
	rows, err := tx.Query(ctx, recomputeQuery, locationID, countryID)
	if err != nil {
		return nil, nil, fmt.Errorf("recompute aggregates: %w", err)
	}
	updatedSet := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, err
		}
		updatedSet[id] = struct{}{}
		updated = append(updated, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	evalRows, err := tx.Query(ctx, evaluatedCriteriaQuery, locationID, countryID)
	if err != nil {
		return nil, nil, fmt.Errorf("list evaluated criteria: %w", err)
	}
	defer evalRows.Close()
	for evalRows.Next() {
		var id string
		if err := evalRows.Scan(&id); err != nil {
			return nil, nil, err
		}
		if _, ok := updatedSet[id]; !ok {
			skipped = append(skipped, id)
		}
	}
	if err := evalRows.Err(); err != nil {
		return nil, nil, err
	}

	sort.Strings(updated)
	sort.Strings(skipped)
	return updated, skipped, nil
}

// ListForUser returns the user's current evaluations for a location.
func (r *EvaluationsRepository) ListForUser(ctx context.Context, userID, locationID string) ([]domain.Evaluation, error) {
	const query = `
        SELECT id, user_id, location_id, criterion_id, score, created_at
        FROM evaluations
        WHERE user_id = $1 AND location_id = $2
        ORDER BY created_at, criterion_id
    `
	rows, err := r.pool.Query(ctx, query, userID, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Evaluation
	for rows.Next() {
		var e domain.Evaluation
		if err := rows.Scan(&e.ID, &e.UserID, &e.LocationID, &e.CriterionID, &e.Score, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
