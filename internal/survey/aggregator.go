// Package survey validates evaluation submissions and drives the aggregate
// recompute. The field set is data-driven: one 1-5 score per seeded
// criterion, checked by a generic range validation, not per-request schema
// generation.
package survey

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/repository"
)

// ValidationError rejects a submission before any mutation and names the
// offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateBatch checks a submission against the seeded criteria: every
// criterion must be present with a score in [1,5], and nothing else may be
// submitted. All-or-nothing: the first offending field rejects the batch.
func ValidateBatch(criteria []domain.Criterion, scores map[string]int) error {
	known := make(map[string]domain.Criterion, len(criteria))
	for _, c := range criteria {
		known[c.ID] = c
	}
	for id, score := range scores {
		c, ok := known[id]
		if !ok {
			return &ValidationError{Field: id, Reason: "unknown criterion"}
		}
		if score < 1 || score > 5 {
			return &ValidationError{Field: c.Slug, Reason: fmt.Sprintf("score %d is out of range 1-5", score)}
		}
	}
	var missing []string
	for _, c := range criteria {
		if _, ok := scores[c.ID]; !ok {
			missing = append(missing, c.Slug)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Field: strings.Join(missing, ", "), Reason: "missing score"}
	}
	return nil
}

// Aggregator accepts evaluation batches and keeps score aggregates current.
type Aggregator struct {
	repo   *repository.Repository
	logger *log.Logger
}

// New constructs an Aggregator.
func New(repo *repository.Repository, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{repo: repo, logger: logger}
}

// Submit validates and stores one user's evaluation batch for a location,
// then recomputes the (location, country) aggregates. Criteria without base
// data yet are skipped with a log line, never an error.
func (a *Aggregator) Submit(ctx context.Context, userID, locationID string, scores map[string]int) (repository.SubmitResult, error) {
	user, err := a.repo.Users.GetByID(ctx, userID)
	if err != nil {
		return repository.SubmitResult{}, fmt.Errorf("load user: %w", err)
	}
	if user.CountryID == nil {
		return repository.SubmitResult{}, &ValidationError{Field: "country", Reason: "user profile has no country"}
	}

	criteria, err := a.repo.Criteria.List(ctx)
	if err != nil {
		return repository.SubmitResult{}, fmt.Errorf("list criteria: %w", err)
	}
	if err := ValidateBatch(criteria, scores); err != nil {
		return repository.SubmitResult{}, err
	}

	result, err := a.repo.Evaluations.Submit(ctx, repository.SubmitParams{
		UserID:     userID,
		LocationID: locationID,
		CountryID:  *user.CountryID,
		Scores:     scores,
	})
	if err != nil {
		return repository.SubmitResult{}, fmt.Errorf("submit evaluations: %w", err)
	}

	if len(result.SkippedCriteria) > 0 {
		a.logger.Printf("survey: no base score yet for location %s, country %s, criteria %v; skipped",
			locationID, *user.CountryID, result.SkippedCriteria)
	}
	return result, nil
}
