// Package matching turns a user's priority ranking into a ranked list of
// candidate locations using the stored scores of one country partition.
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/scoring"
)

// CandidateSource lists the locations eligible for matching, optionally
// restricted to one region.
type CandidateSource interface {
	Candidates(ctx context.Context, regionID *string) ([]domain.Location, error)
}

// ScoreSource bulk-fetches score records for a country partition, keyed by
// location id then criterion id. Missing triples are absent from the map.
type ScoreSource interface {
	ByCountry(ctx context.Context, countryID string, locationIDs []string) (map[string]map[string]domain.ScoreRecord, error)
}

// Matcher computes weighted composite scores for candidate locations.
type Matcher struct {
	candidates CandidateSource
	scores     ScoreSource
}

// New constructs a Matcher over the given sources.
func New(candidates CandidateSource, scores ScoreSource) *Matcher {
	return &Matcher{candidates: candidates, scores: scores}
}

// Match ranks candidates for the given priority ranking and country. Rank r
// of N criteria weighs N+1-r, the composite is the weighted mean of the
// per-criterion scores, and results are sorted best-first (higher composite
// is a better match) with a stable sort so ties keep candidate order. An
// empty candidate scope yields an empty result, not an error.
func (m *Matcher) Match(ctx context.Context, ranking domain.PreferenceRanking, countryID string, regionID *string) ([]domain.MatchResult, error) {
	if err := ranking.Validate(); err != nil {
		return nil, err
	}

	candidates, err := m.candidates.Candidates(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return []domain.MatchResult{}, nil
	}

	locationIDs := make([]string, len(candidates))
	for i, loc := range candidates {
		locationIDs[i] = loc.ID
	}
	records, err := m.scores.ByCountry(ctx, countryID, locationIDs)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}

	n := len(ranking)
	weightSum := float64(scoring.WeightSum(n))

	results := make([]domain.MatchResult, 0, len(candidates))
	for _, loc := range candidates {
		byCriterion := records[loc.ID]

		var weighted float64
		breakdown := make([]domain.CriterionBreakdown, 0, n)
		for rank := 1; rank <= n; rank++ {
			criterionID := ranking[rank]
			weight := scoring.RankWeight(rank, n)

			// A location with no record for a criterion contributes the
			// neutral default, never zero and never an error.
			var rec *domain.ScoreRecord
			if found, ok := byCriterion[criterionID]; ok {
				rec = &found
			}
			score := scoring.EffectiveScore(rec)

			weighted += score * float64(weight)
			breakdown = append(breakdown, domain.CriterionBreakdown{
				CriterionID: criterionID,
				Rank:        rank,
				Weight:      weight,
				Score:       score,
			})
		}

		composite := round2(weighted / weightSum)
		results = append(results, domain.MatchResult{
			Location:   loc,
			Composite:  composite,
			Percentage: scoring.Percentage(composite),
			Breakdown:  breakdown,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Composite > results[j].Composite })
	return results, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
