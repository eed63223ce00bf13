package domain

import "fmt"

// PreferenceRanking maps rank position (1 = highest priority) to a
// criterion identifier. Ranks must be contiguous from 1 and no criterion
// may appear twice.
type PreferenceRanking map[int]string

// Validate checks the structural invariants of a ranking.
func (r PreferenceRanking) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("ranking: at least one criterion is required")
	}
	seen := make(map[string]int, len(r))
	for rank, criterionID := range r {
		if rank < 1 || rank > len(r) {
			return fmt.Errorf("ranking: rank %d is out of range, ranks must be contiguous from 1", rank)
		}
		if criterionID == "" {
			return fmt.Errorf("ranking: rank %d has an empty criterion", rank)
		}
		if prev, ok := seen[criterionID]; ok {
			return fmt.Errorf("ranking: criterion %s appears at both rank %d and rank %d", criterionID, prev, rank)
		}
		seen[criterionID] = rank
	}
	return nil
}

// CriterionBreakdown is one criterion's contribution to a composite score.
type CriterionBreakdown struct {
	CriterionID string  `json:"criterionId"`
	Rank        int     `json:"rank"`
	Weight      int     `json:"weight"`
	Score       float64 `json:"score"`
}

// MatchResult is one ranked candidate with its composite score, the display
// percentage, and the per-criterion breakdown.
type MatchResult struct {
	Location   Location
	Composite  float64
	Percentage float64
	Breakdown  []CriterionBreakdown
}
