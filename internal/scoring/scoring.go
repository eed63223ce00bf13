// Package scoring holds the pure arithmetic of the engine: raw-value
// normalization onto the 1-5 scale, the base/consensus blend, and the
// rank-to-weight rule used by the matcher.
package scoring

import (
	"math"

	"github.com/chamu-dev/chamu/internal/domain"
)

const (
	// ScaleMin and ScaleMax bound every score in the system.
	ScaleMin = 1.0
	ScaleMax = 5.0

	// Neutral is the midpoint default used when no score record exists.
	Neutral = 3.0

	// BaseWeight and AvgWeight blend imported ground-truth data with the
	// user consensus. Base data is weighted more heavily because the user
	// sample may be small.
	BaseWeight = 0.6
	AvgWeight  = 0.4
)

// Normalize rescales raw from [min, max] onto [1, 5]. A degenerate range
// (max == min) yields exactly 1.0 for either polarity. When reverse is true
// the scale is reflected, so a higher raw value maps to a worse score.
// The result is clamped to [1, 5] and rounded to 2 decimals.
func Normalize(raw, min, max float64, reverse bool) float64 {
	if max == min {
		return ScaleMin
	}
	score := (raw-min)/(max-min)*(ScaleMax-ScaleMin) + ScaleMin
	if reverse {
		score = ScaleMax + ScaleMin - score
	}
	return round2(Clamp(score, ScaleMin, ScaleMax))
}

// Blend computes the authoritative final score from a base score and the
// current evaluation average. A nil average degenerates to 100% base.
func Blend(base float64, avg *float64) float64 {
	if avg == nil {
		return base
	}
	return base*BaseWeight + *avg*AvgWeight
}

// RankWeight returns the weight of rank r among n ranked criteria:
// rank 1 gets weight n, rank n gets weight 1.
func RankWeight(r, n int) int {
	return n + 1 - r
}

// WeightSum is the sum of all rank weights for n criteria, 1+2+...+n.
func WeightSum(n int) int {
	return n * (n + 1) / 2
}

// Percentage rescales a composite score onto 0-100 for display. Higher
// composite means a better match.
func Percentage(composite float64) float64 {
	return round2((Clamp(composite, ScaleMin, ScaleMax) - ScaleMin) / (ScaleMax - ScaleMin) * 100)
}

// EffectiveScore is the single statement of the score lookup policy: prefer
// a present, non-zero final score, then the base score, then the neutral
// default when no record exists at all.
func EffectiveScore(rec *domain.ScoreRecord) float64 {
	switch {
	case rec == nil:
		return Neutral
	case rec.FinalScore != 0:
		return rec.FinalScore
	default:
		return rec.BaseScore
	}
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
