package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamu-dev/chamu/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     float64
		min     float64
		max     float64
		reverse bool
		want    float64
	}{
		{"midpoint", 50, 0, 100, false, 3.0},
		{"midpoint reversed is a fixed point", 50, 0, 100, true, 3.0},
		{"lower bound", 0, 0, 100, false, 1.0},
		{"upper bound", 100, 0, 100, false, 5.0},
		{"lower bound reversed", 0, 0, 100, true, 5.0},
		{"upper bound reversed", 100, 0, 100, true, 1.0},
		{"rounded to two decimals", 1, 0, 3, false, 2.33},
		{"degenerate range", 42, 7, 7, false, 1.0},
		{"degenerate range reversed", 42, 7, 7, true, 1.0},
		{"below range clamps", -10, 0, 100, false, 1.0},
		{"above range clamps", 110, 0, 100, false, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.raw, tt.min, tt.max, tt.reverse), 1e-9)
		})
	}
}

func TestNormalizeMonotonic(t *testing.T) {
	prev := Normalize(0, 0, 100, false)
	for v := 1.0; v <= 100; v++ {
		cur := Normalize(v, 0, 100, false)
		require.GreaterOrEqual(t, cur, prev, "normalize not monotonic at %v", v)
		prev = cur
	}
}

func TestNormalizeReverseSymmetry(t *testing.T) {
	for v := 0.0; v <= 100; v += 7 {
		forward := Normalize(v, 0, 100, false)
		reversed := Normalize(v, 0, 100, true)
		assert.InDelta(t, 6-forward, reversed, 1e-9)
	}
}

func TestBlend(t *testing.T) {
	avg := 3.0
	assert.InDelta(t, 4.0*0.6+3.0*0.4, Blend(4.0, &avg), 1e-9)

	// No evaluations yet: final degenerates to 100% base.
	assert.InDelta(t, 4.0, Blend(4.0, nil), 1e-9)
}

func TestRankWeights(t *testing.T) {
	// N=2: rank 1 weighs 2, rank 2 weighs 1.
	assert.Equal(t, 2, RankWeight(1, 2))
	assert.Equal(t, 1, RankWeight(2, 2))

	for n := 1; n <= 10; n++ {
		sum := 0
		for r := 1; r <= n; r++ {
			sum += RankWeight(r, n)
		}
		assert.Equal(t, WeightSum(n), sum, "weight sum mismatch for n=%d", n)
	}
}

func TestEffectiveScore(t *testing.T) {
	// No record: neutral default, not zero and not an error.
	assert.InDelta(t, 3.0, EffectiveScore(nil), 1e-9)

	// Final score wins when present.
	assert.InDelta(t, 4.2, EffectiveScore(&domain.ScoreRecord{BaseScore: 2.0, FinalScore: 4.2}), 1e-9)

	// Zero final falls back to base.
	assert.InDelta(t, 2.0, EffectiveScore(&domain.ScoreRecord{BaseScore: 2.0}), 1e-9)
}

func TestPercentage(t *testing.T) {
	assert.InDelta(t, 100.0, Percentage(5.0), 1e-9)
	assert.InDelta(t, 0.0, Percentage(1.0), 1e-9)
	assert.InDelta(t, 50.0, Percentage(3.0), 1e-9)
	assert.InDelta(t, 75.0, Percentage(4.0), 1e-9)

	// Out-of-range composites are clamped before rescaling.
	assert.InDelta(t, 100.0, Percentage(7.2), 1e-9)
	assert.InDelta(t, 0.0, Percentage(0.3), 1e-9)
}
