package scoring

import (
	"math"
	"testing"
)

func FuzzNormalize(f *testing.F) {
	f.Add(50.0, 0.0, 100.0, false)
	f.Add(3.0, 3.0, 3.0, true)
	f.Add(-10.0, -20.0, 20.0, true)

	f.Fuzz(func(t *testing.T, raw, min, max float64, reverse bool) {
		// Raw observations are real-world statistics, not float extremes.
		const bound = 1e12
		if math.IsNaN(raw) || math.IsNaN(min) || math.IsNaN(max) ||
			math.Abs(raw) > bound || math.Abs(min) > bound || math.Abs(max) > bound {
			t.Skip()
		}
		if min > max {
			min, max = max, min
		}

		got := Normalize(raw, min, max, reverse)
		if got < ScaleMin || got > ScaleMax {
			t.Fatalf("Normalize(%v, %v, %v, %v) = %v, outside [%v, %v]",
				raw, min, max, reverse, got, float64(ScaleMin), float64(ScaleMax))
		}
		if math.Round(got*100)/100 != got {
			t.Fatalf("Normalize(%v, %v, %v, %v) = %v, not rounded to two decimals",
				raw, min, max, reverse, got)
		}
	})
}
