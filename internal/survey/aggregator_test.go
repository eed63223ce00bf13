package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamu-dev/chamu/internal/domain"
)

func seededCriteria() []domain.Criterion {
	return []domain.Criterion{
		{ID: "c1", Name: "Cost of living", Slug: "cost-of-living"},
		{ID: "c2", Name: "Crime rate", Slug: "crime-rate", Reverse: true},
		{ID: "c3", Name: "Local shops", Slug: "local-shops"},
	}
}

func TestValidateBatchAccepts(t *testing.T) {
	err := ValidateBatch(seededCriteria(), map[string]int{"c1": 1, "c2": 3, "c3": 5})
	assert.NoError(t, err)
}

func TestValidateBatchRejects(t *testing.T) {
	tests := []struct {
		name      string
		scores    map[string]int
		wantField string
	}{
		{"missing criterion", map[string]int{"c1": 3, "c2": 3}, "local-shops"},
		{"empty batch", map[string]int{}, "cost-of-living"},
		{"score too low", map[string]int{"c1": 0, "c2": 3, "c3": 3}, "cost-of-living"},
		{"score too high", map[string]int{"c1": 3, "c2": 6, "c3": 3}, "crime-rate"},
		{"unknown criterion", map[string]int{"c1": 3, "c2": 3, "c3": 3, "bogus": 3}, "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(seededCriteria(), tt.scores)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Field, tt.wantField)
		})
	}
}
