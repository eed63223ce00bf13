package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamu-dev/chamu/internal/domain"
)

type fakeCandidates struct {
	byRegion map[string][]domain.Location
	all      []domain.Location
}

func (f *fakeCandidates) Candidates(_ context.Context, regionID *string) ([]domain.Location, error) {
	if regionID == nil {
		return f.all, nil
	}
	return f.byRegion[*regionID], nil
}

type fakeScores struct {
	records map[string]map[string]domain.ScoreRecord
}

func (f *fakeScores) ByCountry(_ context.Context, _ string, locationIDs []string) (map[string]map[string]domain.ScoreRecord, error) {
	out := make(map[string]map[string]domain.ScoreRecord)
	for _, id := range locationIDs {
		if recs, ok := f.records[id]; ok {
			out[id] = recs
		}
	}
	return out, nil
}

func record(loc, crit string, final float64) domain.ScoreRecord {
	return domain.ScoreRecord{LocationID: loc, CriterionID: crit, BaseScore: final, FinalScore: final}
}

func TestMatchWeightedComposite(t *testing.T) {
	// N=2: rank 1 weighs 2, rank 2 weighs 1.
	// scoreA=5, scoreB=2 -> composite = (5*2 + 2*1)/3 = 4.0.
	candidates := &fakeCandidates{all: []domain.Location{{ID: "loc1", Name: "Naha"}}}
	scores := &fakeScores{records: map[string]map[string]domain.ScoreRecord{
		"loc1": {
			"critA": record("loc1", "critA", 5),
			"critB": record("loc1", "critB", 2),
		},
	}}

	m := New(candidates, scores)
	results, err := m.Match(context.Background(), domain.PreferenceRanking{1: "critA", 2: "critB"}, "country1", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.InDelta(t, 4.0, got.Composite, 1e-9)
	assert.InDelta(t, 75.0, got.Percentage, 1e-9)

	require.Len(t, got.Breakdown, 2)
	assert.Equal(t, "critA", got.Breakdown[0].CriterionID)
	assert.Equal(t, 2, got.Breakdown[0].Weight)
	assert.InDelta(t, 5.0, got.Breakdown[0].Score, 1e-9)
	assert.Equal(t, "critB", got.Breakdown[1].CriterionID)
	assert.Equal(t, 1, got.Breakdown[1].Weight)
}

func TestMatchOrdersBestFirst(t *testing.T) {
	candidates := &fakeCandidates{all: []domain.Location{
		{ID: "low", Name: "Low"},
		{ID: "high", Name: "High"},
		{ID: "mid", Name: "Mid"},
	}}
	scores := &fakeScores{records: map[string]map[string]domain.ScoreRecord{
		"low":  {"crit": record("low", "crit", 1.5)},
		"high": {"crit": record("high", "crit", 4.8)},
		"mid":  {"crit": record("mid", "crit", 3.2)},
	}}

	m := New(candidates, scores)
	results, err := m.Match(context.Background(), domain.PreferenceRanking{1: "crit"}, "country1", nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "high", results[0].Location.ID)
	assert.Equal(t, "mid", results[1].Location.ID)
	assert.Equal(t, "low", results[2].Location.ID)
}

func TestMatchTiesKeepCandidateOrder(t *testing.T) {
	candidates := &fakeCandidates{all: []domain.Location{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
	}}
	scores := &fakeScores{records: map[string]map[string]domain.ScoreRecord{
		"a": {"crit": record("a", "crit", 3.0)},
		"b": {"crit": record("b", "crit", 3.0)},
	}}

	m := New(candidates, scores)
	results, err := m.Match(context.Background(), domain.PreferenceRanking{1: "crit"}, "country1", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Location.ID)
	assert.Equal(t, "b", results[1].Location.ID)
}

func TestMatchMissingRecordFallsBackToNeutral(t *testing.T) {
	candidates := &fakeCandidates{all: []domain.Location{{ID: "loc1", Name: "Nago"}}}
	scores := &fakeScores{records: map[string]map[string]domain.ScoreRecord{}}

	m := New(candidates, scores)
	results, err := m.Match(context.Background(), domain.PreferenceRanking{1: "critA", 2: "critB"}, "country1", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Both criteria resolve to the 3.0 neutral default.
	assert.InDelta(t, 3.0, results[0].Composite, 1e-9)
	assert.InDelta(t, 50.0, results[0].Percentage, 1e-9)
}

func TestMatchScopeFilter(t *testing.T) {
	north := "region-north"
	empty := "region-empty"
	candidates := &fakeCandidates{
		all: []domain.Location{{ID: "x"}, {ID: "y"}},
		byRegion: map[string][]domain.Location{
			north: {{ID: "x", Name: "X"}},
		},
	}
	scores := &fakeScores{records: map[string]map[string]domain.ScoreRecord{}}
	m := New(candidates, scores)

	results, err := m.Match(context.Background(), domain.PreferenceRanking{1: "crit"}, "country1", &north)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x", results[0].Location.ID)

	// Empty scope yields an empty result set, not an error.
	results, err = m.Match(context.Background(), domain.PreferenceRanking{1: "crit"}, "country1", &empty)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatchRejectsInvalidRankings(t *testing.T) {
	m := New(&fakeCandidates{}, &fakeScores{})

	tests := []struct {
		name    string
		ranking domain.PreferenceRanking
	}{
		{"empty", domain.PreferenceRanking{}},
		{"duplicate criterion", domain.PreferenceRanking{1: "critA", 2: "critA"}},
		{"non-contiguous ranks", domain.PreferenceRanking{1: "critA", 3: "critB"}},
		{"rank below one", domain.PreferenceRanking{0: "critA", 1: "critB"}},
		{"empty criterion", domain.PreferenceRanking{1: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Match(context.Background(), tt.ranking, "country1", nil)
			assert.Error(t, err)
		})
	}
}
