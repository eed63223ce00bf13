package importer

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/repository"
)

type fakeStore struct {
	countries map[string]domain.Country
	regions   map[string]domain.Region
	locations map[string]domain.Location
	criteria  map[string]domain.Criterion
	scores    map[string]float64 // locationID|criterionID -> base
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		countries: make(map[string]domain.Country),
		regions:   make(map[string]domain.Region),
		locations: make(map[string]domain.Location),
		criteria:  make(map[string]domain.Criterion),
		scores:    make(map[string]float64),
	}
}

func (f *fakeStore) GetOrCreate(_ context.Context, name string) (domain.Country, error) {
	if c, ok := f.countries[name]; ok {
		return c, nil
	}
	c := domain.Country{ID: "country-" + name, Name: name}
	f.countries[name] = c
	return c, nil
}

func (f *fakeStore) Count(_ context.Context) (int, error) {
	return len(f.countries), nil
}

func (f *fakeStore) GetOrCreateRegion(_ context.Context, name string) (domain.Region, error) {
	if r, ok := f.regions[name]; ok {
		return r, nil
	}
	r := domain.Region{ID: "region-" + name, Name: name}
	f.regions[name] = r
	return r, nil
}

func (f *fakeStore) Upsert(_ context.Context, name string, regionID *string) (domain.Location, error) {
	if loc, ok := f.locations[name]; ok {
		if loc.RegionID == nil && regionID != nil {
			loc.RegionID = regionID
			f.locations[name] = loc
		}
		return loc, nil
	}
	loc := domain.Location{ID: "loc-" + name, Name: name, RegionID: regionID}
	f.locations[name] = loc
	return loc, nil
}

func (f *fakeStore) UpsertCriterion(_ context.Context, params repository.CriterionUpsertParams) (domain.Criterion, error) {
	c := domain.Criterion{
		ID:         "crit-" + params.Name,
		Name:       params.Name,
		Slug:       domain.Slugify(params.Name),
		LeftLabel:  params.LeftLabel,
		RightLabel: params.RightLabel,
		Reverse:    params.Reverse,
	}
	f.criteria[params.Name] = c
	return c, nil
}

func (f *fakeStore) GetByName(_ context.Context, name string) (domain.Criterion, error) {
	if c, ok := f.criteria[name]; ok {
		return c, nil
	}
	return domain.Criterion{}, repository.ErrNotFound
}

func (f *fakeStore) UpsertBase(_ context.Context, locationID, criterionID string, value float64) (int64, error) {
	f.scores[locationID+"|"+criterionID] = value
	return int64(len(f.countries)), nil
}

// criterionSink adapts fakeStore to the CriterionSink interface (the fake's
// Upsert is taken by locations).
type criterionSink struct{ *fakeStore }

func (s criterionSink) Upsert(ctx context.Context, params repository.CriterionUpsertParams) (domain.Criterion, error) {
	return s.UpsertCriterion(ctx, params)
}

func newTestImporter(f *fakeStore) *Importer {
	return New(f, f, criterionSink{f}, f, log.New(io.Discard, "", 0))
}

func TestImportCountries(t *testing.T) {
	f := newFakeStore()
	im := newTestImporter(f)

	csvData := "Number,Name\n1,Vietnam\n2,Korea\n3\n4,\n"
	report, err := im.ImportCountries(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Len(t, report.Skipped, 2)
	assert.Contains(t, f.countries, "Vietnam")
	assert.Contains(t, f.countries, "Korea")
}

func TestImportLocations(t *testing.T) {
	f := newFakeStore()
	im := newTestImporter(f)

	csvData := "Number,Region,Municipality\n1,Okinawa,Naha\n2,Okinawa,Nago\n3,broken\n"
	report, err := im.ImportLocations(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Len(t, report.Skipped, 1)

	loc := f.locations["Naha"]
	require.NotNil(t, loc.RegionID)
	assert.Equal(t, "region-Okinawa", *loc.RegionID)
}

func TestImportCriteria(t *testing.T) {
	f := newFakeStore()
	im := newTestImporter(f)

	csvData := "Name,Left,Right,Reverse\nCost of living,Cheap,Expensive,\nCrime rate,Low,High,true\n"
	report, err := im.ImportCriteria(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.False(t, f.criteria["Cost of living"].Reverse)
	assert.True(t, f.criteria["Crime rate"].Reverse)
	assert.Equal(t, "cost-of-living", f.criteria["Cost of living"].Slug)
}

func TestImportScoresNormalizesBatchRelative(t *testing.T) {
	f := newFakeStore()
	_, _ = f.GetOrCreate(context.Background(), "Vietnam")
	_, _ = f.UpsertCriterion(context.Background(), repository.CriterionUpsertParams{Name: "Cost of living"})
	im := newTestImporter(f)

	csvData := "No,Pref,Municipality,Raw\n1,x,Naha,0\n2,x,Nago,50\n3,x,Itoman,100\n4,x,Ginowan,abc\n"
	report, err := im.ImportScores(context.Background(), "Cost of living", strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "not numeric")

	// Batch min=0, max=100: endpoints map to 1 and 5, midpoint to 3.
	assert.InDelta(t, 1.0, f.scores["loc-Naha|crit-Cost of living"], 1e-9)
	assert.InDelta(t, 3.0, f.scores["loc-Nago|crit-Cost of living"], 1e-9)
	assert.InDelta(t, 5.0, f.scores["loc-Itoman|crit-Cost of living"], 1e-9)
}

func TestImportScoresReverseCriterion(t *testing.T) {
	f := newFakeStore()
	_, _ = f.GetOrCreate(context.Background(), "Vietnam")
	_, _ = f.UpsertCriterion(context.Background(), repository.CriterionUpsertParams{Name: "Crime rate", Reverse: true})
	im := newTestImporter(f)

	csvData := "No,Pref,Municipality,Raw\n1,x,Safe Town,0\n2,x,Rough Town,100\n"
	_, err := im.ImportScores(context.Background(), "Crime rate", strings.NewReader(csvData))
	require.NoError(t, err)

	// Higher raw crime is a worse outcome: the scale is flipped.
	assert.InDelta(t, 5.0, f.scores["loc-Safe Town|crit-Crime rate"], 1e-9)
	assert.InDelta(t, 1.0, f.scores["loc-Rough Town|crit-Crime rate"], 1e-9)
}

func TestImportScoresRequiresCountriesAndCriterion(t *testing.T) {
	f := newFakeStore()
	im := newTestImporter(f)

	_, err := im.ImportScores(context.Background(), "Cost of living", strings.NewReader("h\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "countries")

	_, _ = f.GetOrCreate(context.Background(), "Vietnam")
	_, err = im.ImportScores(context.Background(), "Unknown", strings.NewReader("h\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestImportScoresIdenticalObservations(t *testing.T) {
	f := newFakeStore()
	_, _ = f.GetOrCreate(context.Background(), "Vietnam")
	_, _ = f.UpsertCriterion(context.Background(), repository.CriterionUpsertParams{Name: "Temperature"})
	im := newTestImporter(f)

	csvData := "No,Pref,Municipality,Raw\n1,x,A,40\n2,x,B,40\n"
	report, err := im.ImportScores(context.Background(), "Temperature", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)

	// Degenerate range: every location gets the 1.0 floor.
	assert.InDelta(t, 1.0, f.scores["loc-A|crit-Temperature"], 1e-9)
	assert.InDelta(t, 1.0, f.scores["loc-B|crit-Temperature"], 1e-9)
}
