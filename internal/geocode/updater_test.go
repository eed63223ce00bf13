package geocode

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/repository"
)

type fakeLocations struct {
	pending []repository.UngeocodedLocation
	saved   map[string]domain.Coordinates
}

func (f *fakeLocations) ListWithoutCoordinates(_ context.Context) ([]repository.UngeocodedLocation, error) {
	return f.pending, nil
}

func (f *fakeLocations) UpdateCoordinates(_ context.Context, id string, coords domain.Coordinates) error {
	if f.saved == nil {
		f.saved = make(map[string]domain.Coordinates)
	}
	f.saved[id] = coords
	return nil
}

type fakeClient struct {
	results map[string]*Result
	queries []string
}

func (f *fakeClient) Lookup(_ context.Context, query string) (*Result, error) {
	f.queries = append(f.queries, query)
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func strPtr(s string) *string { return &s }

func TestUpdaterRun(t *testing.T) {
	locations := &fakeLocations{
		pending: []repository.UngeocodedLocation{
			{Location: domain.Location{ID: "a", Name: "Naha"}, RegionName: strPtr("Okinawa")},
			{Location: domain.Location{ID: "b", Name: "Nago"}, RegionName: strPtr("Okinawa")},
			{Location: domain.Location{ID: "c", Name: "Lost Village"}},
		},
	}
	client := &fakeClient{
		results: map[string]*Result{
			"Naha, Okinawa": {Latitude: 26.2124, Longitude: 127.6809},
			"Nago, Okinawa": {Latitude: 26.5917, Longitude: 127.9774},
		},
	}

	updater := NewUpdater(locations, client, log.New(io.Discard, "", 0))
	updated, err := updater.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// The unresolvable location is skipped, not fatal.
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}
	if got := locations.saved["a"].Latitude; got != 26.2124 {
		t.Fatalf("saved latitude = %v, want 26.2124", got)
	}
	if _, ok := locations.saved["c"]; ok {
		t.Fatalf("location without a geocoder result must stay untouched")
	}

	// Queries include the region when known, bare name otherwise.
	if client.queries[0] != "Naha, Okinawa" {
		t.Fatalf("first query = %q", client.queries[0])
	}
	if client.queries[2] != "Lost Village" {
		t.Fatalf("region-less query = %q", client.queries[2])
	}
}

func TestUpdaterRunCanceled(t *testing.T) {
	locations := &fakeLocations{
		pending: []repository.UngeocodedLocation{
			{Location: domain.Location{ID: "a", Name: "Naha"}},
			{Location: domain.Location{ID: "b", Name: "Nago"}},
		},
	}
	client := &fakeClient{results: map[string]*Result{"Naha": {Latitude: 1, Longitude: 2}}}

	ctx, cancel := context.WithCancel(context.Background())
	updater := NewUpdater(locations, client, log.New(io.Discard, "", 0))

	cancel()
	_, err := updater.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
