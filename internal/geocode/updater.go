package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/time/rate"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/repository"
)

// LocationSource is the slice of the locations repository the updater needs.
type LocationSource interface {
	ListWithoutCoordinates(ctx context.Context) ([]repository.UngeocodedLocation, error)
	UpdateCoordinates(ctx context.Context, id string, coords domain.Coordinates) error
}

// Updater backfills coordinates for locations that were imported without
// them. Lookups run under a rate limiter to stay polite to the upstream
// service; per-location failures are logged and skipped.
type Updater struct {
	locations LocationSource
	client    Client
	limiter   *rate.Limiter
	logger    *log.Logger
}

// NewUpdater constructs an Updater capped at one lookup per second.
func NewUpdater(locations LocationSource, client Client, logger *log.Logger) *Updater {
	if logger == nil {
		logger = log.Default()
	}
	return &Updater{
		locations: locations,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		logger:    logger,
	}
}

// Run walks every location still missing coordinates and reports how many
// were updated. A canceled context stops the walk between lookups.
func (u *Updater) Run(ctx context.Context) (int, error) {
	pending, err := u.locations.ListWithoutCoordinates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ungeocoded locations: %w", err)
	}
	if len(pending) == 0 {
		u.logger.Println("geocode: all locations already have coordinates")
		return 0, nil
	}
	u.logger.Printf("geocode: %d locations to update", len(pending))

	updated := 0
	for _, item := range pending {
		if err := u.limiter.Wait(ctx); err != nil {
			return updated, err
		}

		result, err := u.client.Lookup(ctx, buildQuery(item))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				u.logger.Printf("geocode: no result for %s", item.Location.Name)
			} else {
				u.logger.Printf("geocode: lookup failed for %s: %v", item.Location.Name, err)
			}
			continue
		}

		coords := domain.Coordinates{Latitude: result.Latitude, Longitude: result.Longitude}
		if err := u.locations.UpdateCoordinates(ctx, item.Location.ID, coords); err != nil {
			u.logger.Printf("geocode: save failed for %s: %v", item.Location.Name, err)
			continue
		}
		updated++
	}

	u.logger.Printf("geocode: updated %d of %d locations", updated, len(pending))
	return updated, nil
}

func buildQuery(item repository.UngeocodedLocation) string {
	if item.RegionName != nil && *item.RegionName != "" {
		return item.Location.Name + ", " + *item.RegionName
	}
	return item.Location.Name
}
