package domain

import "time"

// UserProfile identifies a participant: their country drives which score
// partition their evaluations feed, LocationID is where they currently
// live, TargetRegionID optionally narrows a matching flow.
type UserProfile struct {
	ID             string
	Name           string
	CountryID      *string
	LocationID     *string
	TargetRegionID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
