package domain

import "time"

// Region is the top level of the administrative hierarchy.
type Region struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Coordinates holds a geocoded point for a location.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location represents a municipality. RegionID is nil for top-level
// locations; Coordinates is nil until the geocoding job fills it in.
type Location struct {
	ID          string
	Name        string
	RegionID    *string
	Coordinates *Coordinates
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Country partitions scores: the same location carries separate score
// records per country because evaluation populations differ.
type Country struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
