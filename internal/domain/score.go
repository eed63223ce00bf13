package domain

import "time"

// ScoreRecord holds the three score values for one
// (location, country, criterion) triple. AvgScore is nil until at least one
// evaluation exists; FinalScore equals BaseScore until then.
type ScoreRecord struct {
	LocationID  string
	CountryID   string
	CriterionID string
	BaseScore   float64
	AvgScore    *float64
	FinalScore  float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Evaluation is one user's 1-5 rating of one location on one criterion.
// Rows are immutable; a resubmission replaces the user's prior rows for the
// same location.
type Evaluation struct {
	ID          string
	UserID      string
	LocationID  string
	CriterionID string
	Score       int
	CreatedAt   time.Time
}
