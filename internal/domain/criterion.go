package domain

import (
	"strings"
	"time"
)

// Criterion is one evaluation axis (e.g. cost of living). When Reverse is
// true a higher raw or user value means a worse outcome, and normalization
// flips the scale.
type Criterion struct {
	ID         string
	Name       string
	Slug       string
	LeftLabel  string
	RightLabel string
	Reverse    bool
	CreatedAt  time.Time
}

// Slugify derives the URL-safe identifier used for a criterion.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
