// Package importer consumes the CSV feeds that seed countries, locations,
// criteria, and base scores. Malformed rows are skipped with a diagnostic
// and collected into a per-run report; they never abort the batch.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/repository"
	"github.com/chamu-dev/chamu/internal/scoring"
)

// CountrySink is the slice of the countries repository the importer needs.
type CountrySink interface {
	GetOrCreate(ctx context.Context, name string) (domain.Country, error)
	Count(ctx context.Context) (int, error)
}

// LocationSink is the slice of the locations repository the importer needs.
type LocationSink interface {
	GetOrCreateRegion(ctx context.Context, name string) (domain.Region, error)
	Upsert(ctx context.Context, name string, regionID *string) (domain.Location, error)
}

// CriterionSink is the slice of the criteria repository the importer needs.
type CriterionSink interface {
	Upsert(ctx context.Context, params repository.CriterionUpsertParams) (domain.Criterion, error)
	GetByName(ctx context.Context, name string) (domain.Criterion, error)
}

// ScoreSink is the slice of the scores repository the importer needs.
type ScoreSink interface {
	UpsertBase(ctx context.Context, locationID, criterionID string, value float64) (int64, error)
}

// RowIssue records one skipped input row.
type RowIssue struct {
	Line   int
	Reason string
}

// Report summarizes one import run: rows applied and rows skipped.
type Report struct {
	Processed int
	Skipped   []RowIssue
}

func (r *Report) skip(line int, reason string) {
	r.Skipped = append(r.Skipped, RowIssue{Line: line, Reason: reason})
}

// Importer wires the CSV feeds to the repositories.
type Importer struct {
	countries CountrySink
	locations LocationSink
	criteria  CriterionSink
	scores    ScoreSink
	logger    *log.Logger
}

// New constructs an Importer.
func New(countries CountrySink, locations LocationSink, criteria CriterionSink, scores ScoreSink, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	return &Importer{countries: countries, locations: locations, criteria: criteria, scores: scores, logger: logger}
}

// ImportCountries reads (number, name) rows, creating countries as needed.
func (im *Importer) ImportCountries(ctx context.Context, r io.Reader) (Report, error) {
	var report Report
	err := forEachRow(r, func(line int, row []string) {
		if len(row) < 2 {
			report.skip(line, "expected 2 columns")
			return
		}
		name := strings.TrimSpace(row[1])
		if name == "" {
			report.skip(line, "empty country name")
			return
		}
		if _, err := im.countries.GetOrCreate(ctx, name); err != nil {
			report.skip(line, fmt.Sprintf("save country %q: %v", name, err))
			return
		}
		report.Processed++
	})
	return report, err
}

// ImportLocations reads (number, region, municipality) rows, upserting the
// region and the child location.
func (im *Importer) ImportLocations(ctx context.Context, r io.Reader) (Report, error) {
	var report Report
	err := forEachRow(r, func(line int, row []string) {
		if len(row) < 3 {
			report.skip(line, "expected 3 columns")
			return
		}
		regionName := strings.TrimSpace(row[1])
		locationName := strings.TrimSpace(row[2])
		if regionName == "" || locationName == "" {
			report.skip(line, "empty region or municipality name")
			return
		}
		region, err := im.locations.GetOrCreateRegion(ctx, regionName)
		if err != nil {
			report.skip(line, fmt.Sprintf("save region %q: %v", regionName, err))
			return
		}
		if _, err := im.locations.Upsert(ctx, locationName, &region.ID); err != nil {
			report.skip(line, fmt.Sprintf("save location %q: %v", locationName, err))
			return
		}
		report.Processed++
	})
	return report, err
}

// ImportCriteria reads (name, left_label, right_label[, reverse]) rows. A
// missing reverse column defaults to false.
func (im *Importer) ImportCriteria(ctx context.Context, r io.Reader) (Report, error) {
	var report Report
	err := forEachRow(r, func(line int, row []string) {
		if len(row) < 3 {
			report.skip(line, "expected at least 3 columns")
			return
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			report.skip(line, "empty criterion name")
			return
		}
		reverse := false
		if len(row) >= 4 {
			reverse = strings.EqualFold(strings.TrimSpace(row[3]), "true")
		}
		_, err := im.criteria.Upsert(ctx, repository.CriterionUpsertParams{
			Name:       name,
			LeftLabel:  strings.TrimSpace(row[1]),
			RightLabel: strings.TrimSpace(row[2]),
			Reverse:    reverse,
		})
		if err != nil {
			report.skip(line, fmt.Sprintf("save criterion %q: %v", name, err))
			return
		}
		report.Processed++
	})
	return report, err
}

type scoreRow struct {
	line     int
	location string
	raw      float64
}

// ImportScores reads one criterion's (_, _, municipality, raw_value) rows,
// normalizes them onto the 1-5 scale relative to the batch's own min/max,
// and upserts base scores for every country. Unknown municipalities are
// created on the fly; a batch needs at least one country and a seeded
// criterion to apply to.
func (im *Importer) ImportScores(ctx context.Context, criterionName string, r io.Reader) (Report, error) {
	var report Report

	n, err := im.countries.Count(ctx)
	if err != nil {
		return report, fmt.Errorf("count countries: %w", err)
	}
	if n == 0 {
		return report, fmt.Errorf("no countries in database; import countries first")
	}

	criterion, err := im.criteria.GetByName(ctx, criterionName)
	if err != nil {
		return report, fmt.Errorf("criterion %q: %w", criterionName, err)
	}

	var batch []scoreRow
	err = forEachRow(r, func(line int, row []string) {
		if len(row) < 4 {
			report.skip(line, "expected 4 columns")
			return
		}
		location := strings.TrimSpace(row[2])
		if location == "" {
			report.skip(line, "empty municipality name")
			return
		}
		raw, convErr := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if convErr != nil {
			report.skip(line, fmt.Sprintf("raw value %q is not numeric", strings.TrimSpace(row[3])))
			return
		}
		batch = append(batch, scoreRow{line: line, location: location, raw: raw})
	})
	if err != nil {
		return report, err
	}
	if len(batch) == 0 {
		return report, nil
	}

	// Normalization is batch-relative: min/max come from this feed, not
	// from fixed constants.
	min, max := batch[0].raw, batch[0].raw
	for _, row := range batch[1:] {
		if row.raw < min {
			min = row.raw
		}
		if row.raw > max {
			max = row.raw
		}
	}

	for _, row := range batch {
		loc, err := im.locations.Upsert(ctx, row.location, nil)
		if err != nil {
			report.skip(row.line, fmt.Sprintf("save location %q: %v", row.location, err))
			continue
		}
		value := scoring.Normalize(row.raw, min, max, criterion.Reverse)
		if _, err := im.scores.UpsertBase(ctx, loc.ID, criterion.ID, value); err != nil {
			report.skip(row.line, fmt.Sprintf("save score for %q: %v", row.location, err))
			continue
		}
		report.Processed++
	}

	im.logger.Printf("importer: criterion %q: %d scores applied, %d rows skipped",
		criterionName, report.Processed, len(report.Skipped))
	return report, nil
}

// forEachRow reads CSV rows after the header, tolerating ragged lines, and
// hands each to fn with its 1-based line number.
func forEachRow(r io.Reader, fn func(line int, row []string)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 {
			continue // header
		}
		fn(line, row)
	}
}
