// Command chamu-import seeds the database from CSV feeds and backfills
// location coordinates. It shares the server's DB_URL configuration; each
// subcommand opens its own pool and closes it when done.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chamu-dev/chamu/internal/config"
	"github.com/chamu-dev/chamu/internal/geocode"
	"github.com/chamu-dev/chamu/internal/importer"
	"github.com/chamu-dev/chamu/internal/repository"
	"github.com/chamu-dev/chamu/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "[chamu-import] ", log.LstdFlags)

	root := &cobra.Command{
		Use:           "chamu-import",
		Short:         "Seed countries, locations, criteria, and scores from CSV feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		countriesCmd(logger),
		locationsCmd(logger),
		criteriaCmd(logger),
		scoresCmd(logger),
		coordinatesCmd(logger),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Fatalf("error: %v", err)
	}
}

// openRepository connects to the database configured via DB_URL.
func openRepository(ctx context.Context, logger *log.Logger) (*repository.Repository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	connCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DBConnTimeoutSecs)*time.Second)
	defer cancel()

	st, err := store.New(connCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return repository.New(st), st.Close, nil
}

func newImporter(repo *repository.Repository, logger *log.Logger) *importer.Importer {
	return importer.New(repo.Countries, repo.Locations, repo.Criteria, repo.Scores, logger)
}

func reportSummary(logger *log.Logger, name string, report importer.Report) {
	logger.Printf("%s: %d rows applied, %d skipped", name, report.Processed, len(report.Skipped))
	for _, issue := range report.Skipped {
		logger.Printf("%s: line %d skipped: %s", name, issue.Line, issue.Reason)
	}
}

func countriesCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "countries <file.csv>",
		Short: "Import countries from a (number, name) CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openRepository(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer closeFn()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := newImporter(repo, logger).ImportCountries(cmd.Context(), f)
			if err != nil {
				return err
			}
			reportSummary(logger, "countries", report)
			return nil
		},
	}
}

func locationsCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "locations <file.csv>",
		Short: "Import regions and municipalities from a (number, region, municipality) CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openRepository(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer closeFn()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := newImporter(repo, logger).ImportLocations(cmd.Context(), f)
			if err != nil {
				return err
			}
			reportSummary(logger, "locations", report)
			return nil
		},
	}
}

func criteriaCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "criteria <file.csv>",
		Short: "Import criteria from a (name, left_label, right_label[, reverse]) CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openRepository(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer closeFn()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := newImporter(repo, logger).ImportCriteria(cmd.Context(), f)
			if err != nil {
				return err
			}
			reportSummary(logger, "criteria", report)
			return nil
		},
	}
}

func scoresCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "scores <dir>",
		Short: "Import base scores from a directory of per-criterion CSVs",
		Long: "Each CSV in the directory holds the raw observations for one criterion; " +
			"the file name without extension must match the criterion name. " +
			"Values are rescaled onto the 1-5 scale relative to the file's own range.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openRepository(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer closeFn()

			files, err := filepath.Glob(filepath.Join(args[0], "*.csv"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no csv files in %s", args[0])
			}

			im := newImporter(repo, logger)
			for _, path := range files {
				criterionName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				report, err := im.ImportScores(cmd.Context(), criterionName, f)
				f.Close()
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				reportSummary(logger, criterionName, report)
			}
			return nil
		},
	}
}

func coordinatesCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "coordinates",
		Short: "Backfill coordinates for locations via the configured geocoder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.GeocoderURL == "" {
				return fmt.Errorf("GEOCODER_URL is required for the coordinates command")
			}

			repo, closeFn, err := openRepository(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer closeFn()

			client, err := geocode.NewHTTPClient(cfg.GeocoderURL, "chamu-import",
				time.Duration(cfg.GeocoderTimeoutSecs)*time.Second, logger)
			if err != nil {
				return err
			}

			updated, err := geocode.NewUpdater(repo.Locations, client, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.Printf("coordinates: %d locations updated", updated)
			return nil
		},
	}
}
