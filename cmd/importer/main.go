// Command importer pulls the Wi-Fi point listing from the municipal
// open-data endpoint and upserts it into the database. Designed to run
// from cron; re-running it is safe because points are keyed on their
// coordinates and rating history is never touched.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wifinder/wifinder/internal/config"
	"github.com/wifinder/wifinder/internal/logging"
	"github.com/wifinder/wifinder/internal/opendata"
	"github.com/wifinder/wifinder/internal/repository"
	"github.com/wifinder/wifinder/internal/store"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall time budget for one import run")
	dryRun := flag.Bool("dry-run", false, "fetch and report, but do not write to the database")
	flag.Parse()

	bootLog := logging.New("info", "json", os.Stderr)

	if err := godotenv.Load(); err != nil {
		bootLog.Debug().Msg("no .env file found, relying on the environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := opendata.NewHTTPClient(cfg.OpenData.URL, cfg.OpenData.APIKey, cfg.OpenData.Timeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init open-data client")
	}

	records, err := client.Fetch(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("fetch open-data points")
	}
	logger.Info().Int("records", len(records)).Msg("fetched open-data points")

	if *dryRun {
		logger.Info().Msg("dry run, skipping database writes")
		return
	}

	st, err := store.New(ctx, cfg.Database.URL, store.Options{
		MaxConns:               cfg.Database.MaxConns,
		MinConns:               cfg.Database.MinConns,
		MaxConnIdleTime:        cfg.Database.MaxConnIdleTime,
		MaxConnLifetime:        cfg.Database.MaxConnLifetime,
		ConnTimeout:            cfg.Database.ConnTimeout,
		StatementCacheCapacity: cfg.Database.StatementCacheCapacity,
		Logger:                 logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	repo := repository.New(st)

	var inserted, updated, failed int
	for _, rec := range records {
		_, created, err := repo.Points.SavePoint(ctx, repository.SavePointParams{
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
			Address:   rec.Address,
		})
		if err != nil {
			failed++
			logger.Error().Err(err).
				Float64("lat", rec.Latitude).
				Float64("lon", rec.Longitude).
				Msg("save point failed")
			continue
		}
		if created {
			inserted++
		} else {
			updated++
		}
	}

	logger.Info().
		Int("inserted", inserted).
		Int("updated", updated).
		Int("failed", failed).
		Msg("import finished")
	if failed > 0 {
		os.Exit(1)
	}
}
