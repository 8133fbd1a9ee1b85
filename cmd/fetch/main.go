// Package main fetches daily klines into the local price series store.
// This is the optional data-acquisition path; the simulator itself never
// performs network I/O.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/replaylab/sim-backend/internal/config"
	"github.com/replaylab/sim-backend/internal/data"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	symbol := flag.String("symbol", "ETHUSDT", "Exchange symbol to fetch")
	storeAs := flag.String("store-as", "", "Symbol name to store the series under (defaults to the exchange symbol)")
	limit := flag.Int("limit", 365, "Number of daily bars to fetch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	store, err := data.NewStore(logger, cfg.Data.DataDir)
	if err != nil {
		logger.Fatal("Failed to initialize data store", zap.Error(err))
	}

	fetcher := data.NewFetcher(logger, cfg.Data.FetchBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	points, err := fetcher.FetchDaily(ctx, *symbol, *limit)
	if err != nil {
		logger.Fatal("Fetch failed", zap.String("symbol", *symbol), zap.Error(err))
	}

	validator := data.NewSeriesValidator(logger)
	report := validator.Validate(*symbol, points)
	if !report.IsUsable {
		logger.Fatal("Fetched series failed validation",
			zap.String("symbol", *symbol),
			zap.Int("issues", len(report.Issues)),
		)
	}

	name := *storeAs
	if name == "" {
		name = *symbol
	}
	if err := store.SaveSeries(name, points); err != nil {
		logger.Fatal("Failed to save series", zap.String("symbol", name), zap.Error(err))
	}

	logger.Info("Series saved",
		zap.String("symbol", name),
		zap.Int("bars", len(points)),
	)
}
