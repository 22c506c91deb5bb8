// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Command recommender runs the ReadCircle recommendation service: it loads
// the rating snapshot, trains (or restores) the engines, keeps them fresh on
// a schedule and exposes Prometheus metrics. With -evaluate it runs an
// offline parameter sweep instead and prints the results as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/readcircle/recommender/internal/config"
	"github.com/readcircle/recommender/internal/dataset"
	"github.com/readcircle/recommender/internal/logging"
	"github.com/readcircle/recommender/internal/recommend"
	"github.com/readcircle/recommender/internal/recommend/eval"
	"github.com/readcircle/recommender/internal/recommend/storage"
	"github.com/readcircle/recommender/internal/service"
)

func main() {
	evaluate := flag.Bool("evaluate", false, "run an offline evaluation sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging)
	logger := logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *evaluate); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("recommender failed")
	}
}

func run(ctx context.Context, cfg *config.Config, evaluate bool) error {
	logger := logging.Logger()

	ratings, metadata, cleanup, err := openSources(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if evaluate {
		return runSweep(ctx, cfg, ratings)
	}

	provider := dataset.NewProvider(ratings, logger)

	var members service.MembershipProvider
	if cfg.Data.ClubsCSV != "" {
		members, err = service.LoadMembershipCSV(cfg.Data.ClubsCSV)
		if err != nil {
			return fmt.Errorf("load club membership: %w", err)
		}
	}

	store, storeCleanup, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer storeCleanup()

	recommender := service.New(
		service.Config{
			TopN:         cfg.Service.TopN,
			Threshold:    cfg.Engines.ItemCF.Threshold,
			SnapshotKeep: cfg.Snapshots.Keep,
		},
		provider,
		metadata,
		members,
		recommend.NewItemCF(recommend.ItemCFConfig{
			Similarity: cfg.Engines.ItemCF.Similarity,
			MinSupport: cfg.Engines.ItemCF.MinSupport,
		}),
		recommend.NewContentEngine(recommend.ContentConfig{
			UsePublicationYear: cfg.Engines.Content.UsePublicationYear,
		}),
		recommend.NewPopularityEngine(recommend.PopularityConfig{
			Method: cfg.Engines.Popularity.Method,
		}),
		store,
		logger,
	)

	interval, err := trainInterval(cfg.Training.Interval)
	if err != nil {
		return err
	}
	trainer := service.NewTrainer(recommender, service.TrainerConfig{
		TrainOnStartup: cfg.Training.OnStartup,
		TrainInterval:  interval,
	}, logger)

	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	root := suture.New("readcircle-recommender", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	root.Add(trainer)

	if cfg.Metrics.Addr != "" {
		root.Add(newMetricsServer(cfg.Metrics.Addr))
	}

	logger.Info().Msg("recommender starting")
	return root.Serve(ctx)
}

// openSources builds the rating and metadata sources from the data section.
// The database wins over CSV for ratings; for metadata the precedence is
// CSV, then JSON, then the database's books table.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openSources(cfg *config.Config, logger zerolog.Logger) (dataset.RatingSource, dataset.MetadataSource, func(), error) {
	cleanup := func() {}

	if cfg.Data.RatingsDB != "" {
		sqlSource, err := dataset.OpenSQLSource(cfg.Data.RatingsDB, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open rating database: %w", err)
		}
		cleanup = func() { _ = sqlSource.Close() }

		var metadata dataset.MetadataSource = sqlSource
		switch {
		case cfg.Data.BooksCSV != "":
			metadata = dataset.NewCSVMetadataSource(cfg.Data.BooksCSV, logger)
		case cfg.Data.BooksJSON != "":
			metadata = dataset.NewJSONMetadataSource(cfg.Data.BooksJSON, logger)
		}
		return sqlSource, metadata, cleanup, nil
	}

	ratings := dataset.NewCSVRatingSource(cfg.Data.RatingsCSV, logger)

	var metadata dataset.MetadataSource
	switch {
	case cfg.Data.BooksCSV != "":
		metadata = dataset.NewCSVMetadataSource(cfg.Data.BooksCSV, logger)
	case cfg.Data.BooksJSON != "":
		metadata = dataset.NewJSONMetadataSource(cfg.Data.BooksJSON, logger)
	}
	return ratings, metadata, cleanup, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func openStore(cfg *config.Config, logger zerolog.Logger) (storage.Store, func(), error) {
	switch cfg.Snapshots.Backend {
	case "file":
		store, err := storage.NewFileStore(cfg.Snapshots.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot store: %w", err)
		}
		return store, func() {}, nil
	case "badger":
		store, err := storage.NewBadgerStore(cfg.Snapshots.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func trainInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse training interval %q: %w", raw, err)
	}
	return interval, nil
}

// runSweep evaluates the item-based engine over a small parameter grid and
// prints one JSON document with every run.
func runSweep(ctx context.Context, cfg *config.Config, source dataset.RatingSource) error {
	logger := logging.Logger()

	ratings, err := source.Ratings(ctx)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}

	grid := eval.Grid{
		"similarity":  {recommend.SimilarityPearson, recommend.SimilarityCosine},
		"min_support": {cfg.Engines.ItemCF.MinSupport},
		"threshold":   {1, cfg.Engines.ItemCF.Threshold},
	}

	harness := eval.NewHarness(cfg.Evaluation.TopN, cfg.Evaluation.Seed, logger)
	runs, err := harness.Sweep(ctx, ratings, grid)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

// metricsServer serves the Prometheus endpoint under Suture supervision.
type metricsServer struct {
	addr string
}

func newMetricsServer(addr string) *metricsServer {
	return &metricsServer{addr: addr}
}

func (m *metricsServer) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              m.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (m *metricsServer) String() string {
	return "metrics-server"
}
