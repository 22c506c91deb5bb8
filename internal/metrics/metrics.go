// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package metrics exposes Prometheus instrumentation for the recommender.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrainDuration observes how long engine training takes.
	TrainDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "readcircle",
		Subsystem: "recommender",
		Name:      "train_duration_seconds",
		Help:      "Time spent training a recommendation engine.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"engine"})

	// TrainRuns counts training attempts by outcome.
	TrainRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "readcircle",
		Subsystem: "recommender",
		Name:      "train_runs_total",
		Help:      "Training runs by engine and outcome.",
	}, []string{"engine", "status"})

	// Requests counts recommendation requests by operation.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "readcircle",
		Subsystem: "recommender",
		Name:      "requests_total",
		Help:      "Recommendation requests by operation and outcome.",
	}, []string{"operation", "status"})

	// SnapshotLoads counts snapshot restore attempts.
	SnapshotLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "readcircle",
		Subsystem: "recommender",
		Name:      "snapshot_loads_total",
		Help:      "Model snapshot loads by engine and outcome.",
	}, []string{"engine", "status"})

	// RatingsLoaded tracks the size of the current rating snapshot.
	RatingsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "readcircle",
		Subsystem: "recommender",
		Name:      "ratings_loaded",
		Help:      "Number of ratings in the active snapshot.",
	})
)

// Outcome label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
