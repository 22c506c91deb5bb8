// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// trainable is what the trainer needs from the recommender.
type trainable interface {
	Train(ctx context.Context) error
	LoadOrTrain(ctx context.Context) error
}

// TrainerConfig holds the training lifecycle settings.
type TrainerConfig struct {
	// TrainOnStartup trains or restores the models when the service
	// starts.
	TrainOnStartup bool

	// TrainInterval is how often to retrain. Zero or negative defaults
	// to 24h.
	TrainInterval time.Duration

	// TrainTimeout bounds a single training cycle.
	TrainTimeout time.Duration
}

// Trainer runs the training lifecycle under Suture supervision: an optional
// startup train (preferring snapshots), then periodic full retrains.
type Trainer struct {
	recommender trainable
	config      TrainerConfig
	logger      zerolog.Logger
}

// NewTrainer creates a trainer for the given recommender.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainer(recommender trainable, cfg TrainerConfig, logger zerolog.Logger) *Trainer {
	if cfg.TrainInterval <= 0 {
		cfg.TrainInterval = 24 * time.Hour
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = 30 * time.Minute
	}

	return &Trainer{
		recommender: recommender,
		config:      cfg,
		logger:      logger.With().Str("service", "trainer").Logger(),
	}
}

// Serve implements suture.Service.
func (t *Trainer) Serve(ctx context.Context) error {
	t.logger.Info().
		Bool("train_on_startup", t.config.TrainOnStartup).
		Dur("train_interval", t.config.TrainInterval).
		Msg("trainer starting")

	if t.config.TrainOnStartup {
		if err := t.cycle(ctx, t.recommender.LoadOrTrain); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Warn().Err(err).Msg("startup training failed, will retry on schedule")
		}
	}

	ticker := time.NewTicker(t.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("trainer shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := t.cycle(ctx, t.recommender.Train); err != nil && ctx.Err() == nil {
				t.logger.Warn().Err(err).Msg("scheduled training failed")
			}
		}
	}
}

func (t *Trainer) cycle(ctx context.Context, train func(context.Context) error) error {
	trainCtx, cancel := context.WithTimeout(ctx, t.config.TrainTimeout)
	defer cancel()

	start := time.Now()
	if err := train(trainCtx); err != nil {
		return err
	}

	t.logger.Info().Dur("took", time.Since(start)).Msg("training cycle complete")
	return nil
}

// String names the service in supervisor logs.
func (t *Trainer) String() string {
	return "recommender-trainer"
}
