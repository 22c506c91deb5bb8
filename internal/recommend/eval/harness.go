// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package eval

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/readcircle/recommender/internal/dataset"
	"github.com/readcircle/recommender/internal/library"
	"github.com/readcircle/recommender/internal/recommend"
)

// Harness runs leave-one-out evaluations of the item-based engine over a
// rating snapshot.
type Harness struct {
	topN   int
	seed   int64
	logger zerolog.Logger
}

// NewHarness creates a harness recommending topN books per reader, with all
// randomness derived from seed.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHarness(topN int, seed int64, logger zerolog.Logger) *Harness {
	if topN <= 0 {
		topN = 10
	}
	return &Harness{
		topN:   topN,
		seed:   seed,
		logger: logger.With().Str("component", "eval").Logger(),
	}
}

// EvaluateItemCF trains an item-based engine on the training split and
// scores its recommendations for every test reader.
//
// A reader whose recommendation request fails is scored with an empty list
// rather than failing the run; a model that cannot be trained at all fails
// the run.
func (h *Harness) EvaluateItemCF(ctx context.Context, ratings []dataset.Rating, cfg recommend.ItemCFConfig, threshold int) (Result, error) {
	train, test := LeaveOneOut(ratings, h.seed)
	if len(test) == 0 {
		return Result{}, fmt.Errorf("%w: no reader has enough ratings to hold one out", recommend.ErrDegenerateInput)
	}

	filtered := dataset.FilterRatings(train, threshold)
	ts := dataset.NewTrainset(filtered)

	engine := recommend.NewItemCF(cfg)
	if err := engine.Train(ctx, ts); err != nil {
		return Result{}, fmt.Errorf("train itemcf: %w", err)
	}

	pop := recommend.NewPopularityEngine(recommend.DefaultPopularityConfig())
	if err := pop.Train(ctx, ts); err != nil {
		return Result{}, fmt.Errorf("train popularity baseline: %w", err)
	}
	popRanking, err := pop.Ranking()
	if err != nil {
		return Result{}, err
	}
	ranking := make([]string, len(popRanking))
	for i, s := range popRanking {
		ranking[i] = s.ItemID
	}

	lib := library.New(ts, nil)

	recs := make(map[string][]string, len(test))
	for _, held := range test {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		history, ok := lib.RatingsForUser(held.UserID)
		if !ok {
			recs[held.UserID] = nil
			continue
		}

		exclude := make(map[string]struct{}, len(history))
		for _, r := range history {
			exclude[r.ItemID] = struct{}{}
		}

		scored, err := engine.RecommendFromHistory(ctx, history, exclude, h.topN)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Result{}, err
			}
			h.logger.Warn().Err(err).Str("user", held.UserID).Msg("recommendation failed during evaluation")
			recs[held.UserID] = nil
			continue
		}

		ids := make([]string, len(scored))
		for i, s := range scored {
			ids[i] = s.ItemID
		}
		recs[held.UserID] = ids
	}

	return Evaluate(recs, test, ranking), nil
}

// SweepRun is the outcome of one parameter combination in a sweep.
type SweepRun struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params"`
	Result Result         `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// Sweep evaluates every combination in the grid and returns one run per
// combination, in grid order.
//
// Recognized parameters: "threshold" (int), "min_support" (int),
// "similarity" (string). A combination whose model cannot be trained is
// recorded with its error and the sweep continues.
func (h *Harness) Sweep(ctx context.Context, ratings []dataset.Rating, grid Grid) ([]SweepRun, error) {
	combos := Combinations(grid)
	runs := make([]SweepRun, 0, len(combos))

	for _, params := range combos {
		if err := ctx.Err(); err != nil {
			return runs, err
		}

		run := SweepRun{ID: uuid.NewString(), Params: params}

		cfg := recommend.DefaultItemCFConfig()
		threshold := 1
		if v, ok := intParam(params, "min_support"); ok {
			cfg.MinSupport = v
		}
		if v, ok := stringParam(params, "similarity"); ok {
			cfg.Similarity = v
		}
		if v, ok := intParam(params, "threshold"); ok {
			threshold = v
		}

		result, err := h.EvaluateItemCF(ctx, ratings, cfg, threshold)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return runs, err
			}
			run.Error = err.Error()
			h.logger.Warn().Err(err).Interface("params", params).Msg("sweep combination failed")
		} else {
			run.Result = result
			h.logger.Info().
				Str("run", run.ID).
				Interface("params", params).
				Float64("hit_rate", result.HitRate).
				Float64("f1", result.F1).
				Msg("sweep combination evaluated")
		}

		runs = append(runs, run)
	}

	return runs, nil
}

func intParam(params map[string]any, name string) (int, bool) {
	switch v := params[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func stringParam(params map[string]any, name string) (string, bool) {
	v, ok := params[name].(string)
	return v, ok
}
