// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/readcircle/recommender/internal/dataset"
	"github.com/readcircle/recommender/internal/library"
	"github.com/readcircle/recommender/internal/recommend/storage"
)

// Popularity aggregation methods.
const (
	MethodAverage     = "average"
	MethodMedian      = "median"
	MethodCombination = "combination"
)

// PopularityConfig configures the popularity engine.
type PopularityConfig struct {
	// Method selects the aggregation: "average", "median" or
	// "combination" (geometric mean of the two).
	Method string
}

// DefaultPopularityConfig returns the default popularity configuration.
func DefaultPopularityConfig() PopularityConfig {
	return PopularityConfig{Method: MethodCombination}
}

// PopularityEngine ranks the whole catalogue by aggregate rating. It is the
// baseline every other engine is measured against, and the fallback when a
// reader has no usable history.
type PopularityEngine struct {
	BaseEngine
	config  PopularityConfig
	ranking []Scored
}

// NewPopularityEngine creates a popularity engine with the given
// configuration.
func NewPopularityEngine(cfg PopularityConfig) *PopularityEngine {
	if cfg.Method == "" {
		cfg.Method = MethodCombination
	}

	return &PopularityEngine{
		BaseEngine: NewBaseEngine("popularity"),
		config:     cfg,
	}
}

// Train aggregates ratings per book and ranks the catalogue. Ties keep the
// trainset's first-seen book order, so the ranking is deterministic for a
// given rating snapshot.
func (e *PopularityEngine) Train(ctx context.Context, ts *dataset.Trainset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ts.NumItems() == 0 {
		return fmt.Errorf("%w: no rated books", ErrDegenerateInput)
	}

	ranking := make([]Scored, 0, ts.NumItems())
	for i := 0; i < ts.NumItems(); i++ {
		scores := make([]float64, 0, len(ts.ItemRatings(i)))
		for _, r := range ts.ItemRatings(i) {
			scores = append(scores, r.Score)
		}
		ranking = append(ranking, Scored{
			ItemID: ts.RawItem(i),
			Score:  e.aggregate(scores),
		})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})

	e.acquireTrainLock()
	defer e.releaseTrainLock()
	e.ranking = ranking
	e.markTrained()
	return nil
}

func (e *PopularityEngine) aggregate(scores []float64) float64 {
	switch e.config.Method {
	case MethodAverage:
		return mean(scores)
	case MethodMedian:
		return median(scores)
	default:
		return math.Sqrt(mean(scores) * median(scores))
	}
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// median sorts a copy; rating lists per book are short.
func median(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Ranking returns a copy of the full catalogue ranking, most popular first.
func (e *PopularityEngine) Ranking() ([]Scored, error) {
	e.acquirePredictLock()
	defer e.releasePredictLock()

	if e.ranking == nil {
		return nil, ErrModelUnavailable
	}

	out := make([]Scored, len(e.ranking))
	copy(out, e.ranking)
	return out, nil
}

// RecommendFromHistory walks the ranking top-down, skipping excluded books
// and books with a non-positive aggregate. The history's scores do not
// influence the order; it only matters through the exclusion set the caller
// derives from it.
func (e *PopularityEngine) RecommendFromHistory(ctx context.Context, _ []library.RatedItem, exclude map[string]struct{}, n int) ([]Scored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.acquirePredictLock()
	ranking := e.ranking
	e.releasePredictLock()

	if ranking == nil {
		return nil, ErrModelUnavailable
	}

	size := n
	if size <= 0 || size > len(ranking) {
		size = len(ranking)
	}
	out := make([]Scored, 0, size)
	for _, s := range ranking {
		if _, skip := exclude[s.ItemID]; skip {
			continue
		}
		if s.Score <= 0 {
			continue
		}
		out = append(out, s)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

// Snapshot captures the trained ranking for persistence.
func (e *PopularityEngine) Snapshot() (storage.PopularityModelState, error) {
	e.acquirePredictLock()
	defer e.releasePredictLock()

	if e.ranking == nil {
		return storage.PopularityModelState{}, ErrModelUnavailable
	}

	ids := make([]string, len(e.ranking))
	scores := make([]float64, len(e.ranking))
	for i, s := range e.ranking {
		ids[i] = s.ItemID
		scores[i] = s.Score
	}

	return storage.PopularityModelState{
		FormatVersion: storage.CurrentFormatVersion,
		Version:       e.version,
		TrainedAt:     e.lastTrainedAt,
		ItemIDs:       ids,
		Scores:        scores,
	}, nil
}

// LoadSnapshot restores a persisted ranking, replacing any current one.
func (e *PopularityEngine) LoadSnapshot(state storage.PopularityModelState) error {
	if state.FormatVersion != storage.CurrentFormatVersion {
		return fmt.Errorf("popularity snapshot: unsupported format version %d", state.FormatVersion)
	}
	if len(state.ItemIDs) != len(state.Scores) {
		return fmt.Errorf("popularity snapshot: %d ids for %d scores", len(state.ItemIDs), len(state.Scores))
	}

	ranking := make([]Scored, len(state.ItemIDs))
	for i := range state.ItemIDs {
		ranking[i] = Scored{ItemID: state.ItemIDs[i], Score: state.Scores[i]}
	}

	e.acquireTrainLock()
	defer e.releaseTrainLock()
	e.ranking = ranking
	e.markRestored(state.Version, trainedAtOrNow(state.TrainedAt))
	return nil
}

var _ Engine = (*PopularityEngine)(nil)
