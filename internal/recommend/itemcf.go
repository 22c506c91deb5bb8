// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/readcircle/recommender/internal/dataset"
	"github.com/readcircle/recommender/internal/library"
	"github.com/readcircle/recommender/internal/recommend/storage"
)

// SimilarityPearson and SimilarityCosine are the supported similarity
// metrics for the item-based engine. Both are computed over the readers two
// books have in common.
const (
	SimilarityPearson = "pearson"
	SimilarityCosine  = "cosine"
)

// ItemCFConfig configures the item-based collaborative filtering engine.
type ItemCFConfig struct {
	// Similarity selects the metric: "pearson" or "cosine".
	Similarity string

	// MinSupport is the minimum number of co-rating readers required for
	// a book pair to receive a non-zero similarity.
	MinSupport int
}

// DefaultItemCFConfig returns the default item-based configuration.
func DefaultItemCFConfig() ItemCFConfig {
	return ItemCFConfig{
		Similarity: SimilarityPearson,
		MinSupport: 2,
	}
}

// itemModel is an immutable trained similarity matrix. Recommendation reads
// it without further locking; retraining swaps in a fresh model.
type itemModel struct {
	itemIndex map[string]int
	itemIDs   []string
	sim       [][]float64
}

// ItemCF implements item-based collaborative filtering. Two books are
// similar when the readers they share rated them alike; a reader's history
// then pulls in the nearest neighbours of the books they enjoyed.
type ItemCF struct {
	BaseEngine
	config ItemCFConfig
	model  *itemModel
}

// NewItemCF creates an item-based engine with the given configuration.
func NewItemCF(cfg ItemCFConfig) *ItemCF {
	if cfg.Similarity == "" {
		cfg.Similarity = SimilarityPearson
	}
	if cfg.MinSupport <= 0 {
		cfg.MinSupport = 2
	}

	return &ItemCF{
		BaseEngine: NewBaseEngine("itemcf"),
		config:     cfg,
	}
}

// Train fits the similarity matrix from the trainset. The previous model
// stays in service until the new one is complete.
func (e *ItemCF) Train(ctx context.Context, ts *dataset.Trainset) error {
	if ts.NumUsers() == 0 || ts.NumItems() == 0 {
		return fmt.Errorf("%w: empty trainset", ErrDegenerateInput)
	}

	model, err := e.buildModel(ctx, ts)
	if err != nil {
		return err
	}

	e.acquireTrainLock()
	defer e.releaseTrainLock()
	e.model = model
	e.markTrained()
	return nil
}

func (e *ItemCF) buildModel(ctx context.Context, ts *dataset.Trainset) (*itemModel, error) {
	numItems := ts.NumItems()

	// Dense per-item rating vectors keyed by inner user index.
	vectors := make([]map[int]float64, numItems)
	for i := 0; i < numItems; i++ {
		vec := make(map[int]float64)
		for _, r := range ts.ItemRatings(i) {
			vec[r.Index] = r.Score
		}
		vectors[i] = vec
	}

	sim := make([][]float64, numItems)
	for i := range sim {
		sim[i] = make([]float64, numItems)
		sim[i][i] = 1
	}

	for i := 0; i < numItems; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < numItems; j++ {
			s := e.similarity(vectors[i], vectors[j])
			sim[i][j] = s
			sim[j][i] = s
		}
	}

	itemIndex := make(map[string]int, numItems)
	itemIDs := make([]string, numItems)
	for i := 0; i < numItems; i++ {
		id := ts.RawItem(i)
		itemIndex[id] = i
		itemIDs[i] = id
	}

	return &itemModel{itemIndex: itemIndex, itemIDs: itemIDs, sim: sim}, nil
}

// similarity computes the configured metric over the readers both books
// share. Pairs with fewer than MinSupport co-rating readers score zero.
func (e *ItemCF) similarity(a, b map[int]float64) float64 {
	small, large := a, b
	swapped := false
	if len(large) < len(small) {
		small, large = large, small
		swapped = true
	}

	var xs, ys []float64
	for user, x := range small {
		y, ok := large[user]
		if !ok {
			continue
		}
		if swapped {
			x, y = y, x
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	if len(xs) < e.config.MinSupport {
		return 0
	}

	if e.config.Similarity == SimilarityCosine {
		return cosine(xs, ys)
	}
	return pearson(xs, ys)
}

// cosine is the cosine of the angle between the two co-rating vectors.
func cosine(xs, ys []float64) float64 {
	var dot, nx, ny float64
	for k := range xs {
		dot += xs[k] * ys[k]
		nx += xs[k] * xs[k]
		ny += ys[k] * ys[k]
	}
	if nx == 0 || ny == 0 {
		return 0
	}
	return dot / (math.Sqrt(nx) * math.Sqrt(ny))
}

// pearson centers each vector on its mean over the common readers before
// taking the cosine, so books rated on different personal scales still
// correlate.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sx, sy float64
	for k := range xs {
		sx += xs[k]
		sy += ys[k]
	}
	mx, my := sx/n, sy/n

	var dot, nx, ny float64
	for k := range xs {
		dx, dy := xs[k]-mx, ys[k]-my
		dot += dx * dy
		nx += dx * dx
		ny += dy * dy
	}
	if nx == 0 || ny == 0 {
		return 0
	}
	return dot / (math.Sqrt(nx) * math.Sqrt(ny))
}

// RecommendFromHistory scores every neighbour of the books in the history,
// weighting each neighbour's similarity by the normalized rating the reader
// gave the source book.
func (e *ItemCF) RecommendFromHistory(ctx context.Context, history []library.RatedItem, exclude map[string]struct{}, n int) ([]Scored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.acquirePredictLock()
	model := e.model
	e.releasePredictLock()

	if model == nil {
		return nil, ErrModelUnavailable
	}

	acc := newAccumulator()
	for _, rated := range history {
		i, ok := model.itemIndex[rated.ItemID]
		if !ok {
			continue
		}
		weight := rated.Score / dataset.MaxScale
		for j, s := range model.sim[i] {
			if j == i || s == 0 {
				continue
			}
			acc.add(model.itemIDs[j], s*weight)
		}
	}

	return acc.ranked(exclude, n), nil
}

// Snapshot captures the trained model for persistence.
func (e *ItemCF) Snapshot() (storage.ItemModelState, error) {
	e.acquirePredictLock()
	defer e.releasePredictLock()

	if e.model == nil {
		return storage.ItemModelState{}, ErrModelUnavailable
	}

	return storage.ItemModelState{
		FormatVersion: storage.CurrentFormatVersion,
		Version:       e.version,
		TrainedAt:     e.lastTrainedAt,
		ItemIDs:       e.model.itemIDs,
		Sim:           e.model.sim,
	}, nil
}

// LoadSnapshot restores a persisted model, replacing any current one.
func (e *ItemCF) LoadSnapshot(state storage.ItemModelState) error {
	if state.FormatVersion != storage.CurrentFormatVersion {
		return fmt.Errorf("itemcf snapshot: unsupported format version %d", state.FormatVersion)
	}
	if len(state.ItemIDs) != len(state.Sim) {
		return fmt.Errorf("itemcf snapshot: %d ids for %d similarity rows", len(state.ItemIDs), len(state.Sim))
	}

	itemIndex := make(map[string]int, len(state.ItemIDs))
	for i, id := range state.ItemIDs {
		itemIndex[id] = i
	}

	e.acquireTrainLock()
	defer e.releaseTrainLock()
	e.model = &itemModel{itemIndex: itemIndex, itemIDs: state.ItemIDs, sim: state.Sim}
	e.markRestored(state.Version, trainedAtOrNow(state.TrainedAt))
	return nil
}

var _ Engine = (*ItemCF)(nil)

// trainedAtOrNow is used by engines restoring legacy snapshots without a
// timestamp.
func trainedAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
