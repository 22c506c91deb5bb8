// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package recommend

import (
	"context"
	"fmt"
	"math"

	"github.com/readcircle/recommender/internal/dataset"
	"github.com/readcircle/recommender/internal/library"
	"github.com/readcircle/recommender/internal/recommend/storage"
)

// yearDecayScale is the e-folding distance, in years, of the publication
// year decay factor.
const yearDecayScale = 10.0

// ContentConfig configures the content-based engine.
type ContentConfig struct {
	// UsePublicationYear multiplies category similarity by a decay factor
	// over the gap between publication years.
	UsePublicationYear bool
}

// DefaultContentConfig returns the default content-based configuration.
func DefaultContentConfig() ContentConfig {
	return ContentConfig{UsePublicationYear: true}
}

// contentModel holds each book's similar neighbours in catalogue order.
// Only neighbours with positive similarity are kept.
type contentModel struct {
	neighbors map[string][]storage.Neighbor
}

// ContentEngine recommends books whose categories overlap with the books a
// reader enjoyed, optionally discounted by publication-year distance. Books
// with incomplete metadata (no categories or no year) never enter the model.
type ContentEngine struct {
	BaseEngine
	config ContentConfig
	model  *contentModel
}

// NewContentEngine creates a content-based engine with the given
// configuration.
func NewContentEngine(cfg ContentConfig) *ContentEngine {
	return &ContentEngine{
		BaseEngine: NewBaseEngine("content"),
		config:     cfg,
	}
}

// Train builds the pairwise similarity structure from the book catalogue.
func (e *ContentEngine) Train(ctx context.Context, books []dataset.BookRecord) error {
	eligible := make([]dataset.BookRecord, 0, len(books))
	for _, b := range books {
		if len(b.Categories) == 0 || b.Year == 0 {
			continue
		}
		eligible = append(eligible, b)
	}
	if len(eligible) < 2 {
		return fmt.Errorf("%w: %d books with complete metadata", ErrDegenerateInput, len(eligible))
	}

	sets := make([]map[string]struct{}, len(eligible))
	for i, b := range eligible {
		set := make(map[string]struct{}, len(b.Categories))
		for _, c := range b.Categories {
			set[c] = struct{}{}
		}
		sets[i] = set
	}

	neighbors := make(map[string][]storage.Neighbor, len(eligible))
	for i := range eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j := range eligible {
			if j == i {
				continue
			}
			s := categoryOverlapScore(sets[i], sets[j])
			if e.config.UsePublicationYear {
				s *= yearDecay(eligible[i].Year, eligible[j].Year)
			}
			if s == 0 {
				continue
			}
			neighbors[eligible[i].ID] = append(neighbors[eligible[i].ID], storage.Neighbor{
				ItemID: eligible[j].ID,
				Score:  s,
			})
		}
	}

	e.acquireTrainLock()
	defer e.releaseTrainLock()
	e.model = &contentModel{neighbors: neighbors}
	e.markTrained()
	return nil
}

// categoryOverlapScore is the size of the category intersection normalized
// by the geometric mean of the two set sizes.
func categoryOverlapScore(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}

	common := 0
	for c := range small {
		if _, ok := large[c]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(common) / math.Sqrt(float64(len(a))*float64(len(b)))
}

// yearDecay discounts similarity exponentially in the publication-year gap.
func yearDecay(a, b int) float64 {
	gap := a - b
	if gap < 0 {
		gap = -gap
	}
	return math.Exp(-float64(gap) / yearDecayScale)
}

// RecommendFromHistory scores the neighbours of every book in the history,
// weighting by the normalized rating. Books absent from the model contribute
// nothing.
func (e *ContentEngine) RecommendFromHistory(ctx context.Context, history []library.RatedItem, exclude map[string]struct{}, n int) ([]Scored, error) {
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
		weight := rated.Score / dataset.MaxScale
		for _, nb := range model.neighbors[rated.ItemID] {
			acc.add(nb.ItemID, nb.Score*weight)
		}
	}

	return acc.ranked(exclude, n), nil
}

// Snapshot captures the trained model for persistence.
func (e *ContentEngine) Snapshot() (storage.ContentModelState, error) {
	e.acquirePredictLock()
	defer e.releasePredictLock()

	if e.model == nil {
		return storage.ContentModelState{}, ErrModelUnavailable
	}

	return storage.ContentModelState{
		FormatVersion: storage.CurrentFormatVersion,
		Version:       e.version,
		TrainedAt:     e.lastTrainedAt,
		Neighbors:     e.model.neighbors,
	}, nil
}

// LoadSnapshot restores a persisted model, replacing any current one.
func (e *ContentEngine) LoadSnapshot(state storage.ContentModelState) error {
	if state.FormatVersion != storage.CurrentFormatVersion {
		return fmt.Errorf("content snapshot: unsupported format version %d", state.FormatVersion)
	}

	e.acquireTrainLock()
	defer e.releaseTrainLock()
	e.model = &contentModel{neighbors: state.Neighbors}
	e.markRestored(state.Version, trainedAtOrNow(state.TrainedAt))
	return nil
}

var _ Engine = (*ContentEngine)(nil)
