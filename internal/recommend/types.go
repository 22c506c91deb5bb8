// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package recommend implements the recommendation engines.
//
// # Engine Categories
//
//   - Collaborative Filtering: item-based KNN over co-rating readers
//   - Content-Based: category and publication-year similarity
//   - Popularity: baseline average/median ranking
//
// # Thread Safety
//
// All engines are safe for concurrent use. Training acquires an exclusive
// lock while recommendation uses a shared lock, so requests served during a
// retrain see either the old model or the new one, never a mix.
package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/readcircle/recommender/internal/library"
)

// ErrModelUnavailable is returned when recommendations are requested from an
// engine that has not been trained and has no loaded snapshot.
var ErrModelUnavailable = errors.New("recommend: model unavailable")

// ErrDegenerateInput is returned by Train when the rating snapshot cannot
// support a model, for example when no item survives filtering.
var ErrDegenerateInput = errors.New("recommend: degenerate training input")

// Scored pairs a book id with a relevance score. Scores are comparable only
// within a single result list.
type Scored struct {
	ItemID string
	Score  float64
}

// Engine is a trained recommendation model.
//
// RecommendFromHistory ranks candidate books given a rating history and an
// exclusion set, returning at most n results in descending score order. The
// same entry point serves both single readers and clubs: a club's history is
// the concatenation of its members' histories, so a book several members
// rated carries more weight.
type Engine interface {
	Name() string
	IsTrained() bool
	Version() int
	RecommendFromHistory(ctx context.Context, history []library.RatedItem, exclude map[string]struct{}, n int) ([]Scored, error)
}

// BaseEngine provides the trained-state bookkeeping shared by all engines.
type BaseEngine struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseEngine creates a base engine with the given name.
func NewBaseEngine(name string) BaseEngine {
	return BaseEngine{name: name}
}

// Name returns the engine identifier.
func (b *BaseEngine) Name() string {
	return b.name
}

// IsTrained returns whether the model has been trained or restored.
func (b *BaseEngine) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns the model version. It increases by one per successful
// train and is restored verbatim from snapshots.
func (b *BaseEngine) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last trained.
func (b *BaseEngine) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markTrained updates the trained state.
// Must be called while holding the training lock.
func (b *BaseEngine) markTrained() {
	b.trained = true
	b.version++
	b.lastTrainedAt = time.Now()
}

// markRestored records a snapshot restore at the given version.
// Must be called while holding the training lock.
func (b *BaseEngine) markRestored(version int, trainedAt time.Time) {
	b.trained = true
	b.version = version
	b.lastTrainedAt = trainedAt
}

func (b *BaseEngine) acquireTrainLock()   { b.mu.Lock() }
func (b *BaseEngine) releaseTrainLock()   { b.mu.Unlock() }
func (b *BaseEngine) acquirePredictLock() { b.mu.RLock() }
func (b *BaseEngine) releasePredictLock() { b.mu.RUnlock() }
