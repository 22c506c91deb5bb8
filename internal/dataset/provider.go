// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package dataset

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Provider loads ratings from a RatingSource and derives filtered rating sets
// and trainsets from them.
//
// Loaded ratings are deduplicated per (user, book) pair with the last rating
// in source order winning, so a user who re-rates a book keeps only the most
// recent score. Filtered item sets are memoized per threshold; they are a pure
// function of the loaded ratings and the threshold.
//
// A Provider is safe for concurrent use after Load has returned.
type Provider struct {
	source RatingSource
	logger zerolog.Logger

	mu       sync.RWMutex
	ratings  []Rating
	filtered map[int]map[string]struct{}
}

// NewProvider creates a Provider over the given rating source.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProvider(source RatingSource, logger zerolog.Logger) *Provider {
	return &Provider{
		source:   source,
		logger:   logger.With().Str("component", "dataset").Logger(),
		filtered: make(map[int]map[string]struct{}),
	}
}

// Load reads all ratings from the source and replaces the provider's rating
// snapshot. A source failure is fatal and leaves the previous snapshot
// untouched.
func (p *Provider) Load(ctx context.Context) error {
	raw, err := p.source.Ratings(ctx)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}

	deduped := dedupeLastWins(raw)

	p.mu.Lock()
	p.ratings = deduped
	p.filtered = make(map[int]map[string]struct{})
	p.mu.Unlock()

	p.logger.Info().
		Int("raw", len(raw)).
		Int("loaded", len(deduped)).
		Msg("rating snapshot loaded")

	return nil
}

// dedupeLastWins collapses repeated (user, item) pairs, keeping the last
// score while preserving the first occurrence's position in the order.
func dedupeLastWins(ratings []Rating) []Rating {
	type key struct{ user, item string }

	pos := make(map[key]int, len(ratings))
	out := make([]Rating, 0, len(ratings))

	for _, r := range ratings {
		k := key{r.UserID, r.ItemID}
		if i, ok := pos[k]; ok {
			out[i].Score = r.Score
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}

	return out
}

// Ratings returns the loaded rating snapshot.
// The returned slice is shared; callers must not mutate it.
func (p *Provider) Ratings() []Rating {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ratings
}

// FilteredItems returns the set of item ids whose rating count meets the
// threshold. Results are memoized per threshold until the next Load.
func (p *Provider) FilteredItems(threshold int) map[string]struct{} {
	p.mu.RLock()
	if set, ok := p.filtered[threshold]; ok {
		p.mu.RUnlock()
		return set
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if set, ok := p.filtered[threshold]; ok {
		return set
	}

	counts := make(map[string]int)
	for _, r := range p.ratings {
		counts[r.ItemID]++
	}

	set := make(map[string]struct{})
	for id, n := range counts {
		if n >= threshold {
			set[id] = struct{}{}
		}
	}

	p.filtered[threshold] = set
	return set
}

// FilterRatings returns the ratings whose item has at least threshold
// ratings in the input, preserving order. Standalone counterpart of a
// provider's FilteredItems for callers working on ad-hoc rating slices.
func FilterRatings(ratings []Rating, threshold int) []Rating {
	counts := make(map[string]int)
	for _, r := range ratings {
		counts[r.ItemID]++
	}

	out := make([]Rating, 0, len(ratings))
	for _, r := range ratings {
		if counts[r.ItemID] >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// BuildTrainset constructs a Trainset containing only ratings for items that
// meet the threshold. Deterministic given the same loaded ratings and
// threshold: inner indices follow first-seen order of the surviving ratings.
func (p *Provider) BuildTrainset(threshold int) *Trainset {
	keep := p.FilteredItems(threshold)

	p.mu.RLock()
	defer p.mu.RUnlock()

	surviving := make([]Rating, 0, len(p.ratings))
	for _, r := range p.ratings {
		if _, ok := keep[r.ItemID]; ok {
			surviving = append(surviving, r)
		}
	}

	ts := NewTrainset(surviving)

	p.logger.Debug().
		Int("threshold", threshold).
		Int("ratings", len(surviving)).
		Int("users", ts.NumUsers()).
		Int("items", ts.NumItems()).
		Msg("trainset built")

	return ts
}
