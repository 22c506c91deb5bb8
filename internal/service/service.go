// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package service exposes the recommendation operations for readers and book
// clubs, wiring the data provider, the engines and snapshot persistence
// together.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/readcircle/recommender/internal/dataset"
	"github.com/readcircle/recommender/internal/library"
	"github.com/readcircle/recommender/internal/metrics"
	"github.com/readcircle/recommender/internal/recommend"
	"github.com/readcircle/recommender/internal/recommend/storage"
)

// MembershipProvider resolves a club to its member reader ids. Unknown clubs
// resolve to an empty member list.
type MembershipProvider interface {
	Members(ctx context.Context, clubID string) ([]string, error)
}

// Recommendation is one recommended book, with its title when the catalogue
// knows it.
type Recommendation struct {
	ItemID string  `json:"item_id"`
	Title  string  `json:"title,omitempty"`
	Score  float64 `json:"score"`
}

// Config holds the service-level settings.
type Config struct {
	// TopN is the recommendation list length.
	TopN int

	// Threshold is the minimum ratings a book needs to enter the models.
	Threshold int

	// SnapshotKeep is how many snapshot versions to retain per engine.
	SnapshotKeep int
}

// Recommender serves the four recommendation operations. Lookups of unknown
// readers or clubs yield empty lists, never errors; only an untrained model
// or a failing backend surfaces as an error.
type Recommender struct {
	cfg      Config
	provider *dataset.Provider
	metadata dataset.MetadataSource
	members  MembershipProvider
	store    storage.Store // nil disables persistence
	logger   zerolog.Logger

	itemcf     *recommend.ItemCF
	content    *recommend.ContentEngine
	popularity *recommend.PopularityEngine

	mu  sync.RWMutex
	lib *library.Library
}

// New creates a Recommender. store may be nil to disable snapshot
// persistence; metadata may be nil when no book catalogue is available, in
// which case the content engine stays untrained and recommendations carry no
// titles.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(
	cfg Config,
	provider *dataset.Provider,
	metadata dataset.MetadataSource,
	members MembershipProvider,
	itemcf *recommend.ItemCF,
	content *recommend.ContentEngine,
	popularity *recommend.PopularityEngine,
	store storage.Store,
	logger zerolog.Logger,
) *Recommender {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.Threshold < 1 {
		cfg.Threshold = 1
	}
	if cfg.SnapshotKeep < 1 {
		cfg.SnapshotKeep = 3
	}

	return &Recommender{
		cfg:        cfg,
		provider:   provider,
		metadata:   metadata,
		members:    members,
		store:      store,
		logger:     logger.With().Str("component", "service").Logger(),
		itemcf:     itemcf,
		content:    content,
		popularity: popularity,
	}
}

// Train loads the rating snapshot, retrains every engine and swaps in the
// new library. Engines keep serving their previous model until their
// replacement is ready.
func (r *Recommender) Train(ctx context.Context) error {
	if err := r.provider.Load(ctx); err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	metrics.RatingsLoaded.Set(float64(len(r.provider.Ratings())))

	ts := r.provider.BuildTrainset(r.cfg.Threshold)
	books, err := r.loadBooks(ctx)
	if err != nil {
		return err
	}

	if err := r.trainEngine(ctx, "itemcf", func() error { return r.itemcf.Train(ctx, ts) }); err != nil {
		return err
	}
	if err := r.trainEngine(ctx, "popularity", func() error { return r.popularity.Train(ctx, ts) }); err != nil {
		return err
	}
	if len(books) > 0 {
		err := r.trainEngine(ctx, "content", func() error { return r.content.Train(ctx, books) })
		if err != nil && !errors.Is(err, recommend.ErrDegenerateInput) {
			return err
		}
	}

	r.mu.Lock()
	r.lib = library.New(ts, books)
	r.mu.Unlock()

	r.saveSnapshots(ctx)
	return nil
}

func (r *Recommender) trainEngine(ctx context.Context, name string, train func() error) error {
	start := time.Now()
	err := train()
	metrics.TrainDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TrainRuns.WithLabelValues(name, metrics.StatusError).Inc()
		return fmt.Errorf("train %s: %w", name, err)
	}
	metrics.TrainRuns.WithLabelValues(name, metrics.StatusOK).Inc()
	r.logger.Info().
		Str("engine", name).
		Dur("took", time.Since(start)).
		Msg("engine trained")
	return nil
}

func (r *Recommender) loadBooks(ctx context.Context) ([]dataset.BookRecord, error) {
	if r.metadata == nil {
		return nil, nil
	}
	books, err := r.metadata.Books(ctx)
	if err != nil {
		return nil, fmt.Errorf("load book catalogue: %w", err)
	}
	return books, nil
}

// LoadOrTrain restores every engine from its latest snapshot and retrains
// only the ones without a usable snapshot. The rating snapshot and library
// are always rebuilt from the source; only model fitting is skipped.
func (r *Recommender) LoadOrTrain(ctx context.Context) error {
	if r.store == nil {
		return r.Train(ctx)
	}

	if err := r.provider.Load(ctx); err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	metrics.RatingsLoaded.Set(float64(len(r.provider.Ratings())))

	ts := r.provider.BuildTrainset(r.cfg.Threshold)
	books, err := r.loadBooks(ctx)
	if err != nil {
		return err
	}

	if !r.restoreItemCF(ctx) {
		if err := r.trainEngine(ctx, "itemcf", func() error { return r.itemcf.Train(ctx, ts) }); err != nil {
			return err
		}
	}
	if !r.restorePopularity(ctx) {
		if err := r.trainEngine(ctx, "popularity", func() error { return r.popularity.Train(ctx, ts) }); err != nil {
			return err
		}
	}
	if !r.restoreContent(ctx) && len(books) > 0 {
		err := r.trainEngine(ctx, "content", func() error { return r.content.Train(ctx, books) })
		if err != nil && !errors.Is(err, recommend.ErrDegenerateInput) {
			return err
		}
	}

	r.mu.Lock()
	r.lib = library.New(ts, books)
	r.mu.Unlock()

	r.saveSnapshots(ctx)
	return nil
}

func (r *Recommender) restoreItemCF(ctx context.Context) bool {
	var state storage.ItemModelState
	if _, err := r.store.Load(ctx, r.itemcf.Name(), 0, &state); err != nil {
		r.observeRestore(r.itemcf.Name(), err)
		return false
	}
	err := r.itemcf.LoadSnapshot(state)
	r.observeRestore(r.itemcf.Name(), err)
	return err == nil
}

func (r *Recommender) restoreContent(ctx context.Context) bool {
	var state storage.ContentModelState
	if _, err := r.store.Load(ctx, r.content.Name(), 0, &state); err != nil {
		r.observeRestore(r.content.Name(), err)
		return false
	}
	err := r.content.LoadSnapshot(state)
	r.observeRestore(r.content.Name(), err)
	return err == nil
}

func (r *Recommender) restorePopularity(ctx context.Context) bool {
	var state storage.PopularityModelState
	if _, err := r.store.Load(ctx, r.popularity.Name(), 0, &state); err != nil {
		r.observeRestore(r.popularity.Name(), err)
		return false
	}
	err := r.popularity.LoadSnapshot(state)
	r.observeRestore(r.popularity.Name(), err)
	return err == nil
}

func (r *Recommender) observeRestore(engine string, err error) {
	if err == nil {
		metrics.SnapshotLoads.WithLabelValues(engine, metrics.StatusOK).Inc()
		r.logger.Info().Str("engine", engine).Msg("model restored from snapshot")
		return
	}
	metrics.SnapshotLoads.WithLabelValues(engine, metrics.StatusError).Inc()
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		r.logger.Debug().Str("engine", engine).Msg("no snapshot to restore")
		return
	}
	r.logger.Warn().Err(err).Str("engine", engine).Msg("snapshot restore failed, will retrain")
}

// saveSnapshots persists the current models. Persistence failures are
// logged, not fatal: the in-memory models still serve.
func (r *Recommender) saveSnapshots(ctx context.Context) {
	if r.store == nil {
		return
	}

	if state, err := r.itemcf.Snapshot(); err == nil {
		r.persist(ctx, r.itemcf.Name(), state.Version, state, state.TrainedAt)
	}
	if state, err := r.content.Snapshot(); err == nil {
		r.persist(ctx, r.content.Name(), state.Version, state, state.TrainedAt)
	}
	if state, err := r.popularity.Snapshot(); err == nil {
		r.persist(ctx, r.popularity.Name(), state.Version, state, state.TrainedAt)
	}
}

func (r *Recommender) persist(ctx context.Context, name string, version int, state any, trainedAt time.Time) {
	meta := storage.SnapshotMetadata{TrainedAt: trainedAt}
	if err := r.store.Save(ctx, name, version, state, meta); err != nil {
		r.logger.Warn().Err(err).Str("engine", name).Msg("snapshot save failed")
		return
	}
	if err := r.store.Prune(ctx, name, r.cfg.SnapshotKeep); err != nil {
		r.logger.Warn().Err(err).Str("engine", name).Msg("snapshot prune failed")
	}
}

// libraryView returns the current library, or nil before the first train.
func (r *Recommender) libraryView() *library.Library {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lib
}

// userContext gathers a reader's history and exclusion set. An unknown
// reader has an empty history and excludes nothing.
func userContext(lib *library.Library, userID string) ([]library.RatedItem, map[string]struct{}) {
	history, ok := lib.RatingsForUser(userID)
	if !ok {
		return nil, nil
	}
	exclude := make(map[string]struct{}, len(history))
	for _, r := range history {
		exclude[r.ItemID] = struct{}{}
	}
	return history, exclude
}

// GetUserPopularityRecommendations returns the most popular books the reader
// has not rated yet. Unknown readers get the unfiltered popularity list.
func (r *Recommender) GetUserPopularityRecommendations(ctx context.Context, userID string) ([]Recommendation, error) {
	return r.observe("user_popularity", func() ([]Recommendation, error) {
		lib := r.libraryView()
		if lib == nil {
			return nil, recommend.ErrModelUnavailable
		}

		_, exclude := userContext(lib, userID)
		scored, err := r.popularity.RecommendFromHistory(ctx, nil, exclude, r.cfg.TopN)
		if err != nil {
			return nil, err
		}
		return r.withTitles(lib, scored), nil
	})
}

// GetUserPersonalisedRecommendations returns books similar to the reader's
// positively rated history. Readers unknown to the model, or whose history
// yields no collaborative neighbours, fall back to content similarity; with
// no usable history at all the list is empty.
func (r *Recommender) GetUserPersonalisedRecommendations(ctx context.Context, userID string) ([]Recommendation, error) {
	return r.observe("user_personalised", func() ([]Recommendation, error) {
		lib := r.libraryView()
		if lib == nil {
			return nil, recommend.ErrModelUnavailable
		}

		history, exclude := userContext(lib, userID)
		if len(history) == 0 {
			return []Recommendation{}, nil
		}
		scored, err := r.personalised(ctx, history, exclude)
		if err != nil {
			return nil, err
		}
		return r.withTitles(lib, scored), nil
	})
}

// GetClubPopularityRecommendations returns the most popular books no club
// member has rated yet.
func (r *Recommender) GetClubPopularityRecommendations(ctx context.Context, clubID string) ([]Recommendation, error) {
	return r.observe("club_popularity", func() ([]Recommendation, error) {
		lib := r.libraryView()
		if lib == nil {
			return nil, recommend.ErrModelUnavailable
		}

		memberIDs, err := r.clubMembers(ctx, clubID)
		if err != nil {
			return nil, err
		}

		exclude := lib.ItemsRatedByClub(memberIDs)
		scored, err := r.popularity.RecommendFromHistory(ctx, nil, exclude, r.cfg.TopN)
		if err != nil {
			return nil, err
		}
		return r.withTitles(lib, scored), nil
	})
}

// GetClubPersonalisedRecommendations returns books similar to the combined
// history of the club's members. Each member's rating of a shared book
// counts separately, so widely loved books pull their neighbours up harder.
func (r *Recommender) GetClubPersonalisedRecommendations(ctx context.Context, clubID string) ([]Recommendation, error) {
	return r.observe("club_personalised", func() ([]Recommendation, error) {
		lib := r.libraryView()
		if lib == nil {
			return nil, recommend.ErrModelUnavailable
		}

		memberIDs, err := r.clubMembers(ctx, clubID)
		if err != nil {
			return nil, err
		}

		history := lib.RatingsForClub(memberIDs)
		if len(history) == 0 {
			return []Recommendation{}, nil
		}
		exclude := lib.ItemsRatedByClub(memberIDs)

		scored, err := r.personalised(ctx, history, exclude)
		if err != nil {
			return nil, err
		}
		return r.withTitles(lib, scored), nil
	})
}

// personalised runs the item-based engine and falls back to the content
// engine when collaborative filtering has nothing to say. The content
// engine only sees positively-rated books: a disliked book must not pull
// its lookalikes into the results.
func (r *Recommender) personalised(ctx context.Context, history []library.RatedItem, exclude map[string]struct{}) ([]recommend.Scored, error) {
	scored, err := r.itemcf.RecommendFromHistory(ctx, history, exclude, r.cfg.TopN)
	if err != nil {
		return nil, err
	}
	if len(scored) > 0 {
		return scored, nil
	}

	if !r.content.IsTrained() {
		return scored, nil
	}
	fallback, err := r.content.RecommendFromHistory(ctx, positiveHistory(history), exclude, r.cfg.TopN)
	if err != nil {
		if errors.Is(err, recommend.ErrModelUnavailable) {
			return scored, nil
		}
		return nil, err
	}
	return fallback, nil
}

// positiveHistory keeps the ratings above the midpoint of the scale.
func positiveHistory(history []library.RatedItem) []library.RatedItem {
	out := make([]library.RatedItem, 0, len(history))
	for _, rated := range history {
		if rated.Score > dataset.MaxScale/2 {
			out = append(out, rated)
		}
	}
	return out
}

func (r *Recommender) clubMembers(ctx context.Context, clubID string) ([]string, error) {
	if r.members == nil {
		return nil, nil
	}
	memberIDs, err := r.members.Members(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("resolve club %s: %w", clubID, err)
	}
	return memberIDs, nil
}

func (r *Recommender) withTitles(lib *library.Library, scored []recommend.Scored) []Recommendation {
	out := make([]Recommendation, len(scored))
	for i, s := range scored {
		title, _ := lib.TitleOf(s.ItemID)
		out[i] = Recommendation{ItemID: s.ItemID, Title: title, Score: s.Score}
	}
	return out
}

func (r *Recommender) observe(operation string, fn func() ([]Recommendation, error)) ([]Recommendation, error) {
	out, err := fn()
	if err != nil {
		metrics.Requests.WithLabelValues(operation, metrics.StatusError).Inc()
		return nil, err
	}
	metrics.Requests.WithLabelValues(operation, metrics.StatusOK).Inc()
	return out, nil
}
