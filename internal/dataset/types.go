// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package dataset loads and prepares rating and book-metadata data for the
// recommendation engines.
//
// Ratings arrive as (user, book, score) triples from a CSV file or a
// relational source. The Provider filters out low-frequency books and builds
// an immutable Trainset, the dense rating-matrix structure the engines train
// on. Book metadata (title, categories, publication year) feeds the
// content-based engine.
package dataset

import (
	"context"
	"errors"
)

// MaxScale is the upper bound of the rating scale. Scores are in [0, MaxScale].
const MaxScale = 10.0

// Rating is a single user-book rating triple.
type Rating struct {
	// UserID is the external user identifier.
	UserID string `json:"user_id"`

	// ItemID is the external book identifier (typically an ISBN).
	ItemID string `json:"item_id"`

	// Score is the rating value in [0, MaxScale].
	Score float64 `json:"score"`
}

// BookRecord holds the content metadata for a single book.
// Records without a derivable publication year or category set are dropped
// at load time; only complete records participate in content similarity.
type BookRecord struct {
	// ID is the external book identifier.
	ID string `json:"id"`

	// Title is the book title.
	Title string `json:"title"`

	// Categories is the set of subject categories.
	Categories []string `json:"categories"`

	// Year is the publication year.
	Year int `json:"year"`
}

// ErrSourceUnavailable indicates a rating or metadata source could not be
// read. It is fatal at construction time; there are no retries.
var ErrSourceUnavailable = errors.New("dataset: source unavailable")

// RatingSource yields raw rating triples.
type RatingSource interface {
	// Ratings reads all rating triples from the source.
	// Returns an error wrapping ErrSourceUnavailable if the source is
	// missing or unreadable.
	Ratings(ctx context.Context) ([]Rating, error)
}

// MetadataSource yields book metadata records.
type MetadataSource interface {
	// Books reads all book records from the source. Records that fail to
	// parse are skipped, not fatal; an unreadable source is.
	Books(ctx context.Context) ([]BookRecord, error)
}
