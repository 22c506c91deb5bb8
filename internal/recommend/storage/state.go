// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package storage persists trained model snapshots.
//
// Snapshots are gob-encoded, gzip-compressed and integrity-checked with a
// SHA-256 digest. Each snapshot carries the model version it was trained at,
// so an engine restored from disk reports the same version it had when it was
// saved.
package storage

import "time"

// CurrentFormatVersion is the on-disk format version written by this build.
// Snapshots with a different format version are rejected at load time.
const CurrentFormatVersion = 1

// ItemModelState is the serialized form of the item-based filtering model.
type ItemModelState struct {
	FormatVersion int
	Version       int
	TrainedAt     time.Time

	ItemIDs []string
	Sim     [][]float64
}

// Neighbor is a similar catalogue entry with its similarity score.
type Neighbor struct {
	ItemID string
	Score  float64
}

// ContentModelState is the serialized form of the content-based model.
type ContentModelState struct {
	FormatVersion int
	Version       int
	TrainedAt     time.Time

	// Neighbors maps each book id to its similar books in catalogue order.
	Neighbors map[string][]Neighbor
}

// PopularityModelState is the serialized form of the popularity model.
type PopularityModelState struct {
	FormatVersion int
	Version       int
	TrainedAt     time.Time

	ItemIDs []string
	Scores  []float64
}
