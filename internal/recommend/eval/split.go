// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package eval measures recommendation quality offline.
//
// The harness holds out one rating per reader, retrains on the remainder and
// checks whether each reader's held-out book comes back in their
// recommendations. All randomness flows from a caller-supplied seed, so a
// given rating snapshot and seed always produce the same split and the same
// metrics.
package eval

import (
	"math/rand"

	"github.com/readcircle/recommender/internal/dataset"
)

// LeaveOneOut splits ratings into a training set and a test set holding
// exactly one rating per eligible reader.
//
// Readers are processed in first-seen order and the held-out rating is drawn
// from a generator seeded with seed, so the split is deterministic. Readers
// with a single rating keep it in the training set and do not appear in the
// test set; holding out their only rating would leave them without a history
// to recommend from.
func LeaveOneOut(ratings []dataset.Rating, seed int64) (train, test []dataset.Rating) {
	byUser := make(map[string][]int)
	var userOrder []string
	for i, r := range ratings {
		if _, ok := byUser[r.UserID]; !ok {
			userOrder = append(userOrder, r.UserID)
		}
		byUser[r.UserID] = append(byUser[r.UserID], i)
	}

	heldOut := make(map[int]struct{})
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic split, not crypto

	for _, user := range userOrder {
		indices := byUser[user]
		if len(indices) < 2 {
			continue
		}
		heldOut[indices[rng.Intn(len(indices))]] = struct{}{}
	}

	train = make([]dataset.Rating, 0, len(ratings)-len(heldOut))
	test = make([]dataset.Rating, 0, len(heldOut))
	for i, r := range ratings {
		if _, held := heldOut[i]; held {
			test = append(test, r)
		} else {
			train = append(train, r)
		}
	}
	return train, test
}
