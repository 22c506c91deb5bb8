// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package dataset

// IndexedRating pairs an inner index with a rating score. Depending on
// context the index refers to an item (user adjacency) or a user (item
// adjacency).
type IndexedRating struct {
	Index int
	Score float64
}

// Trainset is the dense rating-matrix view of a filtered rating set.
//
// It maps raw user/book identifiers to dense inner integer indices and holds
// adjacency lists in both directions. Inner indices are assigned in first-seen
// order of the source ratings, which makes construction deterministic, and are
// not stable across retraining.
//
// A Trainset is built once and read-only afterward; it is safe for concurrent
// reads.
type Trainset struct {
	userIndex map[string]int
	itemIndex map[string]int
	userIDs   []string // inner user index -> raw id
	itemIDs   []string // inner item index -> raw id

	// userRatings[u] lists (item index, score) pairs for inner user u.
	userRatings [][]IndexedRating

	// itemRatings[i] lists (user index, score) pairs for inner item i.
	itemRatings [][]IndexedRating
}

// NewTrainset builds a Trainset from ratings, in order.
func NewTrainset(ratings []Rating) *Trainset {
	ts := &Trainset{
		userIndex: make(map[string]int),
		itemIndex: make(map[string]int),
	}

	for _, r := range ratings {
		u, ok := ts.userIndex[r.UserID]
		if !ok {
			u = len(ts.userIDs)
			ts.userIndex[r.UserID] = u
			ts.userIDs = append(ts.userIDs, r.UserID)
			ts.userRatings = append(ts.userRatings, nil)
		}

		i, ok := ts.itemIndex[r.ItemID]
		if !ok {
			i = len(ts.itemIDs)
			ts.itemIndex[r.ItemID] = i
			ts.itemIDs = append(ts.itemIDs, r.ItemID)
			ts.itemRatings = append(ts.itemRatings, nil)
		}

		ts.userRatings[u] = append(ts.userRatings[u], IndexedRating{Index: i, Score: r.Score})
		ts.itemRatings[i] = append(ts.itemRatings[i], IndexedRating{Index: u, Score: r.Score})
	}

	return ts
}

// NumUsers returns the number of distinct users.
func (t *Trainset) NumUsers() int {
	return len(t.userIDs)
}

// NumItems returns the number of distinct items.
func (t *Trainset) NumItems() int {
	return len(t.itemIDs)
}

// InnerUser returns the inner index for a raw user id.
func (t *Trainset) InnerUser(userID string) (int, bool) {
	u, ok := t.userIndex[userID]
	return u, ok
}

// InnerItem returns the inner index for a raw item id.
func (t *Trainset) InnerItem(itemID string) (int, bool) {
	i, ok := t.itemIndex[itemID]
	return i, ok
}

// RawUser returns the raw id for an inner user index.
func (t *Trainset) RawUser(inner int) string {
	return t.userIDs[inner]
}

// RawItem returns the raw id for an inner item index.
func (t *Trainset) RawItem(inner int) string {
	return t.itemIDs[inner]
}

// ItemIDs returns the raw item ids in inner-index order.
// The returned slice is shared; callers must not mutate it.
func (t *Trainset) ItemIDs() []string {
	return t.itemIDs
}

// UserRatings returns the (item index, score) pairs for an inner user index.
// The returned slice is shared; callers must not mutate it.
func (t *Trainset) UserRatings(inner int) []IndexedRating {
	return t.userRatings[inner]
}

// ItemRatings returns the (user index, score) pairs for an inner item index.
// The returned slice is shared; callers must not mutate it.
func (t *Trainset) ItemRatings(inner int) []IndexedRating {
	return t.itemRatings[inner]
}
