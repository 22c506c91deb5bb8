// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

// Package library provides read-only rating and title lookups over a trained
// rating snapshot.
//
// The user-level and club-level queries deliberately differ in how they treat
// duplicates: user-level queries deduplicate per book, while club-level
// queries preserve every member's rating so that a book read by several
// members weighs more in popularity-style aggregation. Downstream evaluation
// depends on this asymmetry; do not unify the two paths.
package library

import (
	"github.com/readcircle/recommender/internal/dataset"
)

// RatedItem pairs a raw book id with the score a reader gave it.
type RatedItem struct {
	ItemID string
	Score  float64
}

// Library answers rating-history and title queries against an immutable
// Trainset snapshot. It is safe for concurrent use.
type Library struct {
	ts     *dataset.Trainset
	titles map[string]string
}

// New creates a Library over the given trainset and book metadata.
func New(ts *dataset.Trainset, books []dataset.BookRecord) *Library {
	titles := make(map[string]string, len(books))
	for _, b := range books {
		titles[b.ID] = b.Title
	}

	return &Library{ts: ts, titles: titles}
}

// RatingsForUser returns the user's ratings in rating order with one entry
// per book: the first-rated occurrence's position is kept. The second return
// reports whether the user exists in the snapshot; callers treat false as
// "zero ratings", never as a failure.
func (l *Library) RatingsForUser(userID string) ([]RatedItem, bool) {
	inner, ok := l.ts.InnerUser(userID)
	if !ok {
		return nil, false
	}

	seen := make(map[int]struct{})
	var out []RatedItem
	for _, r := range l.ts.UserRatings(inner) {
		if _, dup := seen[r.Index]; dup {
			continue
		}
		seen[r.Index] = struct{}{}
		out = append(out, RatedItem{ItemID: l.ts.RawItem(r.Index), Score: r.Score})
	}

	return out, true
}

// RatingsForClub concatenates the ratings of every member, in member order.
// Duplicates across members are preserved intentionally: a book rated by two
// club members counts twice for popularity weighting. Unknown members
// contribute nothing.
func (l *Library) RatingsForClub(memberIDs []string) []RatedItem {
	var out []RatedItem
	for _, id := range memberIDs {
		ratings, ok := l.RatingsForUser(id)
		if !ok {
			continue
		}
		out = append(out, ratings...)
	}
	return out
}

// ItemsRatedBy returns the ids of the books the user has rated,
// order-preserving and deduplicated. The second return reports whether the
// user exists in the snapshot.
func (l *Library) ItemsRatedBy(userID string) ([]string, bool) {
	ratings, ok := l.RatingsForUser(userID)
	if !ok {
		return nil, false
	}

	out := make([]string, len(ratings))
	for i, r := range ratings {
		out[i] = r.ItemID
	}
	return out, true
}

// ItemsRatedByClub returns the deduplicated set of book ids rated by any
// member, for use as a recommendation exclusion set.
func (l *Library) ItemsRatedByClub(memberIDs []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range l.RatingsForClub(memberIDs) {
		out[r.ItemID] = struct{}{}
	}
	return out
}

// TitleOf returns the title of a book, if its metadata is known.
func (l *Library) TitleOf(itemID string) (string, bool) {
	title, ok := l.titles[itemID]
	return title, ok
}
