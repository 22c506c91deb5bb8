// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package eval

import (
	"github.com/readcircle/recommender/internal/dataset"
)

// Result holds the quality metrics for one evaluation run.
type Result struct {
	// TestUsers is the number of readers with a held-out rating.
	TestUsers int `json:"test_users"`

	// Hits is how many readers got their held-out book recommended.
	Hits int `json:"hits"`

	// Recommended is the total number of recommendations issued.
	Recommended int `json:"recommended"`

	// HitRate is Hits / TestUsers.
	HitRate float64 `json:"hit_rate"`

	// ARHR is the average reciprocal rank of hits over all test users.
	ARHR float64 `json:"arhr"`

	// Precision is Hits / Recommended, a single global ratio rather than
	// a per-reader average, so readers with longer lists weigh more.
	Precision float64 `json:"precision"`

	// Recall equals HitRate: each reader has exactly one relevant book.
	Recall float64 `json:"recall"`

	// F1 is the harmonic mean of Precision and Recall.
	F1 float64 `json:"f1"`

	// Novelty is the mean popularity rank of all recommended books; a
	// book outside the ranking counts as one past the end. Higher means
	// more obscure recommendations.
	Novelty float64 `json:"novelty"`

	// UserCoverage is the fraction of test users given a non-empty
	// recommendation list whose held-out book was among the results.
	UserCoverage float64 `json:"user_coverage"`
}

// Evaluate scores per-reader recommendation lists against the held-out test
// ratings. ranking is the full catalogue in popularity order, most popular
// first, and drives the novelty metric. Readers missing from recs are
// treated as having received an empty list.
func Evaluate(recs map[string][]string, test []dataset.Rating, ranking []string) Result {
	rankOf := make(map[string]int, len(ranking))
	for i, id := range ranking {
		rankOf[id] = i + 1
	}
	absentRank := len(ranking) + 1

	var res Result
	var reciprocalSum, noveltySum float64
	covered := 0
	usersWithHit := 0

	for _, held := range test {
		res.TestUsers++
		list := recs[held.UserID]
		if len(list) > 0 {
			covered++
		}
		res.Recommended += len(list)

		hit := false
		for pos, id := range list {
			if rank, ok := rankOf[id]; ok {
				noveltySum += float64(rank)
			} else {
				noveltySum += float64(absentRank)
			}
			if id == held.ItemID {
				res.Hits++
				hit = true
				reciprocalSum += 1.0 / float64(pos+1)
			}
		}
		if hit {
			usersWithHit++
		}
	}

	if res.TestUsers > 0 {
		res.HitRate = float64(res.Hits) / float64(res.TestUsers)
		res.ARHR = reciprocalSum / float64(res.TestUsers)
	}
	if covered > 0 {
		res.UserCoverage = float64(usersWithHit) / float64(covered)
	}
	if res.Recommended > 0 {
		res.Precision = float64(res.Hits) / float64(res.Recommended)
		res.Novelty = noveltySum / float64(res.Recommended)
	}
	res.Recall = res.HitRate
	if res.Precision+res.Recall > 0 {
		res.F1 = 2 * res.Precision * res.Recall / (res.Precision + res.Recall)
	}

	return res
}
