// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package eval

import (
	"math"
	"testing"

	"github.com/readcircle/recommender/internal/dataset"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate(t *testing.T) {
	ranking := []string{"A", "B", "C", "D", "E"}
	test := []dataset.Rating{
		{UserID: "u1", ItemID: "B", Score: 8},
		{UserID: "u2", ItemID: "X", Score: 7},
	}
	recs := map[string][]string{
		"u1": {"A", "B", "F"}, // hit at rank 2; F is outside the ranking
		"u2": {"C", "D", "E"}, // miss
	}

	res := Evaluate(recs, test, ranking)

	if res.TestUsers != 2 || res.Hits != 1 || res.Recommended != 6 {
		t.Fatalf("counts = %d users, %d hits, %d recommended; want 2, 1, 6",
			res.TestUsers, res.Hits, res.Recommended)
	}
	if !approx(res.HitRate, 0.5) {
		t.Errorf("HitRate = %v, want 0.5", res.HitRate)
	}
	if !approx(res.ARHR, 0.25) {
		t.Errorf("ARHR = %v, want 0.25", res.ARHR)
	}
	if !approx(res.Precision, 1.0/6.0) {
		t.Errorf("Precision = %v, want 1/6", res.Precision)
	}
	if !approx(res.Recall, 0.5) {
		t.Errorf("Recall = %v, want 0.5", res.Recall)
	}
	if !approx(res.F1, 0.25) {
		t.Errorf("F1 = %v, want 0.25", res.F1)
	}
	// Ranks 1+2+6 for u1 and 3+4+5 for u2: 21 over 6 recommendations.
	if !approx(res.Novelty, 21.0/6.0) {
		t.Errorf("Novelty = %v, want 3.5", res.Novelty)
	}
	// Both readers got lists but only u1 saw a hit.
	if !approx(res.UserCoverage, 0.5) {
		t.Errorf("UserCoverage = %v, want 0.5", res.UserCoverage)
	}
}

func TestEvaluateMissingUserGetsEmptyList(t *testing.T) {
	test := []dataset.Rating{
		{UserID: "u1", ItemID: "A", Score: 8},
		{UserID: "u2", ItemID: "B", Score: 7},
	}
	recs := map[string][]string{
		"u1": {"A"},
		// u2 absent from the map entirely
	}

	res := Evaluate(recs, test, []string{"A", "B"})

	if res.TestUsers != 2 {
		t.Errorf("TestUsers = %d, want 2", res.TestUsers)
	}
	// u2 got no list, so only u1 counts toward coverage, and u1 hit.
	if !approx(res.UserCoverage, 1) {
		t.Errorf("UserCoverage = %v, want 1", res.UserCoverage)
	}
	if !approx(res.HitRate, 0.5) {
		t.Errorf("HitRate = %v, want 0.5", res.HitRate)
	}
	// One recommendation, one hit: the global ratio is 1.
	if !approx(res.Precision, 1) {
		t.Errorf("Precision = %v, want 1", res.Precision)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	res := Evaluate(nil, nil, nil)
	if res.TestUsers != 0 || res.HitRate != 0 || res.Precision != 0 || res.F1 != 0 {
		t.Errorf("empty evaluation produced non-zero metrics: %+v", res)
	}
}
