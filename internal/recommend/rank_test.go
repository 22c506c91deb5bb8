// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package recommend

import (
	"math"
	"reflect"
	"testing"
)

func TestAccumulatorRanked(t *testing.T) {
	acc := newAccumulator()
	acc.add("a", 0.5)
	acc.add("b", 0.9)
	acc.add("c", 0.2)
	acc.add("a", 0.4) // a total 0.9, tied with b

	got := acc.ranked(nil, 0)

	// b and a tie at 0.9; a was seen first, so a ranks ahead.
	want := []Scored{
		{ItemID: "a", Score: 0.9},
		{ItemID: "b", Score: 0.9},
		{ItemID: "c", Score: 0.2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ranked = %v, want %v", got, want)
	}
}

func TestAccumulatorRankedSkips(t *testing.T) {
	acc := newAccumulator()
	acc.add("pos", 1.0)
	acc.add("zero", 0.0)
	acc.add("neg", -0.5)
	acc.add("nan", math.NaN())
	acc.add("excluded", 2.0)

	got := acc.ranked(map[string]struct{}{"excluded": {}}, 0)

	// Zero and NaN totals drop; a negative total stays, ranked last.
	want := []Scored{
		{ItemID: "pos", Score: 1.0},
		{ItemID: "neg", Score: -0.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ranked = %v, want %v", got, want)
	}
}

func TestAccumulatorRankedLimit(t *testing.T) {
	acc := newAccumulator()
	acc.add("a", 3)
	acc.add("b", 2)
	acc.add("c", 1)

	if got := acc.ranked(nil, 2); len(got) != 2 {
		t.Errorf("ranked limit 2 returned %d results", len(got))
	}
	if got := acc.ranked(nil, 10); len(got) != 3 {
		t.Errorf("ranked limit 10 returned %d results", len(got))
	}
}
