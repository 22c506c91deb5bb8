// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package eval

import (
	"reflect"
	"testing"
)

func TestCombinationsOrder(t *testing.T) {
	grid := Grid{
		"b": {"x", "y"},
		"a": {1, 2},
	}

	got := Combinations(grid)

	// Names sort to a, b; b is right-most and varies fastest.
	want := []map[string]any{
		{"a": 1, "b": "x"},
		{"a": 1, "b": "y"},
		{"a": 2, "b": "x"},
		{"a": 2, "b": "y"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Combinations = %v, want %v", got, want)
	}
}

func TestCombinationsSingleParam(t *testing.T) {
	got := Combinations(Grid{"threshold": {1, 2, 3}})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int{1, 2, 3} {
		if got[i]["threshold"] != want {
			t.Errorf("combo %d = %v, want threshold %d", i, got[i], want)
		}
	}
}

func TestCombinationsEmptyGrid(t *testing.T) {
	got := Combinations(Grid{})
	if len(got) != 1 || len(got[0]) != 0 {
		t.Errorf("empty grid = %v, want one empty combination", got)
	}
}

func TestCombinationsEmptyValues(t *testing.T) {
	if got := Combinations(Grid{"a": {}}); got != nil {
		t.Errorf("grid with empty values = %v, want nil", got)
	}
}
