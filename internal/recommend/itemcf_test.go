// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package recommend

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/readcircle/recommender/internal/dataset"
	"github.com/readcircle/recommender/internal/library"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// itemcfTrainset has A,B positively correlated and A,C negatively
// correlated over their co-rating readers.
func itemcfTrainset() *dataset.Trainset {
	return dataset.NewTrainset([]dataset.Rating{
		{UserID: "u1", ItemID: "A", Score: 10},
		{UserID: "u1", ItemID: "B", Score: 9},
		{UserID: "u2", ItemID: "A", Score: 8},
		{UserID: "u2", ItemID: "B", Score: 7},
		{UserID: "u2", ItemID: "C", Score: 2},
		{UserID: "u3", ItemID: "A", Score: 2},
		{UserID: "u3", ItemID: "C", Score: 10},
	})
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name   string
		xs, ys []float64
		want   float64
	}{
		{"perfect positive", []float64{1, 2, 3}, []float64{4, 5, 6}, 1},
		{"perfect negative", []float64{1, 2, 3}, []float64{6, 5, 4}, -1},
		{"constant vector", []float64{5, 5, 5}, []float64{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pearson(tt.xs, tt.ys); !approx(got, tt.want) {
				t.Errorf("pearson = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name   string
		xs, ys []float64
		want   float64
	}{
		{"identical", []float64{1, 2}, []float64{1, 2}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosine(tt.xs, tt.ys); !approx(got, tt.want) {
				t.Errorf("cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItemCFRecommend(t *testing.T) {
	e := NewItemCF(ItemCFConfig{Similarity: SimilarityPearson, MinSupport: 2})
	if err := e.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	history := []library.RatedItem{{ItemID: "A", Score: 10}}
	got, err := e.RecommendFromHistory(context.Background(), history, map[string]struct{}{"A": {}}, 10)
	if err != nil {
		t.Fatalf("RecommendFromHistory: %v", err)
	}

	// sim(A,B) = 1 over readers u1,u2; sim(A,C) = -1 keeps C in the
	// list but ranks it below B.
	if len(got) != 2 || got[0].ItemID != "B" || got[1].ItemID != "C" {
		t.Fatalf("got %v, want B then C", got)
	}
	if !approx(got[0].Score, 1) {
		t.Errorf("B score = %v, want 1", got[0].Score)
	}
	if !approx(got[1].Score, -1) {
		t.Errorf("C score = %v, want -1", got[1].Score)
	}
}

func TestItemCFRecommendKeepsNegativeCorrelations(t *testing.T) {
	e := NewItemCF(ItemCFConfig{Similarity: SimilarityPearson, MinSupport: 2})
	if err := e.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	// C's only positively-weighted neighbour is itself; everything it
	// correlates with is negative, yet reading C must still surface A.
	history := []library.RatedItem{{ItemID: "C", Score: 10}}
	got, err := e.RecommendFromHistory(context.Background(), history, map[string]struct{}{"C": {}}, 10)
	if err != nil {
		t.Fatalf("RecommendFromHistory: %v", err)
	}
	if len(got) != 1 || got[0].ItemID != "A" {
		t.Fatalf("got %v, want A", got)
	}
	if !approx(got[0].Score, -1) {
		t.Errorf("A score = %v, want -1", got[0].Score)
	}
}

func TestItemCFMinSupport(t *testing.T) {
	e := NewItemCF(ItemCFConfig{Similarity: SimilarityPearson, MinSupport: 3})
	if err := e.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	// No book pair has three co-rating readers.
	history := []library.RatedItem{{ItemID: "A", Score: 10}}
	got, err := e.RecommendFromHistory(context.Background(), history, map[string]struct{}{"A": {}}, 10)
	if err != nil {
		t.Fatalf("RecommendFromHistory: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no recommendations", got)
	}
}

func TestItemCFUnknownHistoryItem(t *testing.T) {
	e := NewItemCF(DefaultItemCFConfig())
	if err := e.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	history := []library.RatedItem{{ItemID: "unknown", Score: 10}}
	got, err := e.RecommendFromHistory(context.Background(), history, nil, 10)
	if err != nil {
		t.Fatalf("RecommendFromHistory: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty for unknown history", got)
	}
}

func TestItemCFUntrained(t *testing.T) {
	e := NewItemCF(DefaultItemCFConfig())

	_, err := e.RecommendFromHistory(context.Background(), nil, nil, 10)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestItemCFDegenerateInput(t *testing.T) {
	e := NewItemCF(DefaultItemCFConfig())

	err := e.Train(context.Background(), dataset.NewTrainset(nil))
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("err = %v, want ErrDegenerateInput", err)
	}
	if e.IsTrained() {
		t.Error("engine reports trained after failed training")
	}
}

func TestItemCFSnapshotRoundTrip(t *testing.T) {
	src := NewItemCF(DefaultItemCFConfig())
	if err := src.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	state, err := src.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	dst := NewItemCF(DefaultItemCFConfig())
	if err := dst.LoadSnapshot(state); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if dst.Version() != src.Version() {
		t.Errorf("restored version = %d, want %d", dst.Version(), src.Version())
	}

	history := []library.RatedItem{{ItemID: "A", Score: 10}}
	want, _ := src.RecommendFromHistory(context.Background(), history, nil, 10)
	got, err := dst.RecommendFromHistory(context.Background(), history, nil, 10)
	if err != nil {
		t.Fatalf("RecommendFromHistory after restore: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("restored results = %v, want %v", got, want)
	}
	for i := range got {
		if got[i].ItemID != want[i].ItemID || !approx(got[i].Score, want[i].Score) {
			t.Errorf("restored result %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestItemCFSnapshotBadFormat(t *testing.T) {
	src := NewItemCF(DefaultItemCFConfig())
	if err := src.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	state, err := src.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	state.FormatVersion = 99

	dst := NewItemCF(DefaultItemCFConfig())
	if err := dst.LoadSnapshot(state); err == nil {
		t.Error("LoadSnapshot accepted unsupported format version")
	}
	if dst.IsTrained() {
		t.Error("engine reports trained after rejected snapshot")
	}
}

func TestItemCFTrainingIsDeterministic(t *testing.T) {
	a := NewItemCF(DefaultItemCFConfig())
	b := NewItemCF(DefaultItemCFConfig())
	if err := a.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train a: %v", err)
	}
	if err := b.Train(context.Background(), itemcfTrainset()); err != nil {
		t.Fatalf("Train b: %v", err)
	}

	sa, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot a: %v", err)
	}
	sb, err := b.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot b: %v", err)
	}

	if !reflect.DeepEqual(sa.ItemIDs, sb.ItemIDs) {
		t.Errorf("item order differs: %v vs %v", sa.ItemIDs, sb.ItemIDs)
	}
	if !reflect.DeepEqual(sa.Sim, sb.Sim) {
		t.Errorf("similarity matrix differs:\n%v\n%v", sa.Sim, sb.Sim)
	}
}

func TestItemCFVersionIncrements(t *testing.T) {
	e := NewItemCF(DefaultItemCFConfig())
	ts := itemcfTrainset()

	for want := 1; want <= 3; want++ {
		if err := e.Train(context.Background(), ts); err != nil {
			t.Fatalf("Train %d: %v", want, err)
		}
		if got := e.Version(); got != want {
			t.Errorf("Version = %d, want %d", got, want)
		}
	}
}
