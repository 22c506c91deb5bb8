// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package dataset

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/readcircle/recommender/internal/logging"
)

// staticSource is a RatingSource over an in-memory slice.
type staticSource struct {
	ratings []Rating
	err     error
}

func (s *staticSource) Ratings(ctx context.Context) ([]Rating, error) {
	return s.ratings, s.err
}

func newProvider(t *testing.T, ratings []Rating) *Provider {
	t.Helper()
	p := NewProvider(&staticSource{ratings: ratings}, logging.NewTestLogger(io.Discard))
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return p
}

func TestProviderLoadDedupesLastWins(t *testing.T) {
	p := newProvider(t, []Rating{
		{UserID: "u1", ItemID: "b1", Score: 3},
		{UserID: "u2", ItemID: "b1", Score: 8},
		{UserID: "u1", ItemID: "b1", Score: 9}, // re-rating overrides
	})

	ratings := p.Ratings()
	if len(ratings) != 2 {
		t.Fatalf("len(Ratings()) = %d, want 2", len(ratings))
	}
	if ratings[0].UserID != "u1" || ratings[0].Score != 9 {
		t.Errorf("ratings[0] = %+v, want u1/b1 score 9 in original position", ratings[0])
	}
	if ratings[1].UserID != "u2" {
		t.Errorf("ratings[1].UserID = %q, want u2", ratings[1].UserID)
	}
}

func TestProviderLoadPropagatesSourceFailure(t *testing.T) {
	p := NewProvider(&staticSource{err: ErrSourceUnavailable}, logging.NewTestLogger(io.Discard))

	err := p.Load(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Load() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestProviderFilteredItems(t *testing.T) {
	p := newProvider(t, []Rating{
		{UserID: "u1", ItemID: "b1", Score: 5},
		{UserID: "u2", ItemID: "b1", Score: 6},
		{UserID: "u3", ItemID: "b1", Score: 7},
		{UserID: "u1", ItemID: "b2", Score: 8},
	})

	tests := []struct {
		name      string
		threshold int
		want      []string
		exclude   []string
	}{
		{name: "threshold 1 keeps all", threshold: 1, want: []string{"b1", "b2"}},
		{name: "threshold 2 drops singleton", threshold: 2, want: []string{"b1"}, exclude: []string{"b2"}},
		{name: "threshold above max empties set", threshold: 4, exclude: []string{"b1", "b2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := p.FilteredItems(tt.threshold)
			for _, id := range tt.want {
				if _, ok := set[id]; !ok {
					t.Errorf("FilteredItems(%d) missing %q", tt.threshold, id)
				}
			}
			for _, id := range tt.exclude {
				if _, ok := set[id]; ok {
					t.Errorf("FilteredItems(%d) should not contain %q", tt.threshold, id)
				}
			}
		})
	}
}

func TestProviderBuildTrainset(t *testing.T) {
	p := newProvider(t, []Rating{
		{UserID: "u1", ItemID: "b1", Score: 5},
		{UserID: "u2", ItemID: "b1", Score: 6},
		{UserID: "u1", ItemID: "b2", Score: 8}, // below threshold 2
		{UserID: "u2", ItemID: "b3", Score: 4},
		{UserID: "u3", ItemID: "b3", Score: 9},
	})

	ts := p.BuildTrainset(2)

	if ts.NumItems() != 2 {
		t.Fatalf("NumItems() = %d, want 2 (b2 filtered)", ts.NumItems())
	}
	if ts.NumUsers() != 3 {
		t.Errorf("NumUsers() = %d, want 3", ts.NumUsers())
	}

	if _, ok := ts.InnerItem("b2"); ok {
		t.Error("InnerItem(b2) should not be present below threshold")
	}

	// Inner indices follow first-seen order.
	if i, _ := ts.InnerItem("b1"); i != 0 {
		t.Errorf("InnerItem(b1) = %d, want 0", i)
	}
	if i, _ := ts.InnerItem("b3"); i != 1 {
		t.Errorf("InnerItem(b3) = %d, want 1", i)
	}

	u2, ok := ts.InnerUser("u2")
	if !ok {
		t.Fatal("InnerUser(u2) not found")
	}
	got := ts.UserRatings(u2)
	if len(got) != 2 {
		t.Fatalf("len(UserRatings(u2)) = %d, want 2", len(got))
	}
	if ts.RawItem(got[0].Index) != "b1" || got[0].Score != 6 {
		t.Errorf("UserRatings(u2)[0] = %+v, want b1 score 6", got[0])
	}

	b3, _ := ts.InnerItem("b3")
	if len(ts.ItemRatings(b3)) != 2 {
		t.Errorf("len(ItemRatings(b3)) = %d, want 2", len(ts.ItemRatings(b3)))
	}
}

func TestProviderBuildTrainsetDeterministic(t *testing.T) {
	ratings := []Rating{
		{UserID: "u1", ItemID: "b1", Score: 5},
		{UserID: "u2", ItemID: "b1", Score: 6},
		{UserID: "u2", ItemID: "b2", Score: 7},
		{UserID: "u3", ItemID: "b2", Score: 8},
	}

	a := newProvider(t, ratings).BuildTrainset(1)
	b := newProvider(t, ratings).BuildTrainset(1)

	if a.NumUsers() != b.NumUsers() || a.NumItems() != b.NumItems() {
		t.Fatalf("trainset shapes differ: (%d,%d) vs (%d,%d)",
			a.NumUsers(), a.NumItems(), b.NumUsers(), b.NumItems())
	}
	for i := 0; i < a.NumItems(); i++ {
		if a.RawItem(i) != b.RawItem(i) {
			t.Errorf("RawItem(%d) = %q vs %q, want identical assignment", i, a.RawItem(i), b.RawItem(i))
		}
	}
}
