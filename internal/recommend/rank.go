// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package recommend

import (
	"math"
	"sort"
)

// accumulator sums candidate scores while remembering first-touch order, so
// that ties rank in the order candidates were first seen regardless of map
// iteration order.
type accumulator struct {
	order  []string
	scores map[string]float64
}

func newAccumulator() *accumulator {
	return &accumulator{scores: make(map[string]float64)}
}

func (a *accumulator) add(id string, delta float64) {
	if _, ok := a.scores[id]; !ok {
		a.order = append(a.order, id)
	}
	a.scores[id] += delta
}

// ranked returns the accumulated candidates in descending score order,
// skipping excluded ids and candidates with an exactly-zero or NaN total.
// Negative totals survive and rank at the bottom. Ties keep first-touch
// order. At most limit results are returned; a non-positive limit means
// no cap.
func (a *accumulator) ranked(exclude map[string]struct{}, limit int) []Scored {
	out := make([]Scored, 0, len(a.order))
	for _, id := range a.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		score := a.scores[id]
		if math.IsNaN(score) || score == 0 {
			continue
		}
		out = append(out, Scored{ItemID: id, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
