// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package eval

import "sort"

// Grid maps parameter names to the values to sweep over.
type Grid map[string][]any

// Combinations expands a parameter grid into every combination of values.
//
// Parameter names are taken in sorted order and the right-most parameter
// varies fastest, so the output order is stable across runs and across Go
// versions. An empty grid yields a single empty combination.
func Combinations(grid Grid) []map[string]any {
	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 1
	for _, name := range names {
		total *= len(grid[name])
	}
	if total == 0 {
		return nil
	}

	out := make([]map[string]any, 0, total)
	indices := make([]int, len(names))

	for {
		combo := make(map[string]any, len(names))
		for i, name := range names {
			combo[name] = grid[name][indices[i]]
		}
		out = append(out, combo)

		// Advance like an odometer, last digit fastest.
		i := len(names) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(grid[names[i]]) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			break
		}
	}

	return out
}
