// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - "Did you mean" hints for mistyped commands and flags.
package cli

import (
	"sort"
	"strings"
)

// Suggest returns the candidate closest to input, or "" when nothing is
// near enough. The allowed edit distance grows with the input length.
func Suggest(input string, candidates []string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDistance := "", maxDistance+1
	for _, c := range sorted {
		d := levenshteinDistance(input, c)
		if d == 0 {
			return ""
		}
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}

// SuggestCommand suggests a command name for a mistyped one.
func SuggestCommand(input string) string {
	names := make([]string, 0, len(commandAliases))
	for name := range commandAliases {
		if len(name) > 1 {
			names = append(names, name)
		}
	}
	return Suggest(input, names)
}

// SuggestFlag suggests a long flag name for a mistyped one.
func SuggestFlag(input string) string {
	var names []string
	for _, name := range append(append([]string(nil), boolFlags...), stringFlags...) {
		if len(name) > 1 {
			names = append(names, name)
		}
	}
	return Suggest(strings.TrimLeft(input, "-"), names)
}

// levenshteinDistance is the number of single-byte insertions, deletions
// or substitutions turning s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
