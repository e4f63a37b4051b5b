// Package strings parses list-valued query parameters.
package strings

import "strings"

// SplitList flattens repeated and comma-separated values into one list.
// Elements are trimmed, empties dropped, and the first occurrence wins.
//
//	SplitList([]string{"a, b", "a", " ,c"}) // [a b c]
func SplitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return Dedupe(out)
}

// Dedupe drops repeats in place, keeping order.
func Dedupe[T comparable](values []T) []T {
	if len(values) < 2 {
		return values
	}
	seen := make(map[T]struct{}, len(values))
	kept := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		kept = append(kept, v)
	}
	return kept
}
