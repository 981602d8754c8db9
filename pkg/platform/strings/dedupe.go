// Package strings provides string slice helpers used when normalizing
// caller-supplied identifier lists.
package strings

import (
	"strings"
)

// DedupeAndTrim trims whitespace from every element and drops empties and
// repeats, keeping first-occurrence order. Record id lists arrive from
// callers with inconsistent padding, so this runs before any list is
// persisted or attached to a ledger entry.
//
//	DedupeAndTrim([]string{" REC-1 ", "REC-2", "REC-1", ""})
//	// []string{"REC-1", "REC-2"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower additionally lowercases each element, for lists where
// case is not significant.
//
//	DedupeAndTrimLower([]string{" FOO ", "bar", "Foo"})
//	// []string{"foo", "bar"}
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
