package orchestrator

import "strings"

// patternsConflict applies spec.md §4.11's "conservative glob-intersection":
// two patterns collide whenever the literal prefix preceding either
// pattern's first wildcard character is a prefix of the other's (in either
// direction). This over-approximates overlap deliberately — a false
// conflict only costs a serialize wait, a false clearance risks a real
// collision — matching the spec's "conservative" directive.
func patternsConflict(a, b string) bool {
	pa, pb := literalPrefix(a), literalPrefix(b)
	return strings.HasPrefix(pa, pb) || strings.HasPrefix(pb, pa)
}

// literalPrefix returns the portion of a glob pattern before its first
// wildcard metacharacter ('*', '?', '[').
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// claimsConflict reports whether any pattern in a collides with any
// pattern in b.
func claimsConflict(a, b []string) bool {
	for _, pa := range a {
		for _, pb := range b {
			if patternsConflict(pa, pb) {
				return true
			}
		}
	}
	return false
}
