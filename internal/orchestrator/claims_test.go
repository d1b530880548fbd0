package orchestrator

import "testing"

func TestLiteralPrefix(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		want    string
	}{
		{"no wildcard", "internal/store/store.go", "internal/store/store.go"},
		{"star", "internal/store/*.go", "internal/store/"},
		{"question mark", "cmd/runr?.go", "cmd/runr"},
		{"bracket class", "internal/[a-z]/foo.go", "internal/"},
		{"wildcard at start", "*.go", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := literalPrefix(tc.pattern); got != tc.want {
				t.Errorf("literalPrefix(%q) = %q, want %q", tc.pattern, got, tc.want)
			}
		})
	}
}

func TestPatternsConflict(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical literal paths", "internal/store/store.go", "internal/store/store.go", true},
		{"one prefix of the other", "internal/store/", "internal/store/store.go", true},
		{"disjoint directories", "internal/store/*.go", "internal/worker/*.go", false},
		{"shared directory glob", "internal/cli/*.go", "internal/cli/run.go", true},
		{"reversed argument order still conflicts", "internal/cli/run.go", "internal/cli/*.go", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := patternsConflict(tc.a, tc.b); got != tc.want {
				t.Errorf("patternsConflict(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestClaimsConflict(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want bool
	}{
		{"no overlap", []string{"internal/store/*.go"}, []string{"internal/worker/*.go"}, false},
		{"overlap on one of many patterns", []string{"internal/store/*.go", "internal/cli/*.go"}, []string{"internal/cli/run.go"}, true},
		{"empty claims never conflict", nil, []string{"internal/cli/*.go"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := claimsConflict(tc.a, tc.b); got != tc.want {
				t.Errorf("claimsConflict(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
