// Package scope implements the Scope Guard: it decides, for a set of
// changed paths, whether they conform to a run's frozen scope lock
// (spec.md §4.2).
//
// Glob semantics follow bmatcuk/doublestar: standard shell glob plus `**`
// for arbitrary depth, matching the teacher's reliance on doublestar for
// the same job in its backlog/task filtering.
package scope

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/weldr-dev/runr/internal/domain"
)

// IgnoreChecker reports whether the repository's ignore mechanism (e.g.
// `git check-ignore`) considers path ignored. A non-nil error means the
// query itself failed; callers must then treat every path as semantic
// (fail-safe strict), never as environmental.
type IgnoreChecker func(path string) (ignored bool, err error)

// Partition splits changed paths into semantic (subject to scope decisions)
// and environmental (excluded) sets (spec.md §4.2).
//
// A path is environmental if it matches envAllowlist or the ignore checker
// reports it ignored. If ignoreCheck is nil or returns an error for a given
// path, that path is treated as semantic — fail-safe strict.
func Partition(changedPaths []string, envAllowlist []string, ignoreCheck IgnoreChecker) (semantic, environmental []string) {
	for _, p := range changedPaths {
		if matchAny(p, envAllowlist) {
			environmental = append(environmental, p)
			continue
		}
		if ignoreCheck != nil {
			ignored, err := ignoreCheck(p)
			if err == nil && ignored {
				environmental = append(environmental, p)
				continue
			}
		}
		semantic = append(semantic, p)
	}
	return semantic, environmental
}

// ViolationReason enumerates the ways a change set can fail scope checking
// (spec.md §4.2).
type ViolationReason string

// Known violation reasons.
const (
	ReasonDirtyWorktree     ViolationReason = "dirty_worktree"
	ReasonScopeViolation    ViolationReason = "scope_violation"
	ReasonLockfileRestricted ViolationReason = "lockfile_restricted"
)

// Violation reports why Check rejected a change set.
type Violation struct {
	Reasons     []ViolationReason
	FilesByReason map[ViolationReason][]string
}

// Error implements error so Violation can be returned/wrapped directly.
func (v *Violation) Error() string {
	var b strings.Builder
	b.WriteString("scope violation: ")
	for i, r := range v.Reasons {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(r))
		b.WriteString(" (")
		b.WriteString(strings.Join(v.FilesByReason[r], ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (v *Violation) add(reason ViolationReason, file string) {
	v.Reasons = appendUnique(v.Reasons, reason)
	if v.FilesByReason == nil {
		v.FilesByReason = make(map[ViolationReason][]string)
	}
	v.FilesByReason[reason] = append(v.FilesByReason[reason], file)
}

func appendUnique(reasons []ViolationReason, r ViolationReason) []ViolationReason {
	for _, existing := range reasons {
		if existing == r {
			return reasons
		}
	}
	return append(reasons, r)
}

// Check validates semanticPaths against the scope lock (spec.md §4.2).
// dirty reports whether the worktree carries changes outside the tracked
// diff (e.g. untracked files the caller already knows are unaccounted for);
// when true it contributes a dirty_worktree violation independent of the
// per-file checks below.
func Check(semanticPaths []string, lock domain.ScopeLock, dirty bool) *Violation {
	var v Violation
	if dirty {
		v.add(ReasonDirtyWorktree, "")
	}

	for _, p := range semanticPaths {
		if len(lock.Allowlist) > 0 && !matchAny(p, lock.Allowlist) {
			v.add(ReasonScopeViolation, p)
			continue
		}
		if matchAny(p, lock.Denylist) {
			v.add(ReasonScopeViolation, p)
			continue
		}
		if !lock.AllowDeps && matchAny(p, lock.Lockfiles) {
			v.add(ReasonLockfileRestricted, p)
		}
	}

	if len(v.Reasons) == 0 {
		return nil
	}
	return &v
}

// OwnershipViolation reports paths that fall outside a track's declared
// ownership patterns (spec.md §4.2, §4.11).
type OwnershipViolation struct {
	ViolatingFiles []string
}

func (o *OwnershipViolation) Error() string {
	return "ownership violation: " + strings.Join(o.ViolatingFiles, ", ")
}

// CheckOwnership enforces ownedPatterns against semanticPaths. It is a
// no-op (always Ok) when ownedPatterns is empty (spec.md §4.2).
func CheckOwnership(semanticPaths []string, ownedPatterns []string) *OwnershipViolation {
	if len(ownedPatterns) == 0 {
		return nil
	}
	var violating []string
	for _, p := range semanticPaths {
		if !matchAny(p, ownedPatterns) {
			violating = append(violating, p)
		}
	}
	if len(violating) == 0 {
		return nil
	}
	return &OwnershipViolation{ViolatingFiles: violating}
}

// matchAny reports whether path matches any of patterns, treating a
// trailing "/" as a "prefix/**" directory match (spec.md §4.2).
func matchAny(path string, patterns []string) bool {
	path = strings.TrimPrefix(path, "./")
	for _, pattern := range patterns {
		if matchOne(path, pattern) {
			return true
		}
	}
	return false
}

func matchOne(path, pattern string) bool {
	if strings.HasSuffix(pattern, "/") {
		pattern = strings.TrimSuffix(pattern, "/") + "/**"
	}
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false
	}
	return ok
}

// AffectedPaths returns the conservative set of paths a rename touches:
// both the old and new path count as touched (spec.md §4.2).
func AffectedPaths(oldPath, newPath string) []string {
	if oldPath == newPath {
		return []string{oldPath}
	}
	return []string{oldPath, newPath}
}
