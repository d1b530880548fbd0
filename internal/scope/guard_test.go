package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weldr-dev/runr/internal/domain"
)

func TestPartition(t *testing.T) {
	t.Run("splits env-allowlisted paths into environmental", func(t *testing.T) {
		semantic, env := Partition([]string{"src/a.go", ".env.local"}, []string{".env*"}, nil)
		assert.Equal(t, []string{"src/a.go"}, semantic)
		assert.Equal(t, []string{".env.local"}, env)
	})

	t.Run("defers to the ignore checker", func(t *testing.T) {
		check := func(path string) (bool, error) { return path == "dist/bundle.js", nil }
		semantic, env := Partition([]string{"src/a.go", "dist/bundle.js"}, nil, check)
		assert.Equal(t, []string{"src/a.go"}, semantic)
		assert.Equal(t, []string{"dist/bundle.js"}, env)
	})

	t.Run("treats a failing ignore check as semantic (fail-safe strict)", func(t *testing.T) {
		check := func(path string) (bool, error) { return false, errors.New("git error") }
		semantic, env := Partition([]string{"src/a.go"}, nil, check)
		assert.Equal(t, []string{"src/a.go"}, semantic)
		assert.Empty(t, env)
	})
}

func TestCheck(t *testing.T) {
	lock := domain.ScopeLock{
		Allowlist: []string{"internal/**", "cmd/**"},
		Denylist:  []string{"internal/secret/**"},
		Lockfiles: []string{"go.sum", "go.mod"},
	}

	t.Run("passes files within the allowlist", func(t *testing.T) {
		v := Check([]string{"internal/foo/bar.go"}, lock, false)
		assert.Nil(t, v)
	})

	t.Run("flags a path outside the allowlist", func(t *testing.T) {
		v := Check([]string{"README.md"}, lock, false)
		if assert.NotNil(t, v) {
			assert.Contains(t, v.Reasons, ReasonScopeViolation)
			assert.Contains(t, v.FilesByReason[ReasonScopeViolation], "README.md")
		}
	})

	t.Run("flags a denylisted path even if allowlisted", func(t *testing.T) {
		v := Check([]string{"internal/secret/key.go"}, lock, false)
		if assert.NotNil(t, v) {
			assert.Contains(t, v.Reasons, ReasonScopeViolation)
		}
	})

	t.Run("flags lockfile changes unless allow_deps is set", func(t *testing.T) {
		v := Check([]string{"go.sum"}, lock, false)
		if assert.NotNil(t, v) {
			assert.Contains(t, v.Reasons, ReasonLockfileRestricted)
		}

		lockAllowed := lock
		lockAllowed.AllowDeps = true
		assert.Nil(t, Check([]string{"go.sum"}, lockAllowed, false))
	})

	t.Run("flags a dirty worktree independent of per-file checks", func(t *testing.T) {
		v := Check([]string{"internal/foo/bar.go"}, lock, true)
		if assert.NotNil(t, v) {
			assert.Contains(t, v.Reasons, ReasonDirtyWorktree)
		}
	})

	t.Run("reports no violation for empty input", func(t *testing.T) {
		assert.Nil(t, Check(nil, lock, false))
	})
}

func TestViolationError(t *testing.T) {
	v := &Violation{}
	v.add(ReasonScopeViolation, "a.go")
	v.add(ReasonLockfileRestricted, "go.sum")
	msg := v.Error()
	assert.Contains(t, msg, "scope_violation (a.go)")
	assert.Contains(t, msg, "lockfile_restricted (go.sum)")
}

func TestCheckOwnership(t *testing.T) {
	t.Run("no-op when no owned patterns configured", func(t *testing.T) {
		assert.Nil(t, CheckOwnership([]string{"any/path.go"}, nil))
	})

	t.Run("flags files outside the owned patterns", func(t *testing.T) {
		v := CheckOwnership([]string{"internal/trackA/x.go", "internal/trackB/y.go"}, []string{"internal/trackA/**"})
		if assert.NotNil(t, v) {
			assert.Equal(t, []string{"internal/trackB/y.go"}, v.ViolatingFiles)
		}
	})
}

func TestMatchAny(t *testing.T) {
	assert.True(t, matchAny("internal/foo/bar.go", []string{"internal/**"}))
	assert.True(t, matchAny("dist/app.js", []string{"dist/"}))
	assert.False(t, matchAny("cmd/main.go", []string{"internal/**"}))
}

func TestDefaultEnvAllowlist(t *testing.T) {
	semantic, env := Partition([]string{"src/a.go", ".DS_Store", "vendor/lib/x.go"}, DefaultEnvAllowlist(), nil)
	assert.Equal(t, []string{"src/a.go"}, semantic)
	assert.ElementsMatch(t, []string{".DS_Store", "vendor/lib/x.go"}, env)
}

func TestAffectedPaths(t *testing.T) {
	assert.Equal(t, []string{"a.go"}, AffectedPaths("a.go", "a.go"))
	assert.Equal(t, []string{"a.go", "b.go"}, AffectedPaths("a.go", "b.go"))
}
