package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/weldr-dev/runr/internal/clock"
	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/gitutil"
	"github.com/weldr-dev/runr/internal/metrics"
	"github.com/weldr-dev/runr/internal/store"
	"github.com/weldr-dev/runr/internal/supervisor"
	"github.com/weldr-dev/runr/internal/verify"
	"github.com/weldr-dev/runr/internal/worker"
	"github.com/weldr-dev/runr/internal/worktree"
)

// newRunID generates a run identifier, in the teacher's style of using a
// real UUID library rather than hand-rolled randomness.
func newRunID() string {
	return uuid.NewString()
}

// resolveRepoRoot finds the git repository root containing the current
// working directory.
func resolveRepoRoot(ctx context.Context) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "get working directory")
	}
	return gitutil.DetectRepoRoot(ctx, wd)
}

// buildEngine assembles a supervisor.Engine wired to the default worker
// executor, command runner, and Prometheus-backed metrics recorder, matching
// how a real invocation runs (spec.md §4.4, §4.6, §4.8).
func buildEngine(s *store.Store, cfg *config.Config, logger zerolog.Logger, rec metrics.Recorder, opts ...supervisor.Option) *supervisor.Engine {
	workerAdapter := worker.New(worker.DefaultExecutor{}, rec, logger)
	verifyEngine := verify.New(verify.DefaultCommandRunner{}, logger)
	allOpts := append([]supervisor.Option{supervisor.WithMetrics(rec)}, opts...)
	return supervisor.New(s, workerAdapter, verifyEngine, *cfg, logger, allOpts...)
}

// withOwnedPaths constrains an orchestrated track step's engine to its
// declared ownership claim (spec.md §4.2, §4.11).
func withOwnedPaths(patterns []string) supervisor.Option {
	return supervisor.WithOwnedPaths(patterns)
}

// buildWorktreeManager assembles the Worktree Manager with dependency
// directories and ignore patterns sourced from scope config (spec.md §4.5).
func buildWorktreeManager(repoRoot string, cfg *config.Config, logger zerolog.Logger) *worktree.Manager {
	return worktree.New(repoRoot, repoRoot, nil, cfg.Scope.Denylist, logger)
}

// newStoreClock is the clock every store/orchestrator instance constructed
// from the CLI uses; overridable only in tests that call the packages
// directly.
func newStoreClock() clock.Clock { return clock.RealClock{} }

// emit renders v as JSON or as the given text rendering, depending on the
// --output flag, to w.
func emit(w io.Writer, format string, v any, text string) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// loadConfig loads layered configuration (spec.md §6).
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return cfg, nil
}
