// Package worktree implements the Worktree Manager: isolated per-run git
// checkouts used by the Supervisor Loop (spec.md §4.5). It is grounded in
// the teacher's internal/workspace/worktree.go GitWorktreeRunner, adapted
// from per-task ticket workspaces to per-run supervised checkouts.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/gitutil"
)

// Result is returned by Create/Recreate.
type Result struct {
	Path           string
	BranchMismatch bool // set by Recreate when the existing worktree's branch differs from branchName
}

// GCReport summarizes a GC pass.
type GCReport struct {
	Removed    []string
	DryRun     bool
	SkippedErr map[string]string
}

// Manager creates, recreates, and removes isolated worktrees for runs
// (spec.md §4.5).
type Manager struct {
	sourceRepo  string // the primary checkout worktrees are branched from
	worktreeDir string // parent directory worktrees are created under, sibling to sourceRepo by default
	depDirs     []string
	ignorePatterns []string
	logger      zerolog.Logger
}

// New constructs a Manager. depDirs names directories (relative to
// sourceRepo) symlinked into every new worktree when present, e.g.
// "node_modules", "vendor". ignorePatterns are injected into the new
// worktree's exclude file so the symlinks never appear as untracked
// changes.
func New(sourceRepo, worktreeDir string, depDirs, ignorePatterns []string, logger zerolog.Logger) *Manager {
	return &Manager{
		sourceRepo:     sourceRepo,
		worktreeDir:    worktreeDir,
		depDirs:        depDirs,
		ignorePatterns: ignorePatterns,
		logger:         logger,
	}
}

// Create creates a sibling checkout for runID on a fresh branch cut from
// baseSHA (spec.md §4.5 create).
func (m *Manager) Create(ctx context.Context, runID, baseSHA, branchName string) (Result, error) {
	path, err := m.uniquePath(runID)
	if err != nil {
		return Result{}, err
	}

	if _, err := gitutil.Run(ctx, m.sourceRepo, "worktree", "add", "-b", branchName, path, baseSHA); err != nil {
		return Result{}, errors.Wrap(err, "create worktree for run "+runID)
	}

	if err := m.linkDependencies(path); err != nil {
		return Result{}, err
	}
	if err := m.injectIgnorePatterns(ctx, path); err != nil {
		return Result{}, err
	}

	clean, err := gitutil.IsClean(ctx, path)
	if err != nil {
		return Result{}, errors.Wrap(err, "check worktree cleanliness after setup")
	}
	if !clean {
		return Result{}, errors.Wrap(errors.ErrWorktreeDirty, "worktree dirty immediately after dependency symlinking")
	}

	return Result{Path: path}, nil
}

// Recreate is idempotent: if a worktree already exists for runID it is
// reused unchanged when its branch matches and force is not set; otherwise
// it is removed and rebuilt. A branch mismatch is reported to the caller so
// it can record a timeline event (spec.md §4.5 recreate).
func (m *Manager) Recreate(ctx context.Context, runID, baseSHA, branchName string, force bool) (Result, error) {
	path := m.pathFor(runID)

	exists, currentBranch, err := m.existing(ctx, path)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return m.Create(ctx, runID, baseSHA, branchName)
	}

	mismatch := currentBranch != "" && currentBranch != branchName
	if !mismatch && !force {
		return Result{Path: path}, nil
	}

	if err := m.Remove(ctx, path); err != nil {
		return Result{}, err
	}
	res, err := m.Create(ctx, runID, baseSHA, branchName)
	if err != nil {
		return Result{}, err
	}
	res.BranchMismatch = mismatch
	return res, nil
}

// Remove detaches and deletes the worktree at path (spec.md §4.5 remove).
// It never touches run-store artifacts or state.
func (m *Manager) Remove(ctx context.Context, path string) error {
	if _, err := gitutil.Run(ctx, m.sourceRepo, "worktree", "remove", "--force", path); err != nil {
		m.logger.Warn().Err(err).Str("path", path).Msg("git worktree remove failed, falling back to rm")
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return errors.Wrap(errors.ErrGitOperation, "remove worktree dir: "+rmErr.Error())
		}
	}
	_, _ = gitutil.Run(ctx, m.sourceRepo, "worktree", "prune")
	return nil
}

// GC removes worktrees under worktreeDir whose directory modification time
// is older than olderThan, leaving run-store artifacts untouched (spec.md
// §4.5 gc). dryRun reports what would be removed without removing it.
//
// Stale worktrees are independent of one another, so actual removal (unlike
// dry-run listing) fans out across an errgroup the same way the teacher's
// validation package runs its lint/test commands concurrently
// (internal/validation/parallel.go), guarding the shared report with a
// mutex rather than a channel since results arrive unordered.
func (m *Manager) GC(ctx context.Context, olderThan time.Duration, dryRun bool, now time.Time) (GCReport, error) {
	report := GCReport{DryRun: dryRun, SkippedErr: map[string]string{}}

	entries, err := os.ReadDir(m.worktreeDir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, errors.Wrap(errors.ErrStoreIO, "read worktree dir: "+err.Error())
	}

	cutoff := now.Add(-olderThan)
	var stale []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		full := filepath.Join(m.worktreeDir, e.Name())
		info, err := e.Info()
		if err != nil {
			report.SkippedErr[full] = err.Error()
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		stale = append(stale, full)
	}

	if dryRun {
		report.Removed = append(report.Removed, stale...)
		sort.Strings(report.Removed)
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, full := range stale {
		full := full
		g.Go(func() error {
			err := m.Remove(gctx, full)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.SkippedErr[full] = err.Error()
			} else {
				report.Removed = append(report.Removed, full)
			}
			return nil
		})
	}
	_ = g.Wait() // per-removal errors are collected in SkippedErr, not propagated

	sort.Strings(report.Removed)
	return report, nil
}

func (m *Manager) pathFor(runID string) string {
	return filepath.Join(m.worktreeDir, "run-"+runID)
}

// uniquePath returns pathFor(runID), or a numbered suffix if it is
// somehow already occupied by something git doesn't know about.
func (m *Manager) uniquePath(runID string) (string, error) {
	base := m.pathFor(runID)
	candidate := base
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", errors.Wrap(errors.ErrStoreIO, "stat worktree path: "+err.Error())
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
		if i > 1000 {
			return "", errors.Wrap(errors.ErrWorktreeExists, "could not find unique worktree path for run "+runID)
		}
	}
}

// existing reports whether path is a registered worktree of sourceRepo and,
// if so, the branch it is currently attached to.
func (m *Manager) existing(ctx context.Context, path string) (bool, string, error) {
	out, err := gitutil.Run(ctx, m.sourceRepo, "worktree", "list", "--porcelain")
	if err != nil {
		return false, "", errors.Wrap(err, "list worktrees")
	}
	for _, wt := range parseWorktreeList(out) {
		if wt.path == path {
			return true, wt.branch, nil
		}
	}
	return false, "", nil
}

type worktreeEntry struct {
	path   string
	branch string
}

// parseWorktreeList parses `git worktree list --porcelain` output, the same
// record shape the teacher's parseWorktreeList handles (blank-line
// delimited records with "worktree"/"branch"/"detached" keys).
func parseWorktreeList(out string) []worktreeEntry {
	var entries []worktreeEntry
	var cur worktreeEntry
	flush := func() {
		if cur.path != "" {
			entries = append(entries, cur)
		}
		cur = worktreeEntry{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			cur.path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			cur.branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	flush()
	return entries
}

// linkDependencies symlinks configured dependency directories from the
// source checkout into the new worktree when present, so the implementer
// worker does not need to reinstall them per run (spec.md §4.5 create).
func (m *Manager) linkDependencies(worktreePath string) error {
	for _, dep := range m.depDirs {
		src := filepath.Join(m.sourceRepo, dep)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		} else if err != nil {
			return errors.Wrap(errors.ErrStoreIO, "stat dependency dir "+dep+": "+err.Error())
		}

		dst := filepath.Join(worktreePath, dep)
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return errors.Wrap(errors.ErrStoreIO, "mkdir for dependency symlink "+dep+": "+err.Error())
		}
		if err := os.Symlink(src, dst); err != nil {
			return errors.Wrap(errors.ErrStoreIO, "symlink dependency dir "+dep+": "+err.Error())
		}
	}
	return nil
}

// injectIgnorePatterns appends ignorePatterns to the worktree's private
// exclude file (.git/info/exclude equivalent for a linked worktree) so
// symlinked dependencies never show up as untracked changes (spec.md §4.5
// post-creation invariant).
func (m *Manager) injectIgnorePatterns(ctx context.Context, worktreePath string) error {
	if len(m.ignorePatterns) == 0 {
		return nil
	}
	gitDir, err := gitutil.Run(ctx, worktreePath, "rev-parse", "--git-dir")
	if err != nil {
		return errors.Wrap(err, "resolve git-dir for exclude injection")
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(worktreePath, gitDir)
	}
	excludePath := filepath.Join(gitDir, "info", "exclude")
	if err := os.MkdirAll(filepath.Dir(excludePath), 0o750); err != nil {
		return errors.Wrap(errors.ErrStoreIO, "mkdir info dir: "+err.Error())
	}

	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrap(errors.ErrStoreIO, "open exclude file: "+err.Error())
	}
	defer f.Close()

	for _, p := range m.ignorePatterns {
		if _, err := f.WriteString(p + "\n"); err != nil {
			return errors.Wrap(errors.ErrStoreIO, "write exclude pattern: "+err.Error())
		}
	}
	return nil
}
