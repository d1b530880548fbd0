// Package checkpoint implements the CHECKPOINT phase's commit creation and
// the Submit operation's cherry-pick integration flow (spec.md §4.10). It is
// grounded in the teacher's internal/git/commit.go (conventional-commit
// message shaping) and internal/hook/checkpoint.go (sidecar-style metadata
// records keyed by commit identity, rather than mutating the commit itself).
package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/gitutil"
)

// CommitPrefix is the deterministic prefix every milestone commit message
// starts with (spec.md §4.8 CHECKPOINT: "deterministic prefix including the
// milestone index").
const CommitPrefix = "runr(milestone %d):"

// BuildMessage formats a checkpoint commit's subject line.
func BuildMessage(milestoneIndex int, goal string) string {
	return fmt.Sprintf(CommitPrefix+" %s", milestoneIndex, strings.TrimSpace(goal))
}

// Create stages every change in worktreePath and commits it, returning the
// new commit SHA (spec.md §4.8 CHECKPOINT).
func Create(ctx context.Context, worktreePath string, milestoneIndex int, goal string) (string, error) {
	if _, err := gitutil.Run(ctx, worktreePath, "add", "-A"); err != nil {
		return "", errors.Wrap(err, "stage checkpoint changes")
	}
	msg := BuildMessage(milestoneIndex, goal)
	if _, err := gitutil.Run(ctx, worktreePath, "commit", "-m", msg); err != nil {
		return "", errors.Wrap(err, "create checkpoint commit")
	}
	sha, err := gitutil.HeadSHA(ctx, worktreePath)
	if err != nil {
		return "", errors.Wrap(err, "read checkpoint commit sha")
	}
	return sha, nil
}

// BuildSidecar assembles the CheckpointSidecar record for a completed
// milestone commit (spec.md §3 CheckpointSidecar).
func BuildSidecar(runID string, milestoneIndex int, goal, baseSHA, commitSHA string, evidence []domain.VerificationEvidence, timestamp time.Time) domain.CheckpointSidecar {
	return domain.CheckpointSidecar{
		SchemaVersion:  1,
		RunID:          runID,
		MilestoneIndex: milestoneIndex,
		MilestoneGoal:  goal,
		Verification:   evidence,
		BaseSHA:        baseSHA,
		CommitSHA:      commitSHA,
		Timestamp:      timestamp,
	}
}

// SortedConflicts returns files sorted for deterministic reporting (spec.md
// §4.10 "list conflicted files (sorted)").
func SortedConflicts(files []string) []string {
	out := append([]string(nil), files...)
	sort.Strings(out)
	return out
}

// SubmitOptions carries everything Submit needs to validate and execute one
// submission, gathered by the caller from RunState, the checkpoint sidecar,
// and config.WorkflowConfig so this package stays free of a store dependency.
type SubmitOptions struct {
	RepoPath      string
	CheckpointSHA string
	RunTerminal   bool

	TargetBranch        string
	SubmitStrategy      string
	RequireCleanTree    bool
	RequireVerification bool
	HasVerification     bool

	Push   bool
	DryRun bool
}

// SubmitResult reports what Submit validated and, unless DryRun, executed.
type SubmitResult struct {
	Plan          []string `json:"plan"`
	Applied       bool     `json:"applied"`
	TargetBranch  string   `json:"target_branch,omitempty"`
	CommitSHA     string   `json:"commit_sha,omitempty"`
	ConflictFiles []string `json:"conflict_files,omitempty"`
	Pushed        bool     `json:"pushed,omitempty"`
}

// Submit validates and, unless DryRun, executes the cherry-pick integration
// flow (spec.md §4.10). Only SubmitStrategy == config.SubmitCherryPick (or
// unset) is implemented; merge/rebase strategies are rejected up front.
// Validation then runs in a fixed order and stops at the first failure so
// callers get one actionable error:
//
//  1. the run carries a checkpoint commit SHA
//  2. the run is terminal
//  3. the working tree is clean, if require_clean_tree
//  4. the target branch exists
//  5. verification evidence is present, if require_verification
//
// On a dry run, every validation still runs and the plan is returned without
// touching the repository. Otherwise Submit checks out the target branch and
// cherry-picks the checkpoint commit; on conflict it aborts the cherry-pick,
// lists the conflicted files sorted, and returns ErrCherryPickConflict; on
// success it returns the new HEAD SHA and optionally pushes. The branch
// checked out at call time is always restored, on every path, best-effort.
func Submit(ctx context.Context, opts SubmitOptions) (*SubmitResult, error) {
	if opts.SubmitStrategy != "" && opts.SubmitStrategy != config.SubmitCherryPick {
		return nil, errors.Wrapf(errors.ErrUnsupportedSubmitStrategy,
			"%q; only %q is implemented", opts.SubmitStrategy, config.SubmitCherryPick)
	}
	if opts.CheckpointSHA == "" {
		return nil, errors.ErrNoCheckpoint
	}
	if !opts.RunTerminal {
		return nil, errors.Wrap(errors.ErrInvalidTransition, "submit requires a terminal run")
	}
	if opts.RequireCleanTree {
		clean, err := gitutil.IsClean(ctx, opts.RepoPath)
		if err != nil {
			return nil, errors.Wrap(err, "check working tree status")
		}
		if !clean {
			return nil, errors.Wrap(errors.ErrDirtyWorktree, "submit requires a clean working tree")
		}
	}
	if !gitutil.BranchExists(ctx, opts.RepoPath, opts.TargetBranch) {
		return nil, errors.Wrapf(errors.ErrTargetBranchMissing, "target branch %q does not exist", opts.TargetBranch)
	}
	if opts.RequireVerification && !opts.HasVerification {
		return nil, errors.Wrap(errors.ErrVerificationEvidenceMissing, "submit requires recorded verification evidence")
	}

	plan := []string{
		fmt.Sprintf("checkout %s", opts.TargetBranch),
		fmt.Sprintf("cherry-pick %s", opts.CheckpointSHA),
	}
	if opts.Push {
		plan = append(plan, fmt.Sprintf("push origin %s", opts.TargetBranch))
	}
	result := &SubmitResult{Plan: plan, TargetBranch: opts.TargetBranch}
	if opts.DryRun {
		return result, nil
	}

	startingBranch, err := gitutil.CurrentBranch(ctx, opts.RepoPath)
	if err != nil {
		return nil, errors.Wrap(err, "read starting branch")
	}
	defer func() {
		_, _ = gitutil.Run(ctx, opts.RepoPath, "checkout", startingBranch)
	}()

	if _, err := gitutil.Run(ctx, opts.RepoPath, "checkout", opts.TargetBranch); err != nil {
		return nil, errors.Wrap(err, "checkout target branch")
	}

	if _, err := gitutil.Run(ctx, opts.RepoPath, "cherry-pick", opts.CheckpointSHA); err != nil {
		conflicts, listErr := gitutil.ConflictedFiles(ctx, opts.RepoPath)
		_, _ = gitutil.Run(ctx, opts.RepoPath, "cherry-pick", "--abort")
		if listErr != nil {
			return nil, errors.Wrap(listErr, "list cherry-pick conflicts")
		}
		result.ConflictFiles = SortedConflicts(conflicts)
		return result, errors.ErrCherryPickConflict
	}

	commitSHA, err := gitutil.HeadSHA(ctx, opts.RepoPath)
	if err != nil {
		return nil, errors.Wrap(err, "read submitted commit sha")
	}
	result.CommitSHA = commitSHA
	result.Applied = true

	if opts.Push {
		if _, err := gitutil.Run(ctx, opts.RepoPath, "push", "origin", opts.TargetBranch); err != nil {
			return result, errors.Wrap(err, "push target branch")
		}
		result.Pushed = true
	}

	return result, nil
}
