// Package gitutil provides the shared git command execution helper used by
// the Worktree Manager and Checkpoint/Submit components (spec.md §4.5,
// §4.10). It is a narrower analogue of the teacher's internal/git package,
// scoped to exactly the plumbing this runtime drives git through.
package gitutil

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/weldr-dev/runr/internal/errors"
)

// Run executes a git command in workDir and returns trimmed stdout. Errors
// are wrapped with ErrGitOperation and carry stderr for debugging.
func Run(ctx context.Context, workDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...) //#nosec G204 -- args are constructed internally, never from worker/user text
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Wrapf(errors.ErrGitOperation, "git %s: %s", strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// DetectRepoRoot finds the top-level directory of the git repository
// containing path.
func DetectRepoRoot(ctx context.Context, path string) (string, error) {
	root, err := Run(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.Wrap(errors.ErrNotGitRepo, err.Error())
	}
	return root, nil
}

// IsClean reports whether the working tree at path has no uncommitted
// changes (spec.md §4.5 post-creation invariant, §4.10 require_clean_tree).
func IsClean(ctx context.Context, path string) (bool, error) {
	out, err := Run(ctx, path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// HeadSHA returns the current HEAD commit SHA at path.
func HeadSHA(ctx context.Context, path string) (string, error) {
	return Run(ctx, path, "rev-parse", "HEAD")
}

// ChangedFiles returns the set of paths that differ between base and HEAD
// (spec.md §4.2 scope checking input).
func ChangedFiles(ctx context.Context, path, base string) ([]string, error) {
	out, err := Run(ctx, path, "diff", "--name-only", base, "HEAD")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// StatusChangedFiles returns every path the working tree reports as changed
// (staged, unstaged, or untracked), via `git status --porcelain` (spec.md
// §4.8 IMPLEMENT: "compute changed files via the repository's status
// command"). A rename entry contributes both its old and new path.
func StatusChangedFiles(ctx context.Context, path string) ([]string, error) {
	out, err := Run(ctx, path, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	// Run trims its output, so a first entry whose index status is blank
	// (" M path") arrives without its leading space; restore it so every
	// line keeps its two-character status prefix.
	if len(out) > 2 && out[1] == ' ' && out[2] != ' ' {
		out = " " + out
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		rest := strings.TrimSpace(line[3:])
		if arrow := strings.Index(rest, " -> "); arrow != -1 {
			files = append(files, rest[:arrow], rest[arrow+len(" -> "):])
			continue
		}
		files = append(files, rest)
	}
	return files, nil
}

// CurrentBranch returns the name of the currently checked-out branch.
func CurrentBranch(ctx context.Context, path string) (string, error) {
	return Run(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists reports whether branch resolves to a commit in the
// repository at path (spec.md §4.10 submit validation "target branch
// exists").
func BranchExists(ctx context.Context, path, branch string) bool {
	_, err := Run(ctx, path, "rev-parse", "--verify", branch)
	return err == nil
}

// ConflictedFiles lists paths with unmerged state after a failed
// cherry-pick (spec.md §4.10 "list conflicted files").
func ConflictedFiles(ctx context.Context, path string) ([]string, error) {
	out, err := Run(ctx, path, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// IsIgnored reports whether path is matched by the repository's ignore
// mechanism, the IgnoreChecker the Scope Guard partition step relies on
// (spec.md §4.2). A non-nil error means the query failed and callers must
// treat the path as semantic (fail-safe strict).
func IsIgnored(ctx context.Context, repoPath, target string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "check-ignore", "-q", target) //#nosec G204 -- target is a tracked repo-relative path, not external input
	cmd.Dir = repoPath
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if ok := exitErrorAs(err, &exitErr); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, errors.Wrap(errors.ErrGitOperation, "check-ignore: "+err.Error())
}

func exitErrorAs(err error, target **exec.ExitError) bool {
	e, ok := err.(*exec.ExitError)
	if ok {
		*target = e
	}
	return ok
}
