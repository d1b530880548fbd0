package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedFiles(t *testing.T) {
	dir := initRepo(t)
	base, err := HeadSHA(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o600))
	run(t, dir, "add", ".")
	run(t, dir, "commit", "-m", "add b")

	files, err := ChangedFiles(context.Background(), dir, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, files)
}

func TestChangedFiles_NoDiff(t *testing.T) {
	dir := initRepo(t)
	head, err := HeadSHA(context.Background(), dir)
	require.NoError(t, err)

	files, err := ChangedFiles(context.Background(), dir, head)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStatusChangedFiles(t *testing.T) {
	dir := initRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("modified"), 0o600))

	files, err := StatusChangedFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Contains(t, files, "untracked.txt")
	assert.Contains(t, files, "a.txt")
}

func TestStatusChangedFiles_Clean(t *testing.T) {
	dir := initRepo(t)
	files, err := StatusChangedFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStatusChangedFiles_Rename(t *testing.T) {
	dir := initRepo(t)
	run(t, dir, "mv", "a.txt", "renamed.txt")
	run(t, dir, "add", "-A")

	files, err := StatusChangedFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Contains(t, files, "a.txt")
	assert.Contains(t, files, "renamed.txt")
}

func TestCurrentBranch(t *testing.T) {
	dir := initRepo(t)
	run(t, dir, "checkout", "-b", "feature")

	branch, err := CurrentBranch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "feature", branch)
}

func TestBranchExists(t *testing.T) {
	dir := initRepo(t)
	run(t, dir, "branch", "release")

	assert.True(t, BranchExists(context.Background(), dir, "release"))
	assert.False(t, BranchExists(context.Background(), dir, "does-not-exist"))
}

func TestConflictedFiles(t *testing.T) {
	dir := initRepo(t)
	base, err := CurrentBranch(context.Background(), dir)
	require.NoError(t, err)

	run(t, dir, "checkout", "-b", "ours")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("ours"), 0o600))
	run(t, dir, "commit", "-am", "ours change")

	run(t, dir, "checkout", base)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("theirs"), 0o600))
	run(t, dir, "commit", "-am", "theirs change")

	cmd := exec.CommandContext(context.Background(), "git", "merge", "ours")
	cmd.Dir = dir
	_ = cmd.Run() // expected to fail with a conflict

	files, err := ConflictedFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, files)
}
