package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGitCommand(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.CommandContext(context.Background(), "git", args...) //#nosec G204 -- test code
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
}

func TestNewRunID_IsUniqueAndNonEmpty(t *testing.T) {
	t.Parallel()

	a := newRunID()
	b := newRunID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestResolveRepoRoot(t *testing.T) {
	dir := t.TempDir()
	runGitCommand(t, dir, "init")

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { require.NoError(t, os.Chdir(oldWd)) }()
	require.NoError(t, os.Chdir(nested))

	root, err := resolveRepoRoot(context.Background())
	require.NoError(t, err)

	wantRoot, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestResolveRepoRoot_NotAGitRepo(t *testing.T) {
	dir := t.TempDir()

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { require.NoError(t, os.Chdir(oldWd)) }()
	require.NoError(t, os.Chdir(dir))

	_, err = resolveRepoRoot(context.Background())
	require.Error(t, err)
}

func TestEmit_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, emit(&buf, OutputText, map[string]string{"a": "b"}, "human readable line"))
	assert.Equal(t, "human readable line\n", buf.String())
}

func TestEmit_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, emit(&buf, OutputJSON, payload{Name: "x"}, "ignored"))

	var got payload
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "x", got.Name)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestNewStoreClock_ReturnsRealClock(t *testing.T) {
	t.Parallel()

	c := newStoreClock()
	require.NotNil(t, c)
	assert.False(t, c.Now().IsZero())
}
