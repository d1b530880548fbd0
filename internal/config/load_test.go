package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	defer func() { _ = os.Chdir(oldWd) }()

	t.Setenv("HOME", tempDir)

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "trunk", cfg.Workflow.Mode)
	assert.Equal(t, "main", cfg.Workflow.IntegrationBranch)
	assert.True(t, cfg.Resilience.AutoResume)
}

func TestLoadFromPathsProjectOverridesGlobal(t *testing.T) {
	ctx := context.Background()

	globalDir := t.TempDir()
	projectDir := t.TempDir()

	globalConfig := filepath.Join(globalDir, "config.yaml")
	require.NoError(t, os.WriteFile(globalConfig, []byte(`
workflow:
  integration_branch: develop
  mode: trunk
workers:
  claude:
    bin: claude
    output: text
phases:
  plan: claude
  implement: claude
  review: claude
`), 0o600))

	projectConfig := filepath.Join(projectDir, "config.yaml")
	require.NoError(t, os.WriteFile(projectConfig, []byte(`
workflow:
  integration_branch: main
`), 0o600))

	cfg, err := LoadFromPaths(ctx, projectConfig, globalConfig)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Workflow.IntegrationBranch, "project config should override global")
	assert.Equal(t, "claude", cfg.Phases.Plan, "global-only keys should still merge in")
}

func TestLoadFromPathsMissingFilesAreIgnored(t *testing.T) {
	cfg, err := LoadFromPaths(context.Background(), "", "")
	require.Error(t, err, "defaults alone have no configured workers, so phase validation fails")
	assert.Nil(t, cfg)
}

func TestLoadFromPathsEnvOverride(t *testing.T) {
	t.Setenv("RUNR_WORKFLOW_INTEGRATION_BRANCH", "release")

	globalDir := t.TempDir()
	globalConfig := filepath.Join(globalDir, "config.yaml")
	require.NoError(t, os.WriteFile(globalConfig, []byte(`
workflow:
  integration_branch: main
workers:
  claude:
    bin: claude
    output: text
phases:
  plan: claude
  implement: claude
  review: claude
`), 0o600))

	cfg, err := LoadFromPaths(context.Background(), "", globalConfig)
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Workflow.IntegrationBranch)
}
