package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weldr-dev/runr/internal/domain"
)

func TestListRuns(t *testing.T) {
	root := t.TempDir()

	_, err := Init(root, "run-a", nil)
	require.NoError(t, err)
	_, err = Init(root, "run-b", nil)
	require.NoError(t, err)

	runs, err := ListRuns(root)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListRunsEmptyRoot(t *testing.T) {
	runs, err := ListRuns(t.TempDir() + "/does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGC(t *testing.T) {
	root := t.TempDir()
	now := time.Now().Add(time.Hour)

	s, err := Init(root, "old-complete", nil)
	require.NoError(t, err)
	complete := domain.StopComplete
	require.NoError(t, s.WriteState(&domain.RunState{SchemaVersion: 1, Phase: domain.PhaseStopped, StopReason: &complete}))

	s2, err := Init(root, "old-active", nil)
	require.NoError(t, err)
	require.NoError(t, s2.WriteState(&domain.RunState{SchemaVersion: 1, Phase: domain.PhaseImplement, MilestoneIndex: 0, Milestones: []domain.Milestone{{}}}))

	t.Run("dry run reports without removing", func(t *testing.T) {
		removed, err := GC(root, 0, true, now)
		require.NoError(t, err)
		assert.Contains(t, removed, "old-complete")
		assert.NotContains(t, removed, "old-active")

		runs, err := ListRuns(root)
		require.NoError(t, err)
		assert.Len(t, runs, 2, "dry run must not delete anything")
	})

	t.Run("removes only terminal runs", func(t *testing.T) {
		removed, err := GC(root, 0, false, now)
		require.NoError(t, err)
		assert.Equal(t, []string{"old-complete"}, removed)

		runs, err := ListRuns(root)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "old-active", runs[0].RunID)
	})
}
