package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weldr-dev/runr/internal/clock"
	"github.com/weldr-dev/runr/internal/diagnosis"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/store"
)

func TestRunDiagnose_UnknownRunFails(t *testing.T) {
	chdirTemp(t)

	cmd := cmdWithOutput(OutputJSON)
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	err := runDiagnose(cmd, "does-not-exist", 20)
	require.Error(t, err)
}

func TestRunDiagnose_ReportsStoppedRunFamily(t *testing.T) {
	repoRoot := chdirTemp(t)
	runsRoot := filepath.Join(repoRoot, ".runr", "runs")

	fixed := clock.MockClock{FixedTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := store.Init(runsRoot, "run-diag", fixed)
	require.NoError(t, err)

	stop := domain.StopComplete
	require.NoError(t, s.WriteState(&domain.RunState{
		SchemaVersion: 1,
		RunID:         "run-diag",
		Phase:         domain.PhaseStopped,
		StopReason:    &stop,
		TaskText:      "ship the thing",
	}))
	_, err = s.AppendEvent(domain.EventStop, "supervisor", map[string]any{"reason": string(stop)})
	require.NoError(t, err)

	cmd := cmdWithOutput(OutputJSON)
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, runDiagnose(cmd, "run-diag", 20))

	var report diagnosis.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, domain.FamilySuccess, report.StopReasonFamily)
}

func TestRunDiagnose_RecentLimitsTimelineWindow(t *testing.T) {
	repoRoot := chdirTemp(t)
	runsRoot := filepath.Join(repoRoot, ".runr", "runs")

	fixed := clock.MockClock{FixedTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := store.Init(runsRoot, "run-window", fixed)
	require.NoError(t, err)

	stop := domain.StopComplete
	require.NoError(t, s.WriteState(&domain.RunState{
		SchemaVersion: 1,
		RunID:         "run-window",
		Phase:         domain.PhaseStopped,
		StopReason:    &stop,
		TaskText:      "window task",
	}))
	for i := 0; i < 5; i++ {
		_, err := s.AppendEvent(domain.EventPhaseTransition, "supervisor", map[string]any{"i": i})
		require.NoError(t, err)
	}

	cmd := cmdWithOutput(OutputText)
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, runDiagnose(cmd, "run-window", 2))
	assert.Contains(t, buf.String(), "run-window")
}
