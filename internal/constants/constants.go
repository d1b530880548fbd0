// Package constants provides centralized constant values used throughout runr.
// This package is the single source of truth for shared constants and MUST NOT
// import any other internal package.
package constants

import "time"

// Directory and file names used for run-store persistence (spec.md §6).
const (
	// RunsHome is the hidden directory name runr uses under the repository
	// root (run data in <repo>/.runr/runs) and under the user's home
	// directory (global config and CLI logs).
	RunsHome = ".runr"

	// StateFileName is the run state snapshot file.
	StateFileName = "state.json"

	// TimelineFileName is the append-only event log file.
	TimelineFileName = "timeline.jsonl"

	// SeqFileName is the event sequence counter file.
	SeqFileName = "seq.txt"

	// PlanFileName holds the raw planner output.
	PlanFileName = "plan.md"

	// SummaryFileName holds the finalization summary.
	SummaryFileName = "summary.md"

	// ConfigSnapshotFileName holds the config captured at INIT.
	ConfigSnapshotFileName = "config.snapshot.json"

	// FingerprintFileName holds the environment fingerprint.
	FingerprintFileName = "env.fingerprint.json"

	// ArtifactsDir holds verification logs, raw worker outputs, context packs.
	ArtifactsDir = "artifacts"

	// HandoffsDir holds phase-to-phase memos and stop diagnostics.
	HandoffsDir = "handoffs"

	// CheckpointsDir holds per-commit metadata sidecars.
	CheckpointsDir = "checkpoints"

	// StopMemoFileName is the human-readable stop memo.
	StopMemoFileName = "stop.md"

	// StopDiagnosisFileName is the machine-readable stop diagnosis.
	StopDiagnosisFileName = "stop.json"

	// OrchestrationStateFileName is the persisted multi-track scheduling
	// snapshot, one level above the per-run directories (spec.md §4.11).
	OrchestrationStateFileName = "orchestration.json"

	// OrchestrationsDirName is the subdirectory of the runs root holding
	// one directory per orchestration_id.
	OrchestrationsDirName = "orchestrations"
)

// Directory and file permission constants.
const (
	DirPerm  = 0o750
	FilePerm = 0o600
)

// RunrHomeEnv is the environment variable that overrides the runr home
// directory (default ~/.runr), mirroring RunsHome.
const RunrHomeEnv = "RUNR_HOME"

// CLI log file rotation settings (internal/cli logger, grounded in the
// teacher's lumberjack-backed global log file).
const (
	LogsDir        = "logs"
	CLILogFileName = "runr.log"
	LogMaxSizeMB   = 10
	LogMaxBackups  = 5
	LogMaxAgeDays  = 30
	LogCompress    = true
)

// RunSchemaVersion is the current schema_version for RunState snapshots.
const RunSchemaVersion = 1

// Timing defaults (spec.md §5 Resource caps; overridable via config).
const (
	// DefaultRunBudget is the default total wall-clock budget for one run.
	DefaultRunBudget = 120 * time.Minute

	// DefaultMaxTicks bounds the number of supervisor loop ticks.
	DefaultMaxTicks = 50

	// DefaultMilestoneVerifyBudget bounds verification time per milestone.
	DefaultMilestoneVerifyBudget = 600 * time.Second

	// DefaultWorkerCallTimeout caps a single worker invocation.
	DefaultWorkerCallTimeout = 45 * time.Minute

	// DefaultStallThreshold is the watchdog's no-progress threshold.
	DefaultStallThreshold = 15 * time.Minute

	// MaxMilestoneRetries bounds VERIFY→IMPLEMENT retry loops.
	MaxMilestoneRetries = 3

	// MaxReviewRounds bounds REVIEW request_changes loops before forced stop.
	MaxReviewRounds = 2
)

// JSON framing markers for the worker wire protocol (spec.md §4.4, §6).
const (
	BeginJSONMarker = "BEGIN_JSON"
	EndJSONMarker   = "END_JSON"
)

// Evidence size bound for the implementer "no changes needed" grep evidence (spec.md §4.8).
const MaxGrepEvidenceBytes = 8 * 1024
