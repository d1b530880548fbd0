// Package errors provides centralized sentinel errors for runr.
//
// All error types can be checked using errors.Is()/errors.As(). This package
// MUST NOT import any other internal package.
package errors

import "errors"

// Sentinel errors for error categorization across the run-store, scope guard,
// verification engine, worker adapter, worktree manager, phase state machine,
// and checkpoint/submit components.
var (
	// ErrNotFound indicates a requested record (run, state, sidecar) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreIO indicates a run-store filesystem operation failed.
	ErrStoreIO = errors.New("store io error")

	// ErrPathEscapesRoot indicates a store write would escape the run directory.
	ErrPathEscapesRoot = errors.New("path escapes run directory")

	// ErrInvalidTransition indicates an illegal phase transition was attempted.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrRunTerminal indicates an operation was attempted against a STOPPED run.
	ErrRunTerminal = errors.New("run is terminal")

	// ErrSchemaVersionUnsupported indicates a persisted record's major schema
	// version is newer than this build understands.
	ErrSchemaVersionUnsupported = errors.New("unsupported schema version")

	// ErrDirtyWorktree indicates scope checking found uncommitted changes
	// outside the expected change set.
	ErrDirtyWorktree = errors.New("dirty worktree")

	// ErrScopeViolation indicates changed files fall outside the scope lock.
	ErrScopeViolation = errors.New("scope violation")

	// ErrLockfileRestricted indicates a change touches a protected lockfile.
	ErrLockfileRestricted = errors.New("lockfile restricted")

	// ErrOwnershipViolation indicates changed files fall outside declared ownership.
	ErrOwnershipViolation = errors.New("ownership violation")

	// ErrVerificationFailed indicates a verification tier reported failure.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrTimeBudgetExhausted indicates a verification tier ran out of time budget.
	ErrTimeBudgetExhausted = errors.New("time budget exhausted")

	// ErrWorkerParseFailed indicates worker output could not be parsed into the
	// phase schema after the single strict-output retry.
	ErrWorkerParseFailed = errors.New("worker output parse failed")

	// ErrWorkerCallTimeout indicates a single worker invocation exceeded its cap.
	ErrWorkerCallTimeout = errors.New("worker call timeout")

	// ErrWorkerAuth indicates the worker process reported an authentication failure.
	ErrWorkerAuth = errors.New("worker auth error")

	// ErrWorkerNetwork indicates the worker process reported a network failure.
	ErrWorkerNetwork = errors.New("worker network error")

	// ErrWorkerRateLimit indicates the worker process reported a rate limit error.
	ErrWorkerRateLimit = errors.New("worker rate limit error")

	// ErrWorktreeDirty indicates a worktree operation found uncommitted changes
	// where a clean tree was required.
	ErrWorktreeDirty = errors.New("worktree dirty")

	// ErrWorktreeNotFound indicates the expected worktree directory is missing.
	ErrWorktreeNotFound = errors.New("worktree not found")

	// ErrWorktreeExists indicates a worktree path collision could not be resolved.
	ErrWorktreeExists = errors.New("worktree path exists")

	// ErrNotGitRepo indicates a path is not inside a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrGitOperation indicates a git command failed.
	ErrGitOperation = errors.New("git operation failed")

	// ErrNoCheckpoint indicates submit was attempted on a run with no checkpoint.
	ErrNoCheckpoint = errors.New("no checkpoint commit recorded")

	// ErrCherryPickConflict indicates a submit cherry-pick produced conflicts.
	ErrCherryPickConflict = errors.New("cherry-pick conflict")

	// ErrTargetBranchMissing indicates the submit target branch does not exist.
	ErrTargetBranchMissing = errors.New("target branch does not exist")

	// ErrVerificationEvidenceMissing indicates submit required verification
	// evidence that the checkpoint sidecar does not carry.
	ErrVerificationEvidenceMissing = errors.New("verification evidence missing")

	// ErrUnsupportedSubmitStrategy indicates the configured workflow submit
	// strategy has no executable implementation yet.
	ErrUnsupportedSubmitStrategy = errors.New("unsupported submit strategy")

	// ErrOwnershipConflict indicates two orchestrator tracks claim overlapping paths.
	ErrOwnershipConflict = errors.New("ownership claim conflict")

	// ErrOrchestrationBlocked indicates no orchestrator track can make progress.
	ErrOrchestrationBlocked = errors.New("orchestration blocked")

	// ErrEmptyValue indicates a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrConfigInvalid indicates configuration failed validation.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConfigNil indicates Validate was called with a nil *Config.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidScope indicates config.Scope failed validation.
	ErrConfigInvalidScope = errors.New("invalid scope config")

	// ErrConfigInvalidVerification indicates config.Verification failed validation.
	ErrConfigInvalidVerification = errors.New("invalid verification config")

	// ErrConfigInvalidWorker indicates a config.Workers entry failed validation.
	ErrConfigInvalidWorker = errors.New("invalid worker config")

	// ErrConfigInvalidPhases indicates config.Phases referenced an unknown worker.
	ErrConfigInvalidPhases = errors.New("invalid phases config")

	// ErrConfigInvalidResilience indicates config.Resilience failed validation.
	ErrConfigInvalidResilience = errors.New("invalid resilience config")

	// ErrConfigInvalidReceipts indicates config.Receipts failed validation.
	ErrConfigInvalidReceipts = errors.New("invalid receipts config")

	// ErrConfigInvalidWorkflow indicates config.Workflow failed validation.
	ErrConfigInvalidWorkflow = errors.New("invalid workflow config")

	// ErrMissingSchemaVersion indicates a RunState was missing schema_version.
	ErrMissingSchemaVersion = errors.New("schema_version is required")

	// ErrInvalidPhase indicates a RunState carried an unrecognized phase value.
	ErrInvalidPhase = errors.New("invalid phase")

	// ErrMilestoneIndexOutOfRange indicates milestone_index fell outside
	// [0, len(milestones)) while the phase required it to be valid.
	ErrMilestoneIndexOutOfRange = errors.New("milestone_index out of range")

	// ErrMilestoneRetriesOutOfRange indicates milestone_retries left [0, 3].
	ErrMilestoneRetriesOutOfRange = errors.New("milestone_retries out of range")

	// ErrStopReasonWithoutStoppedPhase indicates stop_reason was set while
	// phase was not STOPPED.
	ErrStopReasonWithoutStoppedPhase = errors.New("stop_reason set without STOPPED phase")

	// ErrStoppedPhaseWithoutStopReason indicates phase was STOPPED without a
	// recorded stop_reason.
	ErrStoppedPhaseWithoutStopReason = errors.New("STOPPED phase without stop_reason")

	// ErrInvalidOutputFormat indicates the CLI --output flag was not text or json.
	ErrInvalidOutputFormat = errors.New("invalid output format")
)

// ExitCode2Error wraps an error to indicate the CLI should exit with
// ExitInvalidInput rather than the default ExitError.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps err to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error reports whether err is, or wraps, an *ExitCode2Error.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
