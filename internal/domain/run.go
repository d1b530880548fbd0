package domain

import (
	"time"

	atlaserrors "github.com/weldr-dev/runr/internal/errors"
)

var (
	errMissingSchemaVersion          = atlaserrors.ErrMissingSchemaVersion
	errInvalidPhase                  = atlaserrors.ErrInvalidPhase
	errMilestoneIndexOutOfRange      = atlaserrors.ErrMilestoneIndexOutOfRange
	errMilestoneRetriesOutOfRange    = atlaserrors.ErrMilestoneRetriesOutOfRange
	errStopReasonWithoutStoppedPhase = atlaserrors.ErrStopReasonWithoutStoppedPhase
	errStoppedPhaseWithoutStopReason = atlaserrors.ErrStoppedPhaseWithoutStopReason
)

// ScopeLock is the frozen allowlist/denylist/lockfile/env_allowlist set
// captured at INIT and never mutated thereafter (spec.md §3).
type ScopeLock struct {
	Allowlist    []string `json:"allowlist"`
	Denylist     []string `json:"denylist"`
	Lockfiles    []string `json:"lockfiles"`
	EnvAllowlist []string `json:"env_allowlist"`
	AllowDeps    bool     `json:"allow_deps"`
}

// WorkerStats are monotonically non-decreasing counters tracked per run
// (spec.md §3 RunState invariants).
type WorkerStats struct {
	Invocations      int `json:"invocations"`
	ParseRetries     int `json:"parse_retries"`
	ParseFailures    int `json:"parse_failures"`
	AuthErrors       int `json:"auth_errors"`
	NetworkErrors    int `json:"network_errors"`
	RateLimitErrors  int `json:"rate_limit_errors"`
	TimeoutErrors    int `json:"timeout_errors"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// TierReasons records, per verification tier, why it was (or was not)
// selected by the verification policy (spec.md §4.6).
type TierReasons struct {
	Tier0 []string `json:"tier0,omitempty"`
	Tier1 []string `json:"tier1,omitempty"`
	Tier2 []string `json:"tier2,omitempty"`
}

// VerificationEvidence is the recorded outcome of a verification tier run,
// persisted into the checkpoint sidecar and consulted by submit validation
// (spec.md §3 CheckpointSidecar, §4.10).
type VerificationEvidence struct {
	Tier       string   `json:"tier"`
	Commands   []string `json:"commands"`
	ExitCodes  []int    `json:"exit_codes"`
	OK         bool     `json:"ok"`
	DurationS  float64  `json:"duration_s"`
}

// ReviewRecord captures one REVIEW phase outcome, used for loop detection
// (spec.md §4.7, §4.8).
type ReviewRecord struct {
	Decision    string `json:"decision"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// RunState is the mutable record carried across every supervisor tick
// (spec.md §3). Field names use snake_case JSON per the teacher's domain
// package convention.
type RunState struct {
	SchemaVersion int    `json:"schema_version"`
	RunID         string `json:"run_id"`

	Phase           Phase       `json:"phase"`
	MilestoneIndex  int         `json:"milestone_index"`
	Milestones      []Milestone `json:"milestones"`

	ScopeLock ScopeLock `json:"scope_lock"`

	MilestoneRetries int            `json:"milestone_retries"`
	ReviewRounds     int            `json:"review_rounds"`
	LastReview       *ReviewRecord  `json:"last_review,omitempty"`

	TierReasons TierReasons `json:"tier_reasons,omitempty"`

	// PendingVerification accumulates the current milestone's successful
	// tier evidence between VERIFY and CHECKPOINT, where it is written into
	// the checkpoint sidecar and cleared (spec.md §3 CheckpointSidecar).
	PendingVerification []VerificationEvidence `json:"pending_verification,omitempty"`

	WorkerStats WorkerStats `json:"worker_stats"`

	StopReason *StopReason `json:"stop_reason,omitempty"`

	CheckpointCommitSHA string   `json:"checkpoint_commit_sha,omitempty"`
	CheckpointSHAs      []string `json:"checkpoint_shas,omitempty"`

	WorktreePath string `json:"worktree_path,omitempty"`
	BranchName   string `json:"branch_name,omitempty"`
	BaseSHA      string `json:"base_sha,omitempty"`

	TaskText        string `json:"task_text"`
	FixInstructions string `json:"fix_instructions,omitempty"`

	TickCount int `json:"tick_count"`

	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastProgressAt time.Time `json:"last_progress_at"`
	BudgetDeadline time.Time `json:"budget_deadline"`

	CancelRequested bool `json:"cancel_requested,omitempty"`
}

// CurrentMilestone returns the milestone at MilestoneIndex, or nil if out of
// range (phase ∈ {INIT, PLAN, STOPPED, FINALIZE} per the RunState invariant).
func (s *RunState) CurrentMilestone() *Milestone {
	if s.MilestoneIndex < 0 || s.MilestoneIndex >= len(s.Milestones) {
		return nil
	}
	return &s.Milestones[s.MilestoneIndex]
}

// IsLastMilestone reports whether MilestoneIndex refers to the final
// milestone in the plan (used by verification policy tier2 selection).
func (s *RunState) IsLastMilestone() bool {
	return len(s.Milestones) > 0 && s.MilestoneIndex == len(s.Milestones)-1
}

// Validate checks the RunState invariants documented in spec.md §3. It does
// not mutate the state; callers call this at tick boundaries.
func (s *RunState) Validate() error {
	if s.SchemaVersion == 0 {
		return errMissingSchemaVersion
	}
	if !s.Phase.Valid() {
		return errInvalidPhase
	}
	requiresMilestoneIndex := s.Phase != PhaseInit && s.Phase != PhasePlan &&
		s.Phase != PhaseStopped && s.Phase != PhaseFinalize
	if requiresMilestoneIndex {
		if s.MilestoneIndex < 0 || s.MilestoneIndex >= len(s.Milestones) {
			return errMilestoneIndexOutOfRange
		}
	}
	if s.MilestoneRetries < 0 || s.MilestoneRetries > 3 {
		return errMilestoneRetriesOutOfRange
	}
	if s.StopReason != nil && s.Phase != PhaseStopped {
		return errStopReasonWithoutStoppedPhase
	}
	if s.StopReason == nil && s.Phase == PhaseStopped {
		return errStoppedPhaseWithoutStopReason
	}
	return nil
}
