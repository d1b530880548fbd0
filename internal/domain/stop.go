package domain

// StopFamily classifies a StopReason for exit-code mapping and auto-resume
// policy (spec.md §4.7, §6).
type StopFamily string

// Stop reason families.
const (
	FamilySuccess        StopFamily = "success"
	FamilyParse          StopFamily = "parse"
	FamilyPolicy         StopFamily = "policy"
	FamilyLogic          StopFamily = "logic"
	FamilyInfrastructure StopFamily = "infrastructure"
	FamilyBudget         StopFamily = "budget"
)

// StopReason is a canonical terminal status (spec.md §4.7).
type StopReason string

// Canonical stop reasons.
const (
	StopComplete StopReason = "complete"

	StopPlanParseFailed      StopReason = "plan_parse_failed"
	StopImplementParseFailed StopReason = "implement_parse_failed"
	StopReviewParseFailed    StopReason = "review_parse_failed"

	StopPlanScopeViolation StopReason = "plan_scope_violation"
	StopGuardViolation     StopReason = "guard_violation"
	StopOwnershipViolation StopReason = "ownership_violation"
	StopMilestoneMissing   StopReason = "milestone_missing"

	StopImplementBlocked              StopReason = "implement_blocked"
	StopVerificationFailedMaxRetries  StopReason = "verification_failed_max_retries"
	StopReviewLoopDetected            StopReason = "review_loop_detected"

	StopStalledTimeout    StopReason = "stalled_timeout"
	StopWorkerCallTimeout StopReason = "worker_call_timeout"

	StopTimeBudgetExceeded StopReason = "time_budget_exceeded"
	StopMaxTicksReached    StopReason = "max_ticks_reached"

	StopStoreIOError StopReason = "store_io_error"
)

// stopMeta carries the family, exit code, auto-resume suggestion, and a next
// action template for a stop reason.
type stopMeta struct {
	family      StopFamily
	exitCode    int
	autoResume  bool
	nextActions []string
}

// exit status convention (spec.md §6): success=0, budget=2, policy=3,
// logic=4, infrastructure=5, parse=6.
const (
	exitSuccess        = 0
	exitBudget         = 2
	exitPolicy         = 3
	exitLogic          = 4
	exitInfrastructure = 5
	exitParse          = 6
)

//nolint:gochecknoglobals // canonical, read-only stop-reason metadata table
var stopTable = map[StopReason]stopMeta{
	StopComplete: {family: FamilySuccess, exitCode: exitSuccess},

	StopPlanParseFailed:      {family: FamilyParse, exitCode: exitParse, autoResume: true, nextActions: []string{"runr resume <run_id> --with-fix-instructions"}},
	StopImplementParseFailed: {family: FamilyParse, exitCode: exitParse, autoResume: true, nextActions: []string{"runr resume <run_id> --with-fix-instructions"}},
	StopReviewParseFailed:    {family: FamilyParse, exitCode: exitParse, autoResume: true, nextActions: []string{"runr resume <run_id> --with-fix-instructions"}},

	StopPlanScopeViolation: {family: FamilyPolicy, exitCode: exitPolicy, nextActions: []string{"review scope.allowlist/denylist in config and re-run"}},
	StopGuardViolation:     {family: FamilyPolicy, exitCode: exitPolicy, nextActions: []string{"runr diagnose <run_id>"}},
	StopOwnershipViolation: {family: FamilyPolicy, exitCode: exitPolicy, nextActions: []string{"runr diagnose <run_id>"}},
	StopMilestoneMissing:   {family: FamilyPolicy, exitCode: exitPolicy},

	StopImplementBlocked:             {family: FamilyLogic, exitCode: exitLogic, nextActions: []string{"runr resume <run_id> --with-fix-instructions"}},
	StopVerificationFailedMaxRetries: {family: FamilyLogic, exitCode: exitLogic, nextActions: []string{"inspect artifacts/tests_*.log and fix manually, then runr resume <run_id>"}},
	StopReviewLoopDetected:           {family: FamilyLogic, exitCode: exitLogic, nextActions: []string{"inspect handoffs/ for the repeated reviewer feedback"}},

	StopStalledTimeout:    {family: FamilyInfrastructure, exitCode: exitInfrastructure, autoResume: true, nextActions: []string{"runr resume <run_id>"}},
	StopWorkerCallTimeout: {family: FamilyInfrastructure, exitCode: exitInfrastructure, autoResume: true, nextActions: []string{"runr resume <run_id>"}},
	StopStoreIOError:      {family: FamilyInfrastructure, exitCode: exitInfrastructure},

	StopTimeBudgetExceeded: {family: FamilyBudget, exitCode: exitBudget, nextActions: []string{"runr resume <run_id> --extend-budget"}},
	StopMaxTicksReached:    {family: FamilyBudget, exitCode: exitBudget, nextActions: []string{"runr resume <run_id> --extend-budget"}},
}

// Family returns the stop reason's family, defaulting to infrastructure for
// unknown reasons (conservative: treat the unexpected as needing attention).
func (r StopReason) Family() StopFamily {
	if m, ok := stopTable[r]; ok {
		return m.family
	}
	return FamilyInfrastructure
}

// ExitCode returns the process exit code table-driven from the stop reason's
// family (spec.md §6).
func (r StopReason) ExitCode() int {
	if m, ok := stopTable[r]; ok {
		return m.exitCode
	}
	return exitInfrastructure
}

// AutoResumeSuggested reports whether this stop reason is eligible for
// automatic resume (spec.md §4.7, resilience.auto_resume).
func (r StopReason) AutoResumeSuggested() bool {
	return stopTable[r].autoResume
}

// NextActions returns runnable-command templates suggested for this stop
// reason. Placeholders like <run_id> are substituted by the diagnosis layer.
func (r StopReason) NextActions() []string {
	return stopTable[r].nextActions
}
