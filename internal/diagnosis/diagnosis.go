// Package diagnosis implements the rule-based post-mortem classifier
// (spec.md §4.9): given a terminated run's state and recent timeline
// events, it produces a structured diagnosis with matched rules, evidence,
// confidence, and runnable next actions.
//
// It is grounded in the teacher's hook.RecoveryDetector
// (internal/hook/recovery.go): small independent heuristics, each returning
// an action and a reason string, tried in priority order against the same
// state object rather than a single monolithic classifier function.
package diagnosis

import (
	"strconv"
	"strings"

	"github.com/weldr-dev/runr/internal/domain"
)

// Match is one rule's verdict against a run (spec.md §4.9: "each with
// evidence sources, confidence in [0, 1]").
type Match struct {
	Rule       string   `json:"rule"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// Report is the full diagnosis output (spec.md §4.9).
type Report struct {
	StopReasonFamily domain.StopFamily `json:"stop_reason_family"`
	Matches          []Match           `json:"matches"`
	NextActions      []string          `json:"next_actions"`
}

// rule is one classifier; it appends its own Match (and next actions) when
// its trigger condition holds.
type rule struct {
	name string
	fn   func(ctx *Context) (hit bool, confidence float64, evidence []string, nextActions []string)
}

// Context bundles the terminated run state and recent timeline for rule
// evaluation.
type Context struct {
	State    *domain.RunState
	Recent   []domain.Event
	RepoPath string
}

// Diagnose runs every registered rule against ctx and assembles a Report
// (spec.md §4.9). Rules are independent; more than one may match.
func Diagnose(ctx *Context) Report {
	report := Report{NextActions: []string{}}
	if ctx.State.StopReason != nil {
		report.StopReasonFamily = ctx.State.StopReason.Family()
		for _, a := range ctx.State.StopReason.NextActions() {
			report.NextActions = append(report.NextActions, strings.ReplaceAll(a, "<run_id>", ctx.State.RunID))
		}
	}

	for _, r := range rules {
		hit, confidence, evidence, nextActions := r.fn(ctx)
		if !hit {
			continue
		}
		report.Matches = append(report.Matches, Match{
			Rule:       r.name,
			Confidence: confidence,
			Evidence:   evidence,
		})
		report.NextActions = append(report.NextActions, nextActions...)
	}

	report.NextActions = dedupe(report.NextActions)
	return report
}

//nolint:gochecknoglobals // fixed rule table, evaluated in order
var rules = []rule{
	{"auth_expired", ruleAuthExpired},
	{"verification_working_directory_mismatch", ruleVerifyCWDMismatch},
	{"scope_violation", ruleScopeViolation},
	{"lockfile_restricted", ruleLockfileRestricted},
	{"verification_failure", ruleVerificationFailure},
	{"worker_parse_failure", ruleWorkerParseFailure},
	{"stall", ruleStall},
	{"tick_exhaustion", ruleTickExhaustion},
	{"time_exhaustion", ruleTimeExhaustion},
	{"dirty_tree_guard", ruleDirtyTreeGuard},
	{"review_loop", ruleReviewLoop},
	{"network_errors", ruleNetworkErrors},
}

func ruleAuthExpired(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.WorkerStats.AuthErrors == 0 {
		return false, 0, nil, nil
	}
	return true, 0.9,
		[]string{"worker_stats.auth_errors = " + strconv.Itoa(ctx.State.WorkerStats.AuthErrors)},
		[]string{"re-authenticate the worker CLI, then runr resume " + ctx.State.RunID}
}

func ruleVerifyCWDMismatch(ctx *Context) (bool, float64, []string, []string) {
	for _, e := range ctx.Recent {
		if e.Type != domain.EventVerification {
			continue
		}
		if cwd, ok := e.Payload["cwd"].(string); ok && ctx.RepoPath != "" && !strings.HasPrefix(cwd, ctx.RepoPath) {
			return true, 0.6,
				[]string{"verification event ran with cwd=" + cwd + ", expected under " + ctx.RepoPath},
				[]string{"check verification.cwd in config against the active worktree path"}
		}
	}
	return false, 0, nil, nil
}

func ruleScopeViolation(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.StopReason == nil || *ctx.State.StopReason != domain.StopGuardViolation && *ctx.State.StopReason != domain.StopPlanScopeViolation {
		return false, 0, nil, nil
	}
	return true, 0.95,
		[]string{"stop_reason = " + string(*ctx.State.StopReason)},
		[]string{"widen scope.allowlist or narrow the milestone's files_expected, then runr resume " + ctx.State.RunID}
}

func ruleLockfileRestricted(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.StopReason == nil || *ctx.State.StopReason != domain.StopGuardViolation {
		return false, 0, nil, nil
	}
	for _, lf := range ctx.State.ScopeLock.Lockfiles {
		for _, e := range ctx.Recent {
			if e.Type != domain.EventStop {
				continue
			}
			if files, ok := e.Payload["violating_files"].([]any); ok {
				for _, f := range files {
					if s, ok := f.(string); ok && s == lf {
						return true, 0.85,
							[]string{"lockfile " + lf + " was touched without allow_deps"},
							[]string{"set scope.allow_deps: true in config if the lockfile change is intentional"}
					}
				}
			}
		}
	}
	return false, 0, nil, nil
}

func ruleVerificationFailure(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.StopReason == nil || *ctx.State.StopReason != domain.StopVerificationFailedMaxRetries {
		return false, 0, nil, nil
	}
	return true, 0.9,
		[]string{"milestone_retries = " + strconv.Itoa(ctx.State.MilestoneRetries)},
		[]string{"inspect artifacts/ for the failing command's output, fix manually, then runr resume " + ctx.State.RunID}
}

func ruleWorkerParseFailure(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.WorkerStats.ParseFailures == 0 {
		return false, 0, nil, nil
	}
	return true, 0.7,
		[]string{"worker_stats.parse_failures = " + strconv.Itoa(ctx.State.WorkerStats.ParseFailures)},
		[]string{"review the worker's raw output under artifacts/ for a missing BEGIN_JSON/END_JSON block"}
}

func ruleStall(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.StopReason == nil || *ctx.State.StopReason != domain.StopStalledTimeout {
		return false, 0, nil, nil
	}
	return true, 0.8,
		[]string{"last_progress_at = " + ctx.State.LastProgressAt.Format("2006-01-02T15:04:05Z")},
		[]string{"runr resume " + ctx.State.RunID + " (the watchdog stop is auto-resumable)"}
}

func ruleTickExhaustion(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.StopReason == nil || *ctx.State.StopReason != domain.StopMaxTicksReached {
		return false, 0, nil, nil
	}
	return true, 0.95,
		[]string{"tick_count = " + strconv.Itoa(ctx.State.TickCount)},
		[]string{"runr resume " + ctx.State.RunID + " --extend-budget"}
}

func ruleTimeExhaustion(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.StopReason == nil || *ctx.State.StopReason != domain.StopTimeBudgetExceeded {
		return false, 0, nil, nil
	}
	return true, 0.95,
		[]string{"budget_deadline = " + ctx.State.BudgetDeadline.Format("2006-01-02T15:04:05Z")},
		[]string{"runr resume " + ctx.State.RunID + " --extend-budget"}
}

func ruleDirtyTreeGuard(ctx *Context) (bool, float64, []string, []string) {
	for _, e := range ctx.Recent {
		if e.Type != domain.EventStop {
			continue
		}
		if reasons, ok := e.Payload["violation_reasons"].([]any); ok {
			for _, r := range reasons {
				if s, ok := r.(string); ok && s == "dirty_worktree" {
					return true, 0.85,
						[]string{"scope guard flagged a dirty_worktree violation"},
						[]string{"inspect the worktree for uncommitted out-of-scope changes before resuming"}
				}
			}
		}
	}
	return false, 0, nil, nil
}

func ruleReviewLoop(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.StopReason == nil || *ctx.State.StopReason != domain.StopReviewLoopDetected {
		return false, 0, nil, nil
	}
	fp := ""
	if ctx.State.LastReview != nil {
		fp = ctx.State.LastReview.Fingerprint
	}
	return true, 0.8,
		[]string{"two consecutive review fingerprints matched: " + fp},
		[]string{"inspect handoffs/ for the repeated reviewer feedback and adjust the milestone goal before resuming"}
}

func ruleNetworkErrors(ctx *Context) (bool, float64, []string, []string) {
	if ctx.State.WorkerStats.NetworkErrors == 0 {
		return false, 0, nil, nil
	}
	return true, 0.6,
		[]string{"worker_stats.network_errors = " + strconv.Itoa(ctx.State.WorkerStats.NetworkErrors)},
		[]string{"check network connectivity to the worker provider, then runr resume " + ctx.State.RunID}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
