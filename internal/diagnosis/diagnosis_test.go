package diagnosis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/weldr-dev/runr/internal/domain"
)

func stateWithStop(reason domain.StopReason) *domain.RunState {
	return &domain.RunState{RunID: "run-1", StopReason: &reason}
}

func TestRuleAuthExpired(t *testing.T) {
	t.Run("fires when auth errors were recorded", func(t *testing.T) {
		ctx := &Context{State: &domain.RunState{RunID: "run-1", WorkerStats: domain.WorkerStats{AuthErrors: 2}}}
		hit, conf, evidence, next := ruleAuthExpired(ctx)
		assert.True(t, hit)
		assert.Equal(t, 0.9, conf)
		assert.Contains(t, evidence[0], "auth_errors = 2")
		assert.Contains(t, next[0], "run-1")
	})

	t.Run("does not fire without auth errors", func(t *testing.T) {
		ctx := &Context{State: &domain.RunState{}}
		hit, _, _, _ := ruleAuthExpired(ctx)
		assert.False(t, hit)
	})
}

func TestRuleVerifyCWDMismatch(t *testing.T) {
	ctx := &Context{
		RepoPath: "/work/runs/run-1",
		Recent: []domain.Event{
			{Type: domain.EventVerification, Payload: map[string]any{"cwd": "/tmp/other"}},
		},
	}
	hit, conf, evidence, _ := ruleVerifyCWDMismatch(ctx)
	assert.True(t, hit)
	assert.Equal(t, 0.6, conf)
	assert.Contains(t, evidence[0], "/tmp/other")
}

func TestRuleScopeViolation(t *testing.T) {
	ctx := &Context{State: stateWithStop(domain.StopGuardViolation)}
	hit, conf, _, _ := ruleScopeViolation(ctx)
	assert.True(t, hit)
	assert.Equal(t, 0.95, conf)

	ctx2 := &Context{State: stateWithStop(domain.StopComplete)}
	hit2, _, _, _ := ruleScopeViolation(ctx2)
	assert.False(t, hit2)
}

func TestRuleLockfileRestricted(t *testing.T) {
	st := stateWithStop(domain.StopGuardViolation)
	st.ScopeLock.Lockfiles = []string{"go.sum"}
	ctx := &Context{
		State: st,
		Recent: []domain.Event{
			{Type: domain.EventStop, Payload: map[string]any{"violating_files": []any{"go.sum"}}},
		},
	}
	hit, conf, evidence, _ := ruleLockfileRestricted(ctx)
	assert.True(t, hit)
	assert.Equal(t, 0.85, conf)
	assert.Contains(t, evidence[0], "go.sum")
}

func TestRuleVerificationFailure(t *testing.T) {
	st := stateWithStop(domain.StopVerificationFailedMaxRetries)
	st.MilestoneRetries = 3
	ctx := &Context{State: st}
	hit, _, evidence, _ := ruleVerificationFailure(ctx)
	assert.True(t, hit)
	assert.Contains(t, evidence[0], "milestone_retries = 3")
}

func TestRuleWorkerParseFailure(t *testing.T) {
	ctx := &Context{State: &domain.RunState{WorkerStats: domain.WorkerStats{ParseFailures: 4}}}
	hit, conf, evidence, _ := ruleWorkerParseFailure(ctx)
	assert.True(t, hit)
	assert.Equal(t, 0.7, conf)
	assert.Contains(t, evidence[0], "parse_failures = 4")
}

func TestRuleStall(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := stateWithStop(domain.StopStalledTimeout)
	st.LastProgressAt = now
	ctx := &Context{State: st}
	hit, _, evidence, next := ruleStall(ctx)
	assert.True(t, hit)
	assert.Contains(t, evidence[0], "2026-01-01T00:00:00Z")
	assert.Contains(t, next[0], "runr resume")
}

func TestRuleTickExhaustion(t *testing.T) {
	st := stateWithStop(domain.StopMaxTicksReached)
	st.TickCount = 500
	ctx := &Context{State: st}
	hit, conf, evidence, _ := ruleTickExhaustion(ctx)
	assert.True(t, hit)
	assert.Equal(t, 0.95, conf)
	assert.Contains(t, evidence[0], "tick_count = 500")
}

func TestRuleTimeExhaustion(t *testing.T) {
	deadline := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	st := stateWithStop(domain.StopTimeBudgetExceeded)
	st.BudgetDeadline = deadline
	ctx := &Context{State: st}
	hit, _, evidence, _ := ruleTimeExhaustion(ctx)
	assert.True(t, hit)
	assert.Contains(t, evidence[0], "2026-02-01T00:00:00Z")
}

func TestRuleDirtyTreeGuard(t *testing.T) {
	ctx := &Context{
		State: &domain.RunState{},
		Recent: []domain.Event{
			{Type: domain.EventStop, Payload: map[string]any{"violation_reasons": []any{"dirty_worktree"}}},
		},
	}
	hit, conf, _, _ := ruleDirtyTreeGuard(ctx)
	assert.True(t, hit)
	assert.Equal(t, 0.85, conf)
}

func TestRuleReviewLoop(t *testing.T) {
	st := stateWithStop(domain.StopReviewLoopDetected)
	st.LastReview = &domain.ReviewRecord{Decision: "request_changes", Fingerprint: "abc123"}
	ctx := &Context{State: st}
	hit, _, evidence, _ := ruleReviewLoop(ctx)
	assert.True(t, hit)
	assert.Contains(t, evidence[0], "abc123")
}

func TestRuleNetworkErrors(t *testing.T) {
	ctx := &Context{State: &domain.RunState{WorkerStats: domain.WorkerStats{NetworkErrors: 1}}}
	hit, conf, evidence, _ := ruleNetworkErrors(ctx)
	assert.True(t, hit)
	assert.Equal(t, 0.6, conf)
	assert.Contains(t, evidence[0], "network_errors = 1")
}

func TestDiagnose(t *testing.T) {
	t.Run("aggregates matches and dedupes next actions", func(t *testing.T) {
		st := stateWithStop(domain.StopVerificationFailedMaxRetries)
		st.RunID = "run-7"
		st.MilestoneRetries = 3
		st.WorkerStats = domain.WorkerStats{ParseFailures: 1}

		report := Diagnose(&Context{State: st})
		assert.Equal(t, domain.FamilyLogic, report.StopReasonFamily)

		names := make([]string, 0, len(report.Matches))
		for _, m := range report.Matches {
			names = append(names, m.Rule)
		}
		assert.Contains(t, names, "verification_failure")
		assert.Contains(t, names, "worker_parse_failure")

		seen := map[string]bool{}
		for _, a := range report.NextActions {
			assert.False(t, seen[a], "next action %q should be deduped", a)
			seen[a] = true
		}
	})

	t.Run("no rules match on a clean completion", func(t *testing.T) {
		st := stateWithStop(domain.StopComplete)
		report := Diagnose(&Context{State: st})
		assert.Empty(t, report.Matches)
		assert.Equal(t, domain.FamilySuccess, report.StopReasonFamily)
	})
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
