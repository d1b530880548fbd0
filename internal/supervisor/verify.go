package supervisor

import (
	"context"
	"fmt"

	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/policy"
	"github.com/weldr-dev/runr/internal/verify"
)

// handleVerify selects tiers via the verification policy and executes them
// through the verification engine, retrying IMPLEMENT on failure up to the
// milestone retry cap (spec.md §4.8 VERIFY).
//
// The per-milestone verification time budget resets on every entry into
// VERIFY rather than depleting cumulatively across IMPLEMENT→VERIFY retry
// cycles: spec.md's "remaining per-milestone time budget" is ambiguous
// between the two readings, and a fresh budget per attempt keeps a single
// slow retry from starving every subsequent one.
func (e *Engine) handleVerify(ctx context.Context, state *domain.RunState) error {
	milestone := state.CurrentMilestone()
	if milestone == nil {
		return e.stop(state, domain.StopMilestoneMissing)
	}

	changed, err := e.changedFiles(ctx, state.WorktreePath)
	if err != nil {
		return err
	}
	state.TierReasons = policy.SelectTiers(*milestone, changed, e.cfg.Verification.RiskTriggers, state.IsLastMilestone())

	cwd := verifyCWD(e.cfg.Verification.CWD, state.WorktreePath)
	verifyStart := e.clock.Now()

	tiers := []struct {
		name     string
		commands []string
		reasons  []string
	}{
		{"tier0", e.cfg.Verification.Tier0, state.TierReasons.Tier0},
		{"tier1", e.cfg.Verification.Tier1, state.TierReasons.Tier1},
		{"tier2", e.cfg.Verification.Tier2, state.TierReasons.Tier2},
	}

	for _, t := range tiers {
		if len(t.reasons) == 0 || len(t.commands) == 0 {
			continue
		}
		remaining := e.milestoneVerifyBudget - e.clock.Now().Sub(verifyStart)
		start := e.clock.Now()
		result := e.verifier.Run(ctx, t.name, t.commands, cwd, remaining)
		e.metrics.VerificationRun(t.name, result.OK, e.clock.Now().Sub(start))

		evidence := domain.VerificationEvidence{
			Tier:      t.name,
			Commands:  t.commands,
			ExitCodes: []int{result.ExitCode},
			OK:        result.OK,
			DurationS: result.DurationS,
		}
		state.PendingVerification = append(state.PendingVerification, evidence)

		if _, everr := e.store.AppendEvent(domain.EventVerification, "supervisor", map[string]any{
			"tier": t.name, "ok": result.OK, "failed_command": result.FailedCommand, "exit_code": result.ExitCode,
		}); everr != nil {
			return everr
		}

		if !result.OK {
			return e.failVerification(state, t.name, result)
		}
	}

	state.LastProgressAt = e.clock.Now()
	return e.transition(state, domain.PhaseReview)
}

// failVerification applies the VERIFY→IMPLEMENT retry rule: build fix
// instructions from the failing tier's output and retry up to
// constants.MaxMilestoneRetries, or stop verification_failed_max_retries
// once exhausted (spec.md §4.8 VERIFY, §4.7 retry loops).
func (e *Engine) failVerification(state *domain.RunState, tier string, result verify.Result) error {
	state.MilestoneRetries++
	if state.MilestoneRetries >= constants.MaxMilestoneRetries {
		return e.stop(state, domain.StopVerificationFailedMaxRetries)
	}
	state.FixInstructions = fmt.Sprintf(
		"verification tier %s failed on command %q (exit code %d):\n%s",
		tier, result.FailedCommand, result.ExitCode, result.CapturedOutput,
	)
	state.LastProgressAt = e.clock.Now()
	return e.transition(state, domain.PhaseImplement)
}
