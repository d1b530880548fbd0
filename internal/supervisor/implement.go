package supervisor

import (
	"context"

	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/prompts"
	"github.com/weldr-dev/runr/internal/scope"
)

// handleImplement builds the implementer prompt for the current milestone,
// invokes the implementer, accepts a sufficiently-evidenced "no changes
// needed" assertion, and otherwise checks the resulting change set against
// the scope guard before transitioning to VERIFY (spec.md §4.8 IMPLEMENT).
func (e *Engine) handleImplement(ctx context.Context, state *domain.RunState) error {
	milestone := state.CurrentMilestone()
	if milestone == nil {
		return e.stop(state, domain.StopMilestoneMissing)
	}

	promptText, err := prompts.Render(prompts.Implementer, prompts.ImplementerData{
		MilestoneGoal:     milestone.Goal,
		FilesExpected:     milestone.FilesExpected,
		DoneChecks:        milestone.DoneChecks,
		Attempt:           state.MilestoneRetries + 1,
		FixInstructions:   state.FixInstructions,
		VerificationTiers: e.allVerificationCommands(),
	})
	if err != nil {
		return err
	}

	workerName, entry, err := e.workerFor("implement")
	if err != nil {
		return err
	}

	var out domain.ImplementerOutput
	res, err := e.worker.Invoke(ctx, workerName, entry, "implement", promptText, state.WorktreePath, func(block []byte) error {
		parsed, verr := validateImplementerOutput(block)
		if verr != nil {
			return verr
		}
		out = parsed
		return nil
	})
	state.WorkerStats.Invocations++
	if err != nil {
		return e.stop(state, domain.StopWorkerCallTimeout)
	}
	if res.ParseError != nil {
		state.WorkerStats.ParseFailures++
		return e.stop(state, domain.StopImplementParseFailed)
	}

	if out.Status == domain.ImplementBlocked {
		if !sufficientNoChangesEvidence(out.NoChangesEvidence, state.ScopeLock.Allowlist) {
			return e.stop(state, domain.StopImplementBlocked)
		}
	}

	changed, err := e.changedFiles(ctx, state.WorktreePath)
	if err != nil {
		return errors.Wrap(errors.ErrGitOperation, "compute changed files: "+err.Error())
	}

	semantic, _ := scope.Partition(changed, state.ScopeLock.EnvAllowlist, e.ignoreCheck)
	if v := scope.Check(semantic, state.ScopeLock, false); v != nil {
		return e.stop(state, domain.StopGuardViolation)
	}
	if len(e.ownedPaths) > 0 {
		if v := scope.CheckOwnership(semantic, e.ownedPaths); v != nil {
			return e.stop(state, domain.StopOwnershipViolation)
		}
	}

	state.FixInstructions = ""
	state.LastProgressAt = e.clock.Now()
	return e.transition(state, domain.PhaseVerify)
}

// sufficientNoChangesEvidence applies the fixed evidence-sufficiency rule
// for an implementer's "no changes needed" assertion (spec.md §4.8
// IMPLEMENT). Reuses the scope guard's glob matching rather than
// reimplementing allowlist intersection.
func sufficientNoChangesEvidence(ev *domain.NoChangesEvidence, allowlist []string) bool {
	if ev == nil {
		return false
	}
	if len(ev.FilesChecked) > 0 {
		lock := domain.ScopeLock{Allowlist: allowlist, AllowDeps: true}
		if scope.Check(ev.FilesChecked, lock, false) == nil {
			return true
		}
	}
	if ev.GrepOutput != "" && len(ev.GrepOutput) <= constants.MaxGrepEvidenceBytes {
		return true
	}
	for _, c := range ev.CommandsRun {
		if c.ExitCode == 0 {
			return true
		}
	}
	return false
}
