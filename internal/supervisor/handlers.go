package supervisor

import (
	"context"
	"encoding/json"

	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/prompts"
	"github.com/weldr-dev/runr/internal/scope"
)

// handleInit populates the frozen scope lock from config and transitions to
// PLAN (spec.md §4.8 INIT: "create initial state (phase=PLAN, empty
// milestones, captured scope lock, timestamps). Set last_progress_at to
// now.").
func (e *Engine) handleInit(state *domain.RunState) error {
	now := e.clock.Now()
	state.ScopeLock = domain.ScopeLock{
		Allowlist:    e.cfg.Scope.Allowlist,
		Denylist:     e.cfg.Scope.Denylist,
		Lockfiles:    e.cfg.Scope.Lockfiles,
		EnvAllowlist: e.cfg.Scope.EnvAllowlist,
		AllowDeps:    e.cfg.Scope.AllowDeps,
	}
	state.LastProgressAt = now
	return e.transition(state, domain.PhasePlan)
}

// handlePlan builds the planner prompt, invokes the planner worker, checks
// every proposed milestone's files_expected against the scope lock, and
// transitions to MILESTONE_START on success (spec.md §4.8 PLAN).
func (e *Engine) handlePlan(ctx context.Context, state *domain.RunState) error {
	promptText, err := prompts.Render(prompts.Planner, prompts.PlannerData{
		TaskText:        state.TaskText,
		Allowlist:       state.ScopeLock.Allowlist,
		Denylist:        state.ScopeLock.Denylist,
		FixInstructions: state.FixInstructions,
	})
	if err != nil {
		return err
	}

	workerName, entry, err := e.workerFor("plan")
	if err != nil {
		return err
	}

	var plan domain.PlannerOutput
	res, err := e.worker.Invoke(ctx, workerName, entry, "plan", promptText, state.WorktreePath, func(block []byte) error {
		parsed, verr := validatePlannerOutput(block)
		if verr != nil {
			return verr
		}
		plan = parsed
		return nil
	})
	state.WorkerStats.Invocations++
	if err != nil {
		// Uniform mapping: any non-parse worker invocation fault stops
		// worker_call_timeout; the finer worker.Classify taxonomy is carried
		// only as stop-event evidence for diagnosis, not a distinct stop
		// reason (domain/stop.go has no granular auth/network stop reasons).
		return e.stop(state, domain.StopWorkerCallTimeout)
	}
	if res.ParseError != nil {
		state.WorkerStats.ParseFailures++
		return e.stop(state, domain.StopPlanParseFailed)
	}

	planningLock := domain.ScopeLock{Allowlist: state.ScopeLock.Allowlist, Denylist: state.ScopeLock.Denylist, AllowDeps: true}
	for _, m := range plan.Milestones {
		if v := scope.Check(m.FilesExpected, planningLock, false); v != nil {
			return e.stop(state, domain.StopPlanScopeViolation)
		}
	}

	state.Milestones = plan.Milestones
	state.MilestoneIndex = 0
	state.FixInstructions = ""
	state.LastProgressAt = e.clock.Now()

	if err := e.store.WritePlan(res.TextBody); err != nil {
		return errors.Wrap(errors.ErrStoreIO, "write plan.md: "+err.Error())
	}
	return e.transition(state, domain.PhaseMilestoneStart)
}

// handleFinalize writes the run summary and transitions to STOPPED with
// reason complete (spec.md §4.8 FINALIZE).
func (e *Engine) handleFinalize(state *domain.RunState) error {
	summary := finalizeSummary(state)
	if err := e.store.WriteSummary(summary); err != nil {
		return errors.Wrap(errors.ErrStoreIO, "write summary: "+err.Error())
	}
	return e.stop(state, domain.StopComplete)
}

func finalizeSummary(state *domain.RunState) string {
	data, _ := json.MarshalIndent(struct {
		RunID          string   `json:"run_id"`
		MilestonesDone int      `json:"milestones_done"`
		CheckpointSHAs []string `json:"checkpoint_shas"`
	}{
		RunID:          state.RunID,
		MilestonesDone: len(state.Milestones),
		CheckpointSHAs: state.CheckpointSHAs,
	}, "", "  ")
	return string(data)
}
