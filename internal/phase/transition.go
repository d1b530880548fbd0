// Package phase implements the Phase State Machine's transition graph and
// stop taxonomy enforcement (spec.md §4.7). It is grounded in the teacher's
// hook.Transitioner (internal/hook/state.go): a transition table keyed by
// the current phase, validated before the run state is mutated.
package phase

import (
	"time"

	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
)

// validTransitions is the fixed transition graph (spec.md §4.7):
//
//	INIT → PLAN → MILESTONE_START → IMPLEMENT → VERIFY → REVIEW → CHECKPOINT → (next milestone? → MILESTONE_START) | FINALIZE → STOPPED
//	                                     ^            |
//	                                     +-- VERIFY fail, REVIEW request_changes
//
// MILESTONE_START is a transient bookkeeping phase (resets per-milestone
// counters before each IMPLEMENT) that spec.md folds into the PLAN→IMPLEMENT
// and CHECKPOINT→IMPLEMENT edges; it is modeled explicitly here so those
// resets are an auditable transition rather than a side effect hidden
// inside the CHECKPOINT handler.
var validTransitions = map[domain.Phase][]domain.Phase{
	domain.PhaseInit:           {domain.PhasePlan, domain.PhaseStopped},
	domain.PhasePlan:           {domain.PhaseMilestoneStart, domain.PhaseStopped},
	domain.PhaseMilestoneStart: {domain.PhaseImplement, domain.PhaseStopped},
	domain.PhaseImplement:      {domain.PhaseVerify, domain.PhaseStopped},
	domain.PhaseVerify:         {domain.PhaseReview, domain.PhaseImplement, domain.PhaseStopped},
	domain.PhaseReview:         {domain.PhaseCheckpoint, domain.PhaseImplement, domain.PhaseStopped},
	domain.PhaseCheckpoint:     {domain.PhaseMilestoneStart, domain.PhaseFinalize, domain.PhaseStopped},
	domain.PhaseFinalize:       {domain.PhaseStopped},
	domain.PhaseStopped:        {},
}

// IsValidTransition reports whether the move from "from" to "to" is
// permitted by the transition graph.
func IsValidTransition(from, to domain.Phase) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// Transition moves state to the next phase and touches UpdatedAt. It records
// no timeline event; the supervisor's transition helper appends that. It
// refuses to transition out of STOPPED
// (terminal) and rejects any edge not in the transition graph.
func Transition(state *domain.RunState, to domain.Phase, now time.Time) error {
	from := state.Phase
	if from == domain.PhaseStopped {
		return errors.Wrap(errors.ErrRunTerminal, "run is already stopped")
	}
	if !IsValidTransition(from, to) {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> %s", from, to)
	}
	state.Phase = to
	state.UpdatedAt = now
	return nil
}

// Stop transitions state to STOPPED with the given reason, enforcing the
// RunState invariant that StopReason is set iff Phase is STOPPED.
func Stop(state *domain.RunState, reason domain.StopReason, now time.Time) error {
	if state.Phase == domain.PhaseStopped {
		return errors.Wrap(errors.ErrRunTerminal, "run is already stopped")
	}
	state.Phase = domain.PhaseStopped
	state.StopReason = &reason
	state.UpdatedAt = now
	return nil
}

// StartMilestone resets the per-milestone counters that MILESTONE_START is
// responsible for clearing (spec.md §4.8 CHECKPOINT: "Reset
// milestone_retries=0"; §4.7 REVIEW loop detection resets per milestone).
func StartMilestone(state *domain.RunState, now time.Time) error {
	state.MilestoneRetries = 0
	state.ReviewRounds = 0
	state.LastReview = nil
	state.LastProgressAt = now
	return Transition(state, domain.PhaseImplement, now)
}
