package supervisor

import (
	"context"

	"github.com/weldr-dev/runr/internal/checkpoint"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
)

// handleCheckpoint stages and commits the milestone's changes, writes the
// sidecar metadata record, advances to the next milestone (or FINALIZE) and
// resets the per-milestone counters (spec.md §4.8 CHECKPOINT).
func (e *Engine) handleCheckpoint(ctx context.Context, state *domain.RunState) error {
	milestone := state.CurrentMilestone()
	if milestone == nil {
		return e.stop(state, domain.StopMilestoneMissing)
	}

	now := e.clock.Now()
	commitSHA, err := checkpoint.Create(ctx, state.WorktreePath, state.MilestoneIndex, milestone.Goal)
	if err != nil {
		return errors.Wrap(errors.ErrGitOperation, "create checkpoint commit: "+err.Error())
	}

	sidecar := checkpoint.BuildSidecar(state.RunID, state.MilestoneIndex, milestone.Goal, state.BaseSHA, commitSHA, state.PendingVerification, now)
	if err := e.store.WriteCheckpointSidecar(&sidecar); err != nil {
		return errors.Wrap(errors.ErrStoreIO, "write checkpoint sidecar: "+err.Error())
	}

	if _, everr := e.store.AppendEvent(domain.EventCheckpoint, "checkpoint", map[string]any{
		"milestone_index": state.MilestoneIndex, "commit_sha": commitSHA,
	}); everr != nil {
		return everr
	}

	state.CheckpointCommitSHA = commitSHA
	state.CheckpointSHAs = append(state.CheckpointSHAs, commitSHA)
	state.PendingVerification = nil
	state.MilestoneRetries = 0
	state.MilestoneIndex++
	state.LastProgressAt = now

	if state.MilestoneIndex >= len(state.Milestones) {
		return e.transition(state, domain.PhaseFinalize)
	}
	return e.transition(state, domain.PhaseMilestoneStart)
}
