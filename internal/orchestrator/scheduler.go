package orchestrator

import (
	"context"

	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
)

// Launcher runs one track step to completion (spec.md §4.11). It is the
// orchestrator's only dependency on the supervisor package, kept as a
// narrow interface so the two packages don't import each other — the same
// "depend on what you call, not who implements it" shape as
// supervisor.RunStore wrapping *store.Store.
type Launcher interface {
	Launch(ctx context.Context, step domain.TrackStep) (domain.TrackStatus, error)
}

// stepResult is delivered on the scheduler's fan-in channel when a
// launched step finishes.
type stepResult struct {
	trackIdx int
	stepIdx  int
	status   domain.TrackStatus
	err      error
}

// Scheduler runs the main scheduling loop described in spec.md §4.11.
type Scheduler struct {
	store    *Store
	launcher Launcher
}

// New creates a Scheduler.
func New(store *Store, launcher Launcher) *Scheduler {
	return &Scheduler{store: store, launcher: launcher}
}

// Run drives the orchestration to completion: launching admissible steps,
// waiting on the first to finish, and persisting state after every
// scheduling action, until every track is done or no further progress is
// possible (spec.md §4.11).
func (s *Scheduler) Run(ctx context.Context, state *domain.OrchestrationState) error {
	results := make(chan stepResult)
	running := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		launchedAny := false
		for ti := range state.Tracks {
			si, step := nextPendingStep(&state.Tracks[ti])
			if step == nil {
				continue
			}

			conflict, conflictingRunID := s.findConflict(state, step.ScopeLock.Allowlist)
			if conflict {
				switch state.CollisionPolicy {
				case domain.CollisionFail:
					return errors.Wrapf(errors.ErrOrchestrationBlocked,
						"track %q step conflicts with run %s under fail policy", state.Tracks[ti].Name, conflictingRunID)
				case domain.CollisionForce:
					// fall through to launch despite the conflict.
				default: // serialize, and the zero value.
					continue
				}
			}

			s.admit(state, step)
			state.Tracks[ti].Steps[si].Status = domain.TrackRunning
			running++
			launchedAny = true

			go func(ti, si int, step domain.TrackStep) {
				status, err := s.launcher.Launch(ctx, step)
				results <- stepResult{trackIdx: ti, stepIdx: si, status: status, err: err}
			}(ti, si, *step)
		}

		if err := s.store.Write(state); err != nil {
			return err
		}

		if running == 0 {
			if allTracksDone(state) {
				return nil
			}
			if !launchedAny {
				return errors.Wrap(errors.ErrOrchestrationBlocked, "no track can make progress")
			}
		}

		if running > 0 {
			res := <-results
			running--
			step := &state.Tracks[res.trackIdx].Steps[res.stepIdx]
			if res.err != nil {
				step.Status = domain.TrackFailed
			} else {
				step.Status = res.status
			}
			s.release(state, res.trackIdx, res.stepIdx)
			if err := s.store.Write(state); err != nil {
				return err
			}
		}
	}
}

// nextPendingStep returns the first not-yet-started step of a track, since
// steps within a track execute strictly in sequence (spec.md §3 "ordered
// steps per track").
func nextPendingStep(t *domain.Track) (int, *domain.TrackStep) {
	for i := range t.Steps {
		switch t.Steps[i].Status {
		case domain.TrackPending:
			return i, &t.Steps[i]
		case domain.TrackRunning:
			return -1, nil // track already has a step in flight
		default: // stopped, submitted, failed: move to the next step
			continue
		}
	}
	return -1, nil
}

// findConflict reports whether allowlist overlaps any currently-held
// ownership claim, returning the colliding run's ID for diagnostics.
func (s *Scheduler) findConflict(state *domain.OrchestrationState, allowlist []string) (bool, string) {
	for _, c := range state.Claims {
		if claimsConflict(allowlist, c.Patterns) {
			return true, c.RunID
		}
	}
	return false, ""
}

func (s *Scheduler) admit(state *domain.OrchestrationState, step *domain.TrackStep) {
	state.Claims = append(state.Claims, domain.OwnershipClaim{
		RunID:     step.RunID,
		Patterns:  step.ScopeLock.Allowlist,
		ClaimedAt: s.store.clock.Now(),
	})
}

func (s *Scheduler) release(state *domain.OrchestrationState, trackIdx, stepIdx int) {
	runID := state.Tracks[trackIdx].Steps[stepIdx].RunID
	kept := state.Claims[:0]
	for _, c := range state.Claims {
		if c.RunID != runID {
			kept = append(kept, c)
		}
	}
	state.Claims = kept
}

func allTracksDone(state *domain.OrchestrationState) bool {
	for _, t := range state.Tracks {
		for _, step := range t.Steps {
			if step.Status == domain.TrackPending || step.Status == domain.TrackRunning {
				return false
			}
		}
	}
	return true
}
