package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/phase"
	"github.com/weldr-dev/runr/internal/prompts"
)

// handleReview builds the reviewer prompt, invokes the reviewer, and applies
// the approve/request_changes/reject decision table, including fingerprint
// loop detection (spec.md §4.8 REVIEW, §4.7).
func (e *Engine) handleReview(ctx context.Context, state *domain.RunState) error {
	milestone := state.CurrentMilestone()
	if milestone == nil {
		return e.stop(state, domain.StopMilestoneMissing)
	}

	changed, err := e.changedFiles(ctx, state.WorktreePath)
	if err != nil {
		return err
	}

	promptText, err := prompts.Render(prompts.Reviewer, prompts.ReviewerData{
		MilestoneGoal:      milestone.Goal,
		ChangedFiles:       changed,
		ImplementerSummary: state.FixInstructions,
		VerificationOutput: summarizeEvidence(state.PendingVerification),
	})
	if err != nil {
		return err
	}

	workerName, entry, err := e.workerFor("review")
	if err != nil {
		return err
	}

	var out domain.ReviewerOutput
	res, err := e.worker.Invoke(ctx, workerName, entry, "review", promptText, state.WorktreePath, func(block []byte) error {
		parsed, verr := validateReviewerOutput(block)
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
		return e.stop(state, domain.StopReviewParseFailed)
	}

	if _, everr := e.store.AppendEvent(domain.EventReview, "review", map[string]any{
		"decision": string(out.Decision),
	}); everr != nil {
		return everr
	}

	switch out.Decision {
	case domain.ReviewApprove:
		state.LastReview = nil
		state.LastProgressAt = e.clock.Now()
		return e.transition(state, domain.PhaseCheckpoint)

	case domain.ReviewRequestChanges:
		if phase.ReviewLoopDetected(state, out) {
			return e.stop(state, domain.StopReviewLoopDetected)
		}
		phase.RecordReview(state, out)
		state.ReviewRounds++
		state.FixInstructions = out.Feedback
		state.LastProgressAt = e.clock.Now()
		return e.transition(state, domain.PhaseImplement)

	case domain.ReviewReject:
		if state.ReviewRounds >= constants.MaxReviewRounds {
			return e.stop(state, domain.StopReviewLoopDetected)
		}
		phase.RecordReview(state, out)
		state.ReviewRounds++
		state.FixInstructions = out.Feedback
		state.LastProgressAt = e.clock.Now()
		return e.transition(state, domain.PhaseImplement)

	default:
		return e.stop(state, domain.StopReviewParseFailed)
	}
}

// summarizeEvidence renders the milestone's accumulated verification tier
// results for the reviewer prompt, since domain.VerificationEvidence does
// not carry raw captured output (that lives only in the artifacts log).
func summarizeEvidence(evidence []domain.VerificationEvidence) string {
	if len(evidence) == 0 {
		return "(no verification evidence recorded)"
	}
	var b strings.Builder
	for _, e := range evidence {
		status := "failed"
		if e.OK {
			status = "passed"
		}
		fmt.Fprintf(&b, "- %s: %s (%.1fs)\n", e.Tier, status, e.DurationS)
	}
	return b.String()
}
