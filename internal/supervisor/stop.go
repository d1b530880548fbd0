package supervisor

import (
	"encoding/json"
	"fmt"

	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/diagnosis"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
)

// writeStopArtifacts runs the diagnosis classifier against the
// newly-terminated run and persists both the human-readable memo and the
// machine-readable report under handoffs/ (spec.md §4.9, §7 "Classified
// stop... a structured memo and machine-readable diagnosis are persisted").
// Called on every STOPPED transition, not only from a dedicated diagnose
// command.
func (e *Engine) writeStopArtifacts(state *domain.RunState) error {
	recent, err := e.store.ReadTimeline()
	if err != nil {
		return errors.Wrap(errors.ErrStoreIO, "read timeline for diagnosis: "+err.Error())
	}
	recent = lastEvents(recent, 20)

	report := diagnosis.Diagnose(&diagnosis.Context{State: state, Recent: recent, RepoPath: state.WorktreePath})

	if err := e.store.WriteMemo(constants.StopMemoFileName, renderStopMemo(state, report)); err != nil {
		return errors.Wrap(errors.ErrStoreIO, "write stop memo: "+err.Error())
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal stop diagnosis")
	}
	if err := e.store.WriteMemo(constants.StopDiagnosisFileName, string(data)); err != nil {
		return errors.Wrap(errors.ErrStoreIO, "write stop diagnosis: "+err.Error())
	}
	return nil
}

func lastEvents(events []domain.Event, n int) []domain.Event {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

func renderStopMemo(state *domain.RunState, report diagnosis.Report) string {
	reason := "(none)"
	if state.StopReason != nil {
		reason = string(*state.StopReason)
	}
	out := fmt.Sprintf("# Run %s stopped\n\nreason: %s\nfamily: %s\nmilestone_index: %d/%d\ntick_count: %d\n\n",
		state.RunID, reason, report.StopReasonFamily, state.MilestoneIndex, len(state.Milestones), state.TickCount)
	if len(report.Matches) > 0 {
		out += "## Diagnosis\n\n"
		for _, m := range report.Matches {
			out += fmt.Sprintf("- %s (confidence %.2f)\n", m.Rule, m.Confidence)
			for _, ev := range m.Evidence {
				out += fmt.Sprintf("  - %s\n", ev)
			}
		}
		out += "\n"
	}
	if len(report.NextActions) > 0 {
		out += "## Next actions\n\n"
		for _, a := range report.NextActions {
			out += fmt.Sprintf("- %s\n", a)
		}
	}
	return out
}
