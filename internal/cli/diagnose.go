package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/diagnosis"
	"github.com/weldr-dev/runr/internal/store"
)

// AddDiagnoseCommand adds the diagnose command to the root command.
func AddDiagnoseCommand(root *cobra.Command) {
	root.AddCommand(newDiagnoseCmd())
}

func newDiagnoseCmd() *cobra.Command {
	var recentEvents int

	cmd := &cobra.Command{
		Use:   "diagnose <run-id>",
		Short: "Classify why a stopped run stopped and suggest next actions",
		Long: `diagnose runs the rule-based post-mortem classifier against a
terminated run's state and recent timeline, producing a structured
report: stop reason family, matched rules with evidence and
confidence, and ordered next actions (spec.md §4.9).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, args[0], recentEvents)
		},
	}

	cmd.Flags().IntVar(&recentEvents, "recent", 20, "number of trailing timeline events to consider")

	return cmd
}

func runDiagnose(cmd *cobra.Command, runID string, recentEvents int) error {
	ctx := cmd.Context()

	repoRoot, err := resolveRepoRoot(ctx)
	if err != nil {
		return err
	}

	runsRoot := config.RunsRoot(repoRoot)
	s, err := store.Open(runsRoot, runID, newStoreClock())
	if err != nil {
		return err
	}
	state, err := s.ReadState()
	if err != nil {
		return err
	}
	timeline, err := s.ReadTimeline()
	if err != nil {
		return err
	}

	recent := timeline
	if recentEvents > 0 && len(timeline) > recentEvents {
		recent = timeline[len(timeline)-recentEvents:]
	}

	report := diagnosis.Diagnose(&diagnosis.Context{
		State:    state,
		Recent:   recent,
		RepoPath: state.WorktreePath,
	})

	format := cmd.Flag("output").Value.String()
	return emit(cmd.OutOrStdout(), format, report, fmt.Sprintf(
		"%s: %d rule(s) matched, stop_reason_family=%s", runID, len(report.Matches), report.StopReasonFamily))
}
