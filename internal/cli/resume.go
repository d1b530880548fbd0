package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/metrics"
	"github.com/weldr-dev/runr/internal/store"
)

// AddResumeCommand adds the resume command to the root command.
func AddResumeCommand(root *cobra.Command) {
	root.AddCommand(newResumeCmd())
}

func newResumeCmd() *cobra.Command {
	var fixInstructions string

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Resume a paused or interrupted run",
		Long: `resume loads a run's persisted state and timeline and drives
it forward from the phase it was left in (spec.md §4.1 resume invariant: the
run must reconstruct identical behavior to an uninterrupted run). A run
already in STOPPED is not resumed; the command returns an error. Pass
--fix to attach corrective instructions for the next IMPLEMENT attempt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, args[0], fixInstructions)
		},
	}

	cmd.Flags().StringVar(&fixInstructions, "fix", "", "fix instructions to attach before resuming")

	return cmd
}

func runResume(cmd *cobra.Command, runID, fixInstructions string) error {
	ctx := cmd.Context()
	logger := Logger()

	repoRoot, err := resolveRepoRoot(ctx)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx)
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
	if fixInstructions != "" {
		state.FixInstructions = fixInstructions
	}

	rec := metrics.NewPrometheusRecorder()
	engine := buildEngine(s, cfg, logger, rec)

	if err := engine.Resume(ctx, state); err != nil {
		return err
	}
	if err := engine.Run(ctx, state); err != nil {
		return err
	}

	format := cmd.Flag("output").Value.String()
	return emit(cmd.OutOrStdout(), format, state, fmt.Sprintf(
		"run %s resumed, now stopped in phase %s", state.RunID, state.Phase))
}
