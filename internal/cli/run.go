package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/gitutil"
	"github.com/weldr-dev/runr/internal/metrics"
	"github.com/weldr-dev/runr/internal/store"
)

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command) {
	root.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	var branchName string

	cmd := &cobra.Command{
		Use:   "run <task description>",
		Short: "Start a new supervised run from a task description",
		Long: `run creates an isolated worktree, drives the phase pipeline
(PLAN through CHECKPOINT) across every milestone the planner proposes,
and returns when the run reaches STOPPED: on a completed plan or on a
stop condition such as exhausted verification retries, a detected review
loop, a scope violation, or an exhausted budget. Review change requests
and verification failures send the milestone back to IMPLEMENT
(spec.md §4.8).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], branchName)
		},
	}

	cmd.Flags().StringVar(&branchName, "branch", "", "branch name for the run worktree (default runr/<id>)")

	return cmd
}

func runRun(cmd *cobra.Command, taskText, branchName string) error {
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

	baseSHA, err := gitutil.HeadSHA(ctx, repoRoot)
	if err != nil {
		return err
	}

	runID := newRunID()
	if branchName == "" {
		branchName = "runr/" + runID
	}

	wtMgr := buildWorktreeManager(repoRoot, cfg, logger)
	result, err := wtMgr.Create(ctx, runID, baseSHA, branchName)
	if err != nil {
		return err
	}

	runsRoot := config.RunsRoot(repoRoot)
	s, err := store.Init(runsRoot, runID, newStoreClock())
	if err != nil {
		return err
	}
	if err := s.WriteConfigSnapshot(cfg); err != nil {
		return err
	}

	rec := metrics.NewPrometheusRecorder()
	engine := buildEngine(s, cfg, logger, rec)

	state, err := engine.Start(ctx, runID, taskText, result.Path, branchName, baseSHA)
	if err != nil {
		return err
	}
	if err := engine.Run(ctx, state); err != nil {
		return err
	}

	format := cmd.Flag("output").Value.String()
	return emit(cmd.OutOrStdout(), format, state, fmt.Sprintf(
		"run %s stopped in phase %s (worktree %s)", state.RunID, state.Phase, state.WorktreePath))
}
