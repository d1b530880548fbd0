package cli

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weldr-dev/runr/internal/checkpoint"
	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/domain"
	atlaserrors "github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/store"
)

// AddSubmitCommand adds the submit command to the root command.
func AddSubmitCommand(root *cobra.Command) {
	root.AddCommand(newSubmitCmd())
}

func newSubmitCmd() *cobra.Command {
	var (
		targetBranch string
		push         bool
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "submit <run-id>",
		Short: "Integrate a stopped run's checkpoint onto a target branch",
		Long: `submit validates a terminated run's checkpoint commit, clean
working tree, target branch existence, and recorded verification
evidence, then cherry-picks the checkpoint onto the target branch
(spec.md §4.10). --dry-run validates and prints the plan without
mutating anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, args[0], targetBranch, push, dryRun)
		},
	}

	cmd.Flags().StringVar(&targetBranch, "target", "", "target branch to submit onto (required)")
	cmd.Flags().BoolVar(&push, "push", false, "push the target branch after a successful submit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and print the plan without mutating the repository")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runSubmit(cmd *cobra.Command, runID, targetBranch string, push, dryRun bool) error {
	ctx := cmd.Context()

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

	hasVerification := false
	if state.CheckpointCommitSHA != "" {
		sidecar, serr := s.ReadCheckpointSidecar(state.CheckpointCommitSHA)
		hasVerification = serr == nil && len(sidecar.Verification) > 0
	}

	opts := checkpoint.SubmitOptions{
		RepoPath:            repoRoot,
		CheckpointSHA:       state.CheckpointCommitSHA,
		RunTerminal:         state.Phase == domain.PhaseStopped,
		TargetBranch:        targetBranch,
		SubmitStrategy:      cfg.Workflow.SubmitStrategy,
		RequireCleanTree:    cfg.Workflow.RequireCleanTree,
		RequireVerification: cfg.Workflow.RequireVerification,
		HasVerification:     hasVerification,
		Push:                push,
		DryRun:              dryRun,
	}

	result, err := checkpoint.Submit(ctx, opts)
	format := cmd.Flag("output").Value.String()

	if err != nil {
		if stderrors.Is(err, atlaserrors.ErrCherryPickConflict) && result != nil {
			_, _ = s.AppendEvent(domain.EventSubmitConflict, "cli", map[string]any{
				"target_branch":  targetBranch,
				"conflict_files": result.ConflictFiles,
			})
			_ = emit(cmd.ErrOrStderr(), format, result, fmt.Sprintf(
				"submit conflict on %s: %v", targetBranch, result.ConflictFiles))
			return atlaserrors.NewExitCode2Error(err)
		}
		return err
	}

	if result.Applied {
		_, _ = s.AppendEvent(domain.EventRunSubmitted, "cli", map[string]any{
			"target_branch": result.TargetBranch,
			"commit_sha":    result.CommitSHA,
			"pushed":        result.Pushed,
		})
	}

	return emit(cmd.OutOrStdout(), format, result, fmt.Sprintf(
		"submit %s onto %s: applied=%v plan=%v", runID, targetBranch, result.Applied, result.Plan))
}
