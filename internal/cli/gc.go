package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// AddGCCommand adds the gc command to the root command.
func AddGCCommand(root *cobra.Command) {
	root.AddCommand(newGCCmd())
}

func newGCCmd() *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove worktrees for runs older than a threshold",
		Long: `gc lists, and unless --dry-run removes, every run worktree
whose modification time is older than --older-than (spec.md §4.5 GC).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGC(cmd, olderThan, dryRun)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age threshold for worktree removal")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be removed without removing it")

	return cmd
}

func runGC(cmd *cobra.Command, olderThan time.Duration, dryRun bool) error {
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

	wtMgr := buildWorktreeManager(repoRoot, cfg, logger)
	report, err := wtMgr.GC(ctx, olderThan, dryRun, time.Now())
	if err != nil {
		return err
	}

	format := cmd.Flag("output").Value.String()
	text := fmt.Sprintf("%d removed, %d skipped", len(report.Removed), len(report.SkippedErr))
	return emit(cmd.OutOrStdout(), format, report, text)
}
