package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/store"
)

// AddListCommand adds the list command to the root command.
func AddListCommand(root *cobra.Command) {
	root.AddCommand(newListCmd())
}

// runSummary is one row of `runr list` output.
type runSummary struct {
	RunID      string `json:"run_id"`
	Phase      string `json:"phase"`
	StopReason string `json:"stop_reason,omitempty"`
	TaskText   string `json:"task_text"`
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs recorded under the project's runs root",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command) error {
	ctx := cmd.Context()

	repoRoot, err := resolveRepoRoot(ctx)
	if err != nil {
		return err
	}
	runsRoot := config.RunsRoot(repoRoot)

	entries, err := os.ReadDir(runsRoot)
	if os.IsNotExist(err) {
		entries = nil
	} else if err != nil {
		return err
	}

	var summaries []runSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		s, err := store.Open(runsRoot, entry.Name(), newStoreClock())
		if err != nil {
			continue
		}
		state, err := s.ReadState()
		if err != nil {
			continue
		}
		summary := runSummary{RunID: state.RunID, Phase: string(state.Phase), TaskText: state.TaskText}
		if state.StopReason != nil {
			summary.StopReason = string(*state.StopReason)
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].RunID < summaries[j].RunID })

	format := cmd.Flag("output").Value.String()
	text := fmt.Sprintf("%d run(s)", len(summaries))
	for _, s := range summaries {
		text += fmt.Sprintf("\n  %s  %-16s  %s", s.RunID, s.Phase, s.TaskText)
	}
	return emit(cmd.OutOrStdout(), format, summaries, text)
}
