package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/gitutil"
	"github.com/weldr-dev/runr/internal/metrics"
	"github.com/weldr-dev/runr/internal/orchestrator"
	"github.com/weldr-dev/runr/internal/store"
)

// AddOrchestrateCommand adds the orchestrate command to the root command.
func AddOrchestrateCommand(root *cobra.Command) {
	root.AddCommand(newOrchestrateCmd())
}

// orchestratePlan is the user-authored input to the orchestrate command: the
// tracks and ownership claims to schedule (spec.md §3, §4.11).
type orchestratePlan struct {
	OrchestrationID string               `json:"orchestration_id"`
	CollisionPolicy domain.CollisionPolicy `json:"collision_policy"`
	Tracks          []planTrack          `json:"tracks"`
}

type planTrack struct {
	Name  string     `json:"name"`
	Steps []planStep `json:"steps"`
}

type planStep struct {
	TaskText  string   `json:"task_text"`
	Allowlist []string `json:"allowlist"`
}

func newOrchestrateCmd() *cobra.Command {
	var planPath string

	cmd := &cobra.Command{
		Use:   "orchestrate",
		Short: "Schedule multiple tracks of runs with ownership admission control",
		Long: `orchestrate reads a JSON plan of named tracks, each an ordered
list of steps with a declared file allowlist, and drives the
scheduling loop: launch admissible steps, serialize (or fail, or
force) on ownership conflicts per the configured collision policy, and
persist state after every scheduling action (spec.md §4.11).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrchestrate(cmd, planPath)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "path to a JSON orchestration plan (required)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runOrchestrate(cmd *cobra.Command, planPath string) error {
	ctx := cmd.Context()
	logger := Logger()

	data, err := os.ReadFile(planPath) //#nosec G304 -- operator-supplied plan path
	if err != nil {
		return errors.Wrap(err, "read orchestration plan")
	}
	var plan orchestratePlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return errors.Wrap(err, "parse orchestration plan")
	}
	if !plan.CollisionPolicy.Valid() {
		plan.CollisionPolicy = domain.CollisionSerialize
	}
	if plan.OrchestrationID == "" {
		plan.OrchestrationID = newRunID()
	}

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

	runsRoot := config.RunsRoot(repoRoot)
	orchStore := orchestrator.NewStore(runsRoot, newStoreClock())

	state := &domain.OrchestrationState{
		OrchestrationID: plan.OrchestrationID,
		CollisionPolicy: plan.CollisionPolicy,
	}
	for _, t := range plan.Tracks {
		track := domain.Track{Name: t.Name}
		for _, st := range t.Steps {
			track.Steps = append(track.Steps, domain.TrackStep{
				RunID:     newRunID(),
				TaskText:  st.TaskText,
				ScopeLock: domain.ScopeLock{Allowlist: st.Allowlist, Denylist: cfg.Scope.Denylist, Lockfiles: cfg.Scope.Lockfiles, EnvAllowlist: cfg.Scope.EnvAllowlist},
				Status:    domain.TrackPending,
			})
		}
		state.Tracks = append(state.Tracks, track)
	}
	if err := orchStore.Init(state); err != nil {
		return err
	}

	launcher := &cliLauncher{repoRoot: repoRoot, baseSHA: baseSHA, cfg: cfg, logger: logger}
	sched := orchestrator.New(orchStore, launcher)

	runErr := sched.Run(ctx, state)

	format := cmd.Flag("output").Value.String()
	text := fmt.Sprintf("orchestration %s: %d track(s) scheduled", state.OrchestrationID, len(state.Tracks))
	if emitErr := emit(cmd.OutOrStdout(), format, state, text); emitErr != nil {
		return emitErr
	}
	return runErr
}

// cliLauncher runs one orchestrator track step to completion by creating a
// dedicated worktree and driving a Supervisor Engine through it, the same
// path a standalone `runr run` invocation takes but constrained to the
// step's declared ownership (spec.md §4.11, §4.2).
type cliLauncher struct {
	repoRoot string
	baseSHA  string
	cfg      *config.Config
	logger   zerolog.Logger
}

func (l *cliLauncher) Launch(ctx context.Context, step domain.TrackStep) (domain.TrackStatus, error) {
	wtMgr := buildWorktreeManager(l.repoRoot, l.cfg, l.logger)
	branchName := "runr/" + step.RunID
	result, err := wtMgr.Create(ctx, step.RunID, l.baseSHA, branchName)
	if err != nil {
		return domain.TrackFailed, err
	}

	runsRoot := config.RunsRoot(l.repoRoot)
	s, err := store.Init(runsRoot, step.RunID, newStoreClock())
	if err != nil {
		return domain.TrackFailed, err
	}

	rec := metrics.NewPrometheusRecorder()
	engine := buildEngine(s, l.cfg, l.logger, rec, withOwnedPaths(step.ScopeLock.Allowlist))

	state, err := engine.Start(ctx, step.RunID, step.TaskText, result.Path, branchName, l.baseSHA)
	if err != nil {
		return domain.TrackFailed, err
	}
	if err := engine.Run(ctx, state); err != nil {
		return domain.TrackFailed, err
	}

	return domain.TrackStopped, nil
}
