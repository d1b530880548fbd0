// Package supervisor implements the Supervisor Loop: the tick-driven engine
// that dispatches a run's phase state machine through INIT, PLAN,
// MILESTONE_START, IMPLEMENT, VERIFY, REVIEW, CHECKPOINT, and FINALIZE
// until the run reaches STOPPED (spec.md §4.8).
//
// It is grounded in the teacher's task.Engine (internal/task/engine.go): a
// tick loop that dispatches to per-step handlers, persists a checkpoint
// after every step, and exposes its dependencies (store, metrics, hooks) as
// narrow interfaces set via functional EngineOptions rather than a single
// monolithic constructor argument list.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/ctxutil"
	"github.com/weldr-dev/runr/internal/clock"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/gitutil"
	"github.com/weldr-dev/runr/internal/metrics"
	"github.com/weldr-dev/runr/internal/phase"
	"github.com/weldr-dev/runr/internal/scope"
	"github.com/weldr-dev/runr/internal/verify"
	"github.com/weldr-dev/runr/internal/worker"
)

// RunStore is the narrow persistence surface the Supervisor Loop needs,
// satisfied by *store.Store. Scoped the way the teacher scopes task.Store
// to just what task.Engine calls.
type RunStore interface {
	WriteState(state *domain.RunState) error
	AppendEvent(kind domain.EventType, source string, payload map[string]any) (domain.Event, error)
	ReadTimeline() ([]domain.Event, error)
	WriteArtifact(name string, data []byte) error
	WriteMemo(name, text string) error
	WritePlan(text string) error
	WriteSummary(text string) error
	WriteCheckpointSidecar(sidecar *domain.CheckpointSidecar) error
}

// WorkerInvoker is the narrow surface of worker.Adapter the Supervisor Loop
// calls through, satisfied by *worker.Adapter.
type WorkerInvoker interface {
	Invoke(ctx context.Context, workerName string, w config.WorkerEntry, phaseName, promptText, repoPath string, validate worker.Validator) (worker.Result, error)
}

// VerificationRunner is the narrow surface of verify.Engine the Supervisor
// Loop calls through, satisfied by *verify.Engine.
type VerificationRunner interface {
	Run(ctx context.Context, tier string, commands []string, cwd string, timeBudgetRemaining time.Duration) verify.Result
}

// ChangedFilesFunc reports the working tree's changed paths, the Scope
// Guard's input (spec.md §4.8 IMPLEMENT: "compute changed files via the
// repository's status command"). Defaults to gitutil.StatusChangedFiles.
type ChangedFilesFunc func(ctx context.Context, workDir string) ([]string, error)

// Engine drives one run's phase state machine tick by tick (spec.md §4.8).
type Engine struct {
	store    RunStore
	worker   WorkerInvoker
	verifier VerificationRunner
	cfg      config.Config
	clock    clock.Clock
	logger   zerolog.Logger
	metrics  metrics.Recorder

	changedFiles ChangedFilesFunc
	ignoreCheck  scope.IgnoreChecker
	ownedPaths   []string // orchestrator track ownership, empty means unconstrained

	runBudget             time.Duration
	maxTicks              int
	stallThreshold        time.Duration
	milestoneVerifyBudget time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunBudget overrides the default total wall-clock budget per run.
func WithRunBudget(d time.Duration) Option { return func(e *Engine) { e.runBudget = d } }

// WithMaxTicks overrides the default tick-count cap.
func WithMaxTicks(n int) Option { return func(e *Engine) { e.maxTicks = n } }

// WithStallThreshold overrides the watchdog's no-progress threshold.
func WithStallThreshold(d time.Duration) Option { return func(e *Engine) { e.stallThreshold = d } }

// WithMilestoneVerifyBudget overrides the per-milestone verification time budget.
func WithMilestoneVerifyBudget(d time.Duration) Option {
	return func(e *Engine) { e.milestoneVerifyBudget = d }
}

// WithMetrics sets the telemetry recorder. A nil recorder is left as
// metrics.NoopRecorder{}.
func WithMetrics(m metrics.Recorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithIgnoreCheck sets the Scope Guard's environmental-path ignore query.
func WithIgnoreCheck(f scope.IgnoreChecker) Option { return func(e *Engine) { e.ignoreCheck = f } }

// WithOwnedPaths constrains the run to an orchestrator track's ownership
// claim (spec.md §4.2, §4.11). Empty (the default) means unconstrained.
func WithOwnedPaths(patterns []string) Option { return func(e *Engine) { e.ownedPaths = patterns } }

// WithChangedFilesFunc overrides how changed paths are discovered, for tests.
func WithChangedFilesFunc(f ChangedFilesFunc) Option {
	return func(e *Engine) { e.changedFiles = f }
}

// WithClock overrides the engine's time source, for tests.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// New constructs a Supervisor Engine from its dependencies (spec.md §4.8).
func New(s RunStore, w WorkerInvoker, v VerificationRunner, cfg config.Config, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:                 s,
		worker:                w,
		verifier:              v,
		cfg:                   cfg,
		clock:                 clock.RealClock{},
		logger:                logger,
		metrics:               metrics.NoopRecorder{},
		runBudget:             constants.DefaultRunBudget,
		maxTicks:              constants.DefaultMaxTicks,
		stallThreshold:        constants.DefaultStallThreshold,
		milestoneVerifyBudget: constants.DefaultMilestoneVerifyBudget,
	}
	e.changedFiles = func(ctx context.Context, workDir string) ([]string, error) {
		return gitutil.StatusChangedFiles(ctx, workDir)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start creates the initial RunState for a new run and drives it to its
// first pause or stop (spec.md §4.1 run_created, §4.8 INIT).
func (e *Engine) Start(ctx context.Context, runID, taskText, worktreePath, branchName, baseSHA string) (*domain.RunState, error) {
	now := e.clock.Now()
	state := &domain.RunState{
		SchemaVersion:  constants.RunSchemaVersion,
		RunID:          runID,
		Phase:          domain.PhaseInit,
		TaskText:       taskText,
		WorktreePath:   worktreePath,
		BranchName:     branchName,
		BaseSHA:        baseSHA,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastProgressAt: now,
		BudgetDeadline: now.Add(e.runBudget),
	}
	if err := e.store.WriteState(state); err != nil {
		return nil, errors.Wrap(errors.ErrStoreIO, "persist initial state: "+err.Error())
	}
	if _, err := e.store.AppendEvent(domain.EventRunCreated, "supervisor", map[string]any{"run_id": runID}); err != nil {
		return nil, errors.Wrap(errors.ErrStoreIO, "append run_created event: "+err.Error())
	}
	return state, e.Run(ctx, state)
}

// Resume continues a paused or previously-interrupted run from its
// persisted state (spec.md §4.8 "Any unfinished phase handler must be
// restartable from its state").
func (e *Engine) Resume(ctx context.Context, state *domain.RunState) error {
	if state.Phase == domain.PhaseStopped {
		return errors.Wrap(errors.ErrRunTerminal, "run already stopped, nothing to resume")
	}
	state.CancelRequested = false
	return e.Run(ctx, state)
}

// Run drives state tick by tick until it stops, is preempted by external
// cancellation, or by its own cancel-requested flag (spec.md §4.8
// cancellation/pause semantics).
func (e *Engine) Run(ctx context.Context, state *domain.RunState) error {
	for {
		if state.Phase == domain.PhaseStopped {
			return nil
		}
		if state.CancelRequested {
			return e.store.WriteState(state)
		}
		if err := ctxutil.Canceled(ctx); err != nil {
			return e.store.WriteState(state)
		}
		if err := e.Tick(ctx, state); err != nil {
			return err
		}
	}
}

// Tick executes exactly one supervisor tick (spec.md §4.8): termination
// check, watchdog check, dispatch to the phase handler, persist.
func (e *Engine) Tick(ctx context.Context, state *domain.RunState) error {
	if state.Phase == domain.PhaseStopped {
		return nil
	}

	now := e.clock.Now()
	if !state.BudgetDeadline.IsZero() && now.After(state.BudgetDeadline) {
		return e.finishTick(state, e.stop(state, domain.StopTimeBudgetExceeded))
	}
	if e.maxTicks > 0 && state.TickCount >= e.maxTicks {
		return e.finishTick(state, e.stop(state, domain.StopMaxTicksReached))
	}
	if !state.LastProgressAt.IsZero() && e.stallThreshold > 0 && now.Sub(state.LastProgressAt) > e.stallThreshold {
		return e.finishTick(state, e.stop(state, domain.StopStalledTimeout))
	}
	if state.CancelRequested {
		return e.store.WriteState(state)
	}

	state.TickCount++
	return e.finishTick(state, e.dispatch(ctx, state))
}

// finishTick persists state unconditionally (spec.md §4.8 step 4) and
// passes handlerErr through, wrapping any persistence failure as the more
// urgent error.
func (e *Engine) finishTick(state *domain.RunState, handlerErr error) error {
	if err := e.store.WriteState(state); err != nil {
		return errors.Wrap(errors.ErrStoreIO, "persist state after tick: "+err.Error())
	}
	return handlerErr
}

func (e *Engine) dispatch(ctx context.Context, state *domain.RunState) error {
	switch state.Phase {
	case domain.PhaseInit:
		return e.handleInit(state)
	case domain.PhasePlan:
		return e.handlePlan(ctx, state)
	case domain.PhaseMilestoneStart:
		return phase.StartMilestone(state, e.clock.Now())
	case domain.PhaseImplement:
		return e.handleImplement(ctx, state)
	case domain.PhaseVerify:
		return e.handleVerify(ctx, state)
	case domain.PhaseReview:
		return e.handleReview(ctx, state)
	case domain.PhaseCheckpoint:
		return e.handleCheckpoint(ctx, state)
	case domain.PhaseFinalize:
		return e.handleFinalize(state)
	default:
		return errors.Wrapf(errors.ErrInvalidPhase, "no handler for phase %s", state.Phase)
	}
}

// transition moves state to "to", emitting a phase_transition event and a
// metrics callback (spec.md §4.8 step 4 "Append any events produced").
func (e *Engine) transition(state *domain.RunState, to domain.Phase) error {
	from := state.Phase
	if err := phase.Transition(state, to, e.clock.Now()); err != nil {
		return err
	}
	e.metrics.PhaseTransitioned(string(from), string(to))
	_, err := e.store.AppendEvent(domain.EventPhaseTransition, string(from), map[string]any{
		"from": string(from), "to": string(to),
	})
	if err != nil {
		return errors.Wrap(errors.ErrStoreIO, "append phase_transition event: "+err.Error())
	}
	return nil
}

// stop transitions state to STOPPED with reason, records the stop event,
// and persists the diagnosis memo/report pair (spec.md §4.9, §7 "Classified
// stop... a structured memo and machine-readable diagnosis are persisted").
func (e *Engine) stop(state *domain.RunState, reason domain.StopReason) error {
	fromPhase := state.Phase
	if err := phase.Stop(state, reason, e.clock.Now()); err != nil {
		return err
	}
	e.metrics.RunStopped(string(reason.Family()))
	_, err := e.store.AppendEvent(domain.EventStop, string(fromPhase), map[string]any{
		"reason": string(reason), "phase": string(fromPhase),
	})
	if err != nil {
		return errors.Wrap(errors.ErrStoreIO, "append stop event: "+err.Error())
	}
	return e.writeStopArtifacts(state)
}
