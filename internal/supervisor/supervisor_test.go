package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weldr-dev/runr/internal/clock"
	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/verify"
	"github.com/weldr-dev/runr/internal/worker"
)

// fakeStore is an in-memory RunStore, grounded in the teacher's task.Engine
// test fakes: exercise the interface's contract without a real filesystem.
type fakeStore struct {
	states    []*domain.RunState
	events    []domain.Event
	artifacts map[string][]byte
	memos     map[string]string
	plan      string
	summary   string
	sidecar   *domain.CheckpointSidecar
}

func newFakeStore() *fakeStore {
	return &fakeStore{artifacts: map[string][]byte{}, memos: map[string]string{}}
}

func (f *fakeStore) WriteState(state *domain.RunState) error {
	cp := *state
	f.states = append(f.states, &cp)
	return nil
}

func (f *fakeStore) AppendEvent(kind domain.EventType, source string, payload map[string]any) (domain.Event, error) {
	ev := domain.Event{Seq: len(f.events) + 1, Type: kind, Source: source, Payload: payload}
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeStore) ReadTimeline() ([]domain.Event, error) { return f.events, nil }

func (f *fakeStore) WriteArtifact(name string, data []byte) error {
	f.artifacts[name] = data
	return nil
}

func (f *fakeStore) WriteMemo(name, text string) error {
	f.memos[name] = text
	return nil
}

func (f *fakeStore) WritePlan(text string) error {
	f.plan = text
	return nil
}

func (f *fakeStore) WriteSummary(text string) error {
	f.summary = text
	return nil
}

func (f *fakeStore) WriteCheckpointSidecar(sidecar *domain.CheckpointSidecar) error {
	f.sidecar = sidecar
	return nil
}

type fakeWorker struct {
	result worker.Result
	err    error
}

func (f *fakeWorker) Invoke(_ context.Context, _ string, _ config.WorkerEntry, _, _, _ string, validate worker.Validator) (worker.Result, error) {
	if f.err != nil {
		return worker.Result{}, f.err
	}
	if validate != nil && f.result.ParsedJSON != "" {
		if err := validate([]byte(f.result.ParsedJSON)); err != nil {
			return worker.Result{ParseError: err}, nil
		}
	}
	return f.result, nil
}

type fakeVerifier struct{ result verify.Result }

func (f *fakeVerifier) Run(_ context.Context, _ string, _ []string, _ string, _ time.Duration) verify.Result {
	return f.result
}

func testConfig() config.Config {
	return config.Config{
		Phases: config.PhasesConfig{Plan: "planner", Implement: "implementer", Review: "reviewer"},
		Workers: map[string]config.WorkerEntry{
			"planner":     {Bin: "/bin/true"},
			"implementer": {Bin: "/bin/true"},
			"reviewer":    {Bin: "/bin/true"},
		},
		Verification: config.VerificationConfig{
			Tier0: []string{"go build ./..."},
			Tier1: []string{"go vet ./..."},
			Tier2: []string{"go test ./..."},
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	e := New(store, &fakeWorker{}, &fakeVerifier{}, testConfig(), zerolog.Nop(), opts...)
	return e, store
}

func TestEngine_WorkerFor(t *testing.T) {
	e, _ := newTestEngine(t)

	name, entry, err := e.workerFor("plan")
	require.NoError(t, err)
	assert.Equal(t, "planner", name)
	assert.Equal(t, "/bin/true", entry.Bin)

	_, _, err = e.workerFor("unknown-phase")
	assert.ErrorIs(t, err, errors.ErrConfigInvalidPhases)
}

func TestEngine_WorkerFor_UnknownWorkerReference(t *testing.T) {
	cfg := testConfig()
	cfg.Phases.Plan = "nonexistent"
	e := New(newFakeStore(), &fakeWorker{}, &fakeVerifier{}, cfg, zerolog.Nop())

	_, _, err := e.workerFor("plan")
	assert.ErrorIs(t, err, errors.ErrConfigInvalidPhases)
}

func TestEngine_AllVerificationCommands(t *testing.T) {
	e, _ := newTestEngine(t)
	got := e.allVerificationCommands()
	assert.Equal(t, []string{"go build ./...", "go vet ./...", "go test ./..."}, got)
}

func TestVerifyCWD(t *testing.T) {
	assert.Equal(t, "/configured", verifyCWD("/configured", "/worktree"))
	assert.Equal(t, "/worktree", verifyCWD("", "/worktree"))
}

func TestEngine_Tick_StopsOnBudgetExceeded(t *testing.T) {
	now := time.Now()
	e, store := newTestEngine(t, WithClock(clock.MockClock{FixedTime: now}))
	state := &domain.RunState{Phase: domain.PhasePlan, BudgetDeadline: now.Add(-time.Minute)}

	err := e.Tick(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseStopped, state.Phase)
	require.NotNil(t, state.StopReason)
	assert.Equal(t, domain.StopTimeBudgetExceeded, *state.StopReason)
	require.Len(t, store.states, 1)
}

func TestEngine_Tick_StopsOnMaxTicksReached(t *testing.T) {
	e, _ := newTestEngine(t, WithMaxTicks(3))
	state := &domain.RunState{Phase: domain.PhasePlan, TickCount: 3}

	err := e.Tick(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, state.StopReason)
	assert.Equal(t, domain.StopMaxTicksReached, *state.StopReason)
}

func TestEngine_Tick_StopsOnStallThreshold(t *testing.T) {
	now := time.Now()
	e, _ := newTestEngine(t, WithClock(clock.MockClock{FixedTime: now}), WithStallThreshold(time.Minute))
	state := &domain.RunState{Phase: domain.PhasePlan, LastProgressAt: now.Add(-time.Hour)}

	err := e.Tick(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, state.StopReason)
	assert.Equal(t, domain.StopStalledTimeout, *state.StopReason)
}

func TestEngine_Tick_AlreadyStoppedIsNoop(t *testing.T) {
	e, store := newTestEngine(t)
	state := &domain.RunState{Phase: domain.PhaseStopped}

	err := e.Tick(context.Background(), state)
	require.NoError(t, err)
	assert.Empty(t, store.states, "a stopped run must not be re-persisted by Tick")
}

func TestEngine_Tick_CancelRequestedPersistsWithoutDispatch(t *testing.T) {
	e, store := newTestEngine(t)
	state := &domain.RunState{Phase: domain.PhasePlan, CancelRequested: true}

	err := e.Tick(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePlan, state.Phase, "cancellation must not advance the phase")
	require.Len(t, store.states, 1)
}

func TestEngine_Dispatch_UnknownPhase(t *testing.T) {
	e, _ := newTestEngine(t)
	state := &domain.RunState{Phase: domain.Phase("BOGUS")}

	err := e.Tick(context.Background(), state)
	assert.ErrorIs(t, err, errors.ErrInvalidPhase)
}

func TestEngine_Run_StopsImmediatelyWhenAlreadyStopped(t *testing.T) {
	e, store := newTestEngine(t)
	state := &domain.RunState{Phase: domain.PhaseStopped}

	err := e.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Empty(t, store.states)
}

func TestEngine_Run_RespectsCanceledContext(t *testing.T) {
	e, store := newTestEngine(t)
	state := &domain.RunState{Phase: domain.PhasePlan}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx, state)
	require.NoError(t, err)
	require.Len(t, store.states, 1, "the pre-cancellation state must still be persisted")
	assert.Equal(t, domain.PhasePlan, state.Phase)
}

func TestEngine_Stop_WritesDiagnosisArtifacts(t *testing.T) {
	e, store := newTestEngine(t)
	state := &domain.RunState{Phase: domain.PhaseImplement, RunID: "run-1"}

	err := e.stop(state, domain.StopComplete)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseStopped, state.Phase)
	assert.Contains(t, store.memos, "stop.md")
	assert.Contains(t, store.memos, "stop.json")

	var sawStop bool
	for _, ev := range store.events {
		if ev.Type == domain.EventStop {
			sawStop = true
		}
	}
	assert.True(t, sawStop, "stopping must append a stop event")
}

// TestHandleVerify_StopsAfterExactlyThreeFailures exercises the
// VERIFY→IMPLEMENT retry rule (spec.md §4.7): milestone_retries increments
// on each failure and the run stops once it reaches the cap, so exactly
// constants.MaxMilestoneRetries failing verification events are recorded
// before the stop.
func TestHandleVerify_StopsAfterExactlyThreeFailures(t *testing.T) {
	store := newFakeStore()
	verifier := &fakeVerifier{result: verify.Result{OK: false, FailedCommand: "go build ./...", ExitCode: 1}}
	e := New(store, &fakeWorker{}, verifier, testConfig(), zerolog.Nop(),
		WithChangedFilesFunc(func(context.Context, string) ([]string, error) { return nil, nil }))

	state := &domain.RunState{
		Phase:      domain.PhaseVerify,
		Milestones: []domain.Milestone{{Goal: "do it"}},
	}

	for i := 0; i < constants.MaxMilestoneRetries; i++ {
		state.Phase = domain.PhaseVerify
		err := e.handleVerify(context.Background(), state)
		require.NoError(t, err)
		state.PendingVerification = nil
	}

	assert.Equal(t, domain.PhaseStopped, state.Phase)
	require.NotNil(t, state.StopReason)
	assert.Equal(t, domain.StopVerificationFailedMaxRetries, *state.StopReason)
	assert.Equal(t, constants.MaxMilestoneRetries, state.MilestoneRetries)

	failCount := 0
	for _, ev := range store.events {
		if ev.Type == domain.EventVerification {
			ok, _ := ev.Payload["ok"].(bool)
			assert.False(t, ok)
			failCount++
		}
	}
	assert.Equal(t, constants.MaxMilestoneRetries, failCount)
}

func TestValidatePlannerOutput(t *testing.T) {
	t.Run("rejects empty milestones", func(t *testing.T) {
		_, err := validatePlannerOutput([]byte(`{"milestones": []}`))
		assert.Error(t, err)
	})

	t.Run("rejects an invalid milestone", func(t *testing.T) {
		_, err := validatePlannerOutput([]byte(`{"milestones": [{"goal": ""}]}`))
		assert.Error(t, err)
	})

	t.Run("accepts a well-formed plan", func(t *testing.T) {
		out, err := validatePlannerOutput([]byte(`{"milestones": [{"goal": "do it"}]}`))
		require.NoError(t, err)
		require.Len(t, out.Milestones, 1)
		assert.Equal(t, "do it", out.Milestones[0].Goal)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := validatePlannerOutput([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestValidateImplementerOutput(t *testing.T) {
	t.Run("accepts complete", func(t *testing.T) {
		out, err := validateImplementerOutput([]byte(`{"status": "complete"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.ImplementComplete, out.Status)
	})

	t.Run("accepts blocked", func(t *testing.T) {
		_, err := validateImplementerOutput([]byte(`{"status": "blocked"}`))
		require.NoError(t, err)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		_, err := validateImplementerOutput([]byte(`{"status": "done"}`))
		assert.Error(t, err)
	})
}

func TestValidateReviewerOutput(t *testing.T) {
	t.Run("accepts each known decision", func(t *testing.T) {
		for _, d := range []string{"approve", "request_changes", "reject"} {
			_, err := validateReviewerOutput([]byte(`{"decision": "` + d + `"}`))
			assert.NoError(t, err)
		}
	})

	t.Run("rejects an unknown decision", func(t *testing.T) {
		_, err := validateReviewerOutput([]byte(`{"decision": "maybe"}`))
		assert.Error(t, err)
	})
}
