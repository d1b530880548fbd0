// Package metrics collects per-call telemetry for the Worker Adapter and
// Supervisor Loop (spec.md §4.4 "Record per-call telemetry") and exposes it
// through a Prometheus registry.
//
// The interface mirrors the teacher's task.Metrics shape (a handful of
// lifecycle callbacks plus a NoopMetrics default); the concrete
// implementation here backs those callbacks with prometheus/client_golang
// collectors instead of leaving them to the caller.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects runtime telemetry. Implementations can send these to
// Prometheus or discard them entirely (NoopRecorder).
type Recorder interface {
	// WorkerInvoked is called after one worker invocation completes.
	WorkerInvoked(workerName, phase, outcome string, duration time.Duration)

	// VerificationRun is called after one verification tier completes.
	VerificationRun(tier string, ok bool, duration time.Duration)

	// PhaseTransitioned is called on every phase state machine transition.
	PhaseTransitioned(from, to string)

	// RunStopped is called once a run reaches STOPPED, tagged by stop
	// family.
	RunStopped(family string)
}

// NoopRecorder discards all telemetry.
type NoopRecorder struct{}

// Ensure NoopRecorder implements Recorder.
var _ Recorder = NoopRecorder{}

// WorkerInvoked implements Recorder.
func (NoopRecorder) WorkerInvoked(string, string, string, time.Duration) {}

// VerificationRun implements Recorder.
func (NoopRecorder) VerificationRun(string, bool, time.Duration) {}

// PhaseTransitioned implements Recorder.
func (NoopRecorder) PhaseTransitioned(string, string) {}

// RunStopped implements Recorder.
func (NoopRecorder) RunStopped(string) {}

// PrometheusRecorder backs Recorder with a dedicated prometheus.Registry so
// callers can mount it under their own /metrics handler.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	workerInvocations *prometheus.CounterVec
	workerDuration    *prometheus.HistogramVec
	verificationRuns  *prometheus.CounterVec
	verificationDur   *prometheus.HistogramVec
	phaseTransitions  *prometheus.CounterVec
	runStops          *prometheus.CounterVec
}

// NewPrometheusRecorder constructs and registers all collectors on a fresh
// registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		workerInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runr",
			Subsystem: "worker",
			Name:      "invocations_total",
			Help:      "Total worker invocations by worker name, phase, and outcome.",
		}, []string{"worker", "phase", "outcome"}),
		workerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "runr",
			Subsystem: "worker",
			Name:      "invocation_duration_seconds",
			Help:      "Worker invocation duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"worker", "phase"}),
		verificationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runr",
			Subsystem: "verification",
			Name:      "runs_total",
			Help:      "Total verification tier runs by tier and result.",
		}, []string{"tier", "ok"}),
		verificationDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "runr",
			Subsystem: "verification",
			Name:      "duration_seconds",
			Help:      "Verification tier duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),
		phaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runr",
			Subsystem: "supervisor",
			Name:      "phase_transitions_total",
			Help:      "Total phase transitions by source and destination phase.",
		}, []string{"from", "to"}),
		runStops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runr",
			Subsystem: "supervisor",
			Name:      "run_stops_total",
			Help:      "Total runs reaching STOPPED, by stop reason family.",
		}, []string{"family"}),
	}

	r.registry.MustRegister(
		r.workerInvocations,
		r.workerDuration,
		r.verificationRuns,
		r.verificationDur,
		r.phaseTransitions,
		r.runStops,
	)
	return r
}

// Registry exposes the underlying prometheus.Registry for mounting under an
// HTTP handler (e.g. promhttp.HandlerFor).
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

// WorkerInvoked implements Recorder.
func (r *PrometheusRecorder) WorkerInvoked(workerName, phase, outcome string, duration time.Duration) {
	r.workerInvocations.WithLabelValues(workerName, phase, outcome).Inc()
	r.workerDuration.WithLabelValues(workerName, phase).Observe(duration.Seconds())
}

// VerificationRun implements Recorder.
func (r *PrometheusRecorder) VerificationRun(tier string, ok bool, duration time.Duration) {
	r.verificationRuns.WithLabelValues(tier, boolLabel(ok)).Inc()
	r.verificationDur.WithLabelValues(tier).Observe(duration.Seconds())
}

// PhaseTransitioned implements Recorder.
func (r *PrometheusRecorder) PhaseTransitioned(from, to string) {
	r.phaseTransitions.WithLabelValues(from, to).Inc()
}

// RunStopped implements Recorder.
func (r *PrometheusRecorder) RunStopped(family string) {
	r.runStops.WithLabelValues(family).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Ensure PrometheusRecorder implements Recorder.
var _ Recorder = (*PrometheusRecorder)(nil)
