package domain

import "time"

// EventType enumerates the kinds of events appended to a run's timeline.
// The set is open-ended in principle (spec.md only fixes a few by name) but
// these are the ones the supervisor and checkpoint/submit components emit.
type EventType string

// Known event types referenced by spec.md.
const (
	EventRunCreated      EventType = "run_created"
	EventPhaseTransition EventType = "phase_transition"
	EventWorkerInvoked   EventType = "worker_invoked"
	EventVerification    EventType = "verification"
	EventReview          EventType = "review"
	EventCheckpoint      EventType = "checkpoint"
	EventStop            EventType = "stop"
	EventSubmitConflict  EventType = "submit_conflict"
	EventRunSubmitted    EventType = "run_submitted"
	EventWorktreeEvent   EventType = "worktree_event"
	EventOwnershipClaim  EventType = "ownership_claim"
	EventTrackLaunched   EventType = "track_launched"
	EventTrackCompleted  EventType = "track_completed"
)

// Event is a single append-only timeline record (spec.md §3, §8 property 1).
// seq is assigned by the store at append time and is never set by callers.
type Event struct {
	Seq       int            `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload,omitempty"`
}
