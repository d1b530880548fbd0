package domain

import "time"

// TrackStatus enumerates the lifecycle of one orchestrated track
// (spec.md §3, §4.11).
type TrackStatus string

// Track status values.
const (
	TrackPending   TrackStatus = "pending"
	TrackRunning   TrackStatus = "running"
	TrackStopped   TrackStatus = "stopped"
	TrackSubmitted TrackStatus = "submitted"
	TrackFailed    TrackStatus = "failed"
)

// CollisionPolicy controls how the orchestrator admits a track whose
// ownership claim overlaps one already held (spec.md §4.11).
type CollisionPolicy string

// Collision policy values.
const (
	CollisionSerialize CollisionPolicy = "serialize"
	CollisionForce     CollisionPolicy = "force"
	CollisionFail      CollisionPolicy = "fail"
)

// Valid reports whether p is a known collision policy.
func (p CollisionPolicy) Valid() bool {
	switch p {
	case CollisionSerialize, CollisionForce, CollisionFail:
		return true
	default:
		return false
	}
}

// OwnershipClaim records the path patterns one track has staked out for
// the duration of its run. Two claims collide when any pattern in one
// overlaps a pattern in the other (spec.md §4.11).
type OwnershipClaim struct {
	RunID    string   `json:"run_id"`
	Patterns []string `json:"patterns"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// TrackStep is one queued unit of work inside a track (spec.md §3).
type TrackStep struct {
	RunID     string      `json:"run_id"`
	TaskText  string      `json:"task_text"`
	ScopeLock ScopeLock   `json:"scope_lock"`
	Status    TrackStatus `json:"status"`
}

// Track is one independently-scheduled sequence of runs inside an
// orchestration (spec.md §3, §4.11).
type Track struct {
	Name  string      `json:"name"`
	Steps []TrackStep `json:"steps"`
}

// OrchestrationState is the persisted record of a multi-track run
// (spec.md §3). It is the orchestrator's analogue of RunState.
type OrchestrationState struct {
	SchemaVersion int    `json:"schema_version"`
	OrchestrationID string `json:"orchestration_id"`

	Tracks          []Track          `json:"tracks"`
	CollisionPolicy CollisionPolicy  `json:"collision_policy"`
	Claims          []OwnershipClaim `json:"claims,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveTrackRunIDs returns the run IDs of every step currently running
// across all tracks.
func (o *OrchestrationState) ActiveTrackRunIDs() []string {
	var ids []string
	for _, t := range o.Tracks {
		for _, s := range t.Steps {
			if s.Status == TrackRunning {
				ids = append(ids, s.RunID)
			}
		}
	}
	return ids
}
