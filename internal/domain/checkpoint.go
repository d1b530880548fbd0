package domain

import "time"

// CheckpointSidecar is the authoritative per-commit metadata record
// (spec.md §3, §4.10). Git commit messages are advisory only; this sidecar
// is what submit validation and diagnosis read.
type CheckpointSidecar struct {
	SchemaVersion int `json:"schema_version"`

	RunID           string `json:"run_id"`
	MilestoneIndex  int    `json:"milestone_index"`
	MilestoneGoal   string `json:"milestone_goal"`

	Verification []VerificationEvidence `json:"verification"`

	BaseSHA   string    `json:"base_sha"`
	CommitSHA string    `json:"commit_sha"`
	Timestamp time.Time `json:"timestamp"`
}

// InterventionReceipt is a consumed-only interface type (spec.md §3): it is
// contributed by external tooling (not produced by this core) and read by
// the diagnosis/audit layers. Defined here only so consumers have a stable
// shape to deserialize against.
type InterventionReceipt struct {
	BaseSHA string `json:"base_sha"`
	HeadSHA string `json:"head_sha"`
	RunID   string `json:"run_id"`
	Reason  string `json:"reason"`
	Note    string `json:"note"`
}
