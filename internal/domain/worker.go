package domain

// OutputFormat enumerates how a worker process emits its output
// (spec.md §4.4, §6 workers.<name>.output).
type OutputFormat string

// Known output formats.
const (
	OutputText  OutputFormat = "text"
	OutputJSON  OutputFormat = "json"
	OutputJSONL OutputFormat = "jsonl"
)

// Valid reports whether f is a known output format.
func (f OutputFormat) Valid() bool {
	switch f {
	case OutputText, OutputJSON, OutputJSONL:
		return true
	default:
		return false
	}
}

// WorkerConfig describes how to invoke one named worker (spec.md §6).
type WorkerConfig struct {
	Name string       `yaml:"-" json:"-"`
	Bin  string       `yaml:"bin" json:"bin"`
	Args []string     `yaml:"args" json:"args"`
	Output OutputFormat `yaml:"output" json:"output"`
}

// PlannerOutput is the planner phase's expected JSON shape (spec.md §4.4).
type PlannerOutput struct {
	Milestones []Milestone `json:"milestones"`
}

// NoChangesEvidence backs the implementer's "no changes needed" assertion
// (spec.md §4.4, §4.8). Exactly the union of evidence forms the implementer
// may supply; IMPLEMENT phase handling decides which (if any) are sufficient.
type NoChangesEvidence struct {
	FilesChecked []string             `json:"files_checked,omitempty"`
	GrepOutput   string               `json:"grep_output,omitempty"`
	CommandsRun  []NoChangesCommand   `json:"commands_run,omitempty"`
}

// NoChangesCommand is one entry of NoChangesEvidence.CommandsRun.
type NoChangesCommand struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
}

// ImplementerStatus enumerates the implementer's terminal status.
type ImplementerStatus string

// Implementer status values.
const (
	ImplementComplete ImplementerStatus = "complete"
	ImplementBlocked  ImplementerStatus = "blocked"
)

// ImplementerOutput is the implementer phase's expected JSON shape
// (spec.md §4.4).
type ImplementerOutput struct {
	Status            ImplementerStatus  `json:"status"`
	Summary           string             `json:"summary"`
	ChangedFiles      []string           `json:"changed_files"`
	NoChangesEvidence *NoChangesEvidence `json:"no_changes_evidence,omitempty"`
}

// ReviewDecision enumerates the reviewer's decision.
type ReviewDecision string

// Review decision values.
const (
	ReviewApprove        ReviewDecision = "approve"
	ReviewRequestChanges ReviewDecision = "request_changes"
	ReviewReject         ReviewDecision = "reject"
)

// ReviewCheck is one machine-readable check entry in reviewer feedback
// (spec.md §4.4).
type ReviewCheck struct {
	Type        string `json:"type"`
	Command     string `json:"command"`
	Requirement string `json:"requirement"`
	Current     string `json:"current"`
}

// ReviewerOutput is the reviewer phase's expected JSON shape (spec.md §4.4).
// Fingerprint is a stable hash of Checks, computed by the worker adapter
// caller (internal/phase), not by the worker itself — the worker only
// supplies the machine-readable payload the fingerprint is derived from.
type ReviewerOutput struct {
	Decision    ReviewDecision `json:"decision"`
	Feedback    string         `json:"feedback"`
	Checks      []ReviewCheck  `json:"checks,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
}
