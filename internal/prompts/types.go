package prompts

// PromptID identifies a specific prompt template.
type PromptID string

// Prompt identifiers for the three AI-driven phase handlers (spec.md §4.4,
// §4.8).
const (
	Planner     PromptID = "plan/planner"
	Implementer PromptID = "implement/implementer"
	Reviewer    PromptID = "review/reviewer"
)

// PlannerData is the PLAN phase handler's template input (spec.md §4.8 PLAN:
// "build planner prompt from task text, scope lock, fix-instructions").
type PlannerData struct {
	TaskText        string
	Allowlist       []string
	Denylist        []string
	FixInstructions string
}

// ImplementerData is the IMPLEMENT phase handler's template input (spec.md
// §4.8 IMPLEMENT: "current milestone, optional fix instructions ..., and a
// context pack").
type ImplementerData struct {
	MilestoneGoal     string
	FilesExpected     []string
	DoneChecks        []string
	Attempt           int
	FixInstructions   string
	VerificationTiers []string
}

// ReviewerData is the REVIEW phase handler's template input (spec.md §4.8
// REVIEW: "diff summary, verification evidence, and milestone goal").
type ReviewerData struct {
	MilestoneGoal      string
	ChangedFiles       []string
	ImplementerSummary string
	VerificationOutput string
}
