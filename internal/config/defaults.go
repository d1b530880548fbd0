package config

import (
	"github.com/spf13/viper"

	"github.com/weldr-dev/runr/internal/constants"
)

// setDefaults configures all default values on the Viper instance. These
// defaults match the values a fresh DefaultConfig would hold.
// IMPORTANT: keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	// Scope defaults: empty lists. With an empty allowlist every path is
	// allowed except those the denylist matches.
	v.SetDefault("scope.allowlist", []string{})
	v.SetDefault("scope.denylist", []string{})
	v.SetDefault("scope.lockfiles", []string{})
	v.SetDefault("scope.env_allowlist", []string{})
	v.SetDefault("scope.allow_deps", false)

	// Verification defaults.
	v.SetDefault("verification.tier0", []string{})
	v.SetDefault("verification.tier1", []string{})
	v.SetDefault("verification.tier2", []string{})
	v.SetDefault("verification.risk_triggers", []string{})
	v.SetDefault("verification.max_verify_time_per_milestone", constants.DefaultMilestoneVerifyBudget)
	v.SetDefault("verification.cwd", "")

	// Workers defaults: empty, must be configured per-project.
	v.SetDefault("workers", map[string]interface{}{})

	// Phases defaults.
	v.SetDefault("phases.plan", "")
	v.SetDefault("phases.implement", "")
	v.SetDefault("phases.review", "")

	// Resilience defaults.
	v.SetDefault("resilience.auto_resume", true)
	v.SetDefault("resilience.max_auto_resumes", 3)
	v.SetDefault("resilience.max_worker_call_minutes", 45)
	v.SetDefault("resilience.max_review_rounds", constants.MaxReviewRounds)
	v.SetDefault("resilience.auto_resume_delays_ms", []int{1000, 5000, 15000})

	// Receipts defaults.
	v.SetDefault("receipts.redact", true)
	v.SetDefault("receipts.capture_cmd_output", CaptureTruncated)
	v.SetDefault("receipts.max_output_bytes", constants.MaxGrepEvidenceBytes)

	// Workflow defaults.
	v.SetDefault("workflow.mode", "trunk")
	v.SetDefault("workflow.integration_branch", "main")
	v.SetDefault("workflow.release_branch", "")
	v.SetDefault("workflow.submit_strategy", SubmitCherryPick)
	v.SetDefault("workflow.protected_branches", []string{"main"})
	v.SetDefault("workflow.require_clean_tree", true)
	v.SetDefault("workflow.require_verification", true)
}

// DefaultConfig returns the built-in configuration with no overrides applied.
func DefaultConfig() *Config {
	return &Config{
		Verification: VerificationConfig{
			MaxVerifyTimePerMilestone: constants.DefaultMilestoneVerifyBudget,
		},
		Resilience: ResilienceConfig{
			AutoResume:           true,
			MaxAutoResumes:       3,
			MaxWorkerCallMinutes: 45,
			MaxReviewRounds:      constants.MaxReviewRounds,
			AutoResumeDelaysMs:   []int{1000, 5000, 15000},
		},
		Receipts: ReceiptsConfig{
			Redact:           true,
			CaptureCmdOutput: CaptureTruncated,
			MaxOutputBytes:   constants.MaxGrepEvidenceBytes,
		},
		Workflow: WorkflowConfig{
			Mode:                "trunk",
			IntegrationBranch:   "main",
			SubmitStrategy:      SubmitCherryPick,
			ProtectedBranches:   []string{"main"},
			RequireCleanTree:    true,
			RequireVerification: true,
		},
	}
}
