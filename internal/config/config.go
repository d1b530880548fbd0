// Package config provides configuration management for runr with layered
// precedence.
//
// Configuration sources are loaded in the following order (highest
// precedence first):
//  1. CLI flags (bound by the CLI layer; Load itself reads none)
//  2. Environment variables (RUNR_* prefix)
//  3. Project config (.runr/config.yaml)
//  4. Global config (~/.runr/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for runr (spec.md §6).
type Config struct {
	Scope        ScopeConfig        `yaml:"scope" mapstructure:"scope"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Workers      map[string]WorkerEntry `yaml:"workers" mapstructure:"workers"`
	Phases       PhasesConfig       `yaml:"phases" mapstructure:"phases"`
	Resilience   ResilienceConfig   `yaml:"resilience" mapstructure:"resilience"`
	Receipts     ReceiptsConfig     `yaml:"receipts" mapstructure:"receipts"`
	Workflow     WorkflowConfig     `yaml:"workflow" mapstructure:"workflow"`
}

// ScopeConfig is the allowlist/denylist/lockfile/env_allowlist source for the
// Scope Guard (spec.md §4.2, §6).
type ScopeConfig struct {
	Allowlist    []string `yaml:"allowlist" mapstructure:"allowlist"`
	Denylist     []string `yaml:"denylist" mapstructure:"denylist"`
	Lockfiles    []string `yaml:"lockfiles" mapstructure:"lockfiles"`
	EnvAllowlist []string `yaml:"env_allowlist" mapstructure:"env_allowlist"`
	AllowDeps    bool     `yaml:"allow_deps" mapstructure:"allow_deps"`
}

// VerificationConfig configures the tiered Verification Engine (spec.md
// §4.3, §4.6, §6).
type VerificationConfig struct {
	Tier0                    []string      `yaml:"tier0" mapstructure:"tier0"`
	Tier1                    []string      `yaml:"tier1" mapstructure:"tier1"`
	Tier2                    []string      `yaml:"tier2" mapstructure:"tier2"`
	RiskTriggers             []string      `yaml:"risk_triggers" mapstructure:"risk_triggers"`
	MaxVerifyTimePerMilestone time.Duration `yaml:"max_verify_time_per_milestone" mapstructure:"max_verify_time_per_milestone"`
	CWD                      string        `yaml:"cwd" mapstructure:"cwd"`
}

// WorkerEntry describes one named worker invocation target (spec.md §4.4, §6).
type WorkerEntry struct {
	Bin    string   `yaml:"bin" mapstructure:"bin"`
	Args   []string `yaml:"args" mapstructure:"args"`
	Output string   `yaml:"output" mapstructure:"output"`
}

// PhasesConfig maps each AI-driven phase to the worker name that serves it
// (spec.md §6).
type PhasesConfig struct {
	Plan        string `yaml:"plan" mapstructure:"plan"`
	Implement   string `yaml:"implement" mapstructure:"implement"`
	Review      string `yaml:"review" mapstructure:"review"`
}

// ResilienceConfig governs auto-resume and retry bounds (spec.md §4.7, §4.8,
// §6).
type ResilienceConfig struct {
	AutoResume          bool  `yaml:"auto_resume" mapstructure:"auto_resume"`
	MaxAutoResumes      int   `yaml:"max_auto_resumes" mapstructure:"max_auto_resumes"`
	MaxWorkerCallMinutes int  `yaml:"max_worker_call_minutes" mapstructure:"max_worker_call_minutes"`
	MaxReviewRounds     int   `yaml:"max_review_rounds" mapstructure:"max_review_rounds"`
	AutoResumeDelaysMs  []int `yaml:"auto_resume_delays_ms" mapstructure:"auto_resume_delays_ms"`
}

// ReceiptsConfig controls redaction and command-output capture policy for
// persisted artifacts (spec.md §6).
type ReceiptsConfig struct {
	Redact            bool   `yaml:"redact" mapstructure:"redact"`
	CaptureCmdOutput  string `yaml:"capture_cmd_output" mapstructure:"capture_cmd_output"`
	MaxOutputBytes    int    `yaml:"max_output_bytes" mapstructure:"max_output_bytes"`
}

// Capture modes for ReceiptsConfig.CaptureCmdOutput.
const (
	CaptureFull         = "full"
	CaptureTruncated    = "truncated"
	CaptureMetadataOnly = "metadata_only"
)

// WorkflowConfig governs submit/merge policy (spec.md §4.10, §6).
type WorkflowConfig struct {
	Mode                string   `yaml:"mode" mapstructure:"mode"`
	IntegrationBranch   string   `yaml:"integration_branch" mapstructure:"integration_branch"`
	ReleaseBranch       string   `yaml:"release_branch" mapstructure:"release_branch"`
	SubmitStrategy      string   `yaml:"submit_strategy" mapstructure:"submit_strategy"`
	ProtectedBranches   []string `yaml:"protected_branches" mapstructure:"protected_branches"`
	RequireCleanTree    bool     `yaml:"require_clean_tree" mapstructure:"require_clean_tree"`
	RequireVerification bool     `yaml:"require_verification" mapstructure:"require_verification"`
}

// Workflow submit strategies.
const (
	SubmitCherryPick = "cherry_pick"
	SubmitMerge      = "merge"
	SubmitRebase     = "rebase"
)
