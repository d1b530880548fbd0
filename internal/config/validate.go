package config

import (
	"github.com/weldr-dev/runr/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values. It
// returns an error describing the first validation failure found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateVerification(&cfg.Verification); err != nil {
		return errors.Wrap(err, "validate verification config")
	}
	if err := validateWorkers(cfg.Workers); err != nil {
		return errors.Wrap(err, "validate workers config")
	}
	if err := validatePhases(&cfg.Phases, cfg.Workers); err != nil {
		return errors.Wrap(err, "validate phases config")
	}
	if err := validateResilience(&cfg.Resilience); err != nil {
		return errors.Wrap(err, "validate resilience config")
	}
	if err := validateReceipts(&cfg.Receipts); err != nil {
		return errors.Wrap(err, "validate receipts config")
	}
	if err := validateWorkflow(&cfg.Workflow); err != nil {
		return errors.Wrap(err, "validate workflow config")
	}
	return nil
}

func validateVerification(cfg *VerificationConfig) error {
	if cfg.MaxVerifyTimePerMilestone <= 0 {
		return errors.Wrap(errors.ErrConfigInvalidVerification,
			"verification.max_verify_time_per_milestone must be positive")
	}
	return nil
}

func validateWorkers(workers map[string]WorkerEntry) error {
	for name, w := range workers {
		if w.Bin == "" {
			return errors.Wrapf(errors.ErrConfigInvalidWorker,
				"workers.%s.bin must not be empty", name)
		}
		switch w.Output {
		case "text", "json", "jsonl":
		default:
			return errors.Wrapf(errors.ErrConfigInvalidWorker,
				"workers.%s.output must be one of text|json|jsonl, got %q", name, w.Output)
		}
	}
	return nil
}

func validatePhases(cfg *PhasesConfig, workers map[string]WorkerEntry) error {
	for phase, worker := range map[string]string{
		"plan":      cfg.Plan,
		"implement": cfg.Implement,
		"review":    cfg.Review,
	} {
		if worker == "" {
			return errors.Wrapf(errors.ErrConfigInvalidPhases,
				"phases.%s must name a worker", phase)
		}
		if _, ok := workers[worker]; !ok {
			return errors.Wrapf(errors.ErrConfigInvalidPhases,
				"phases.%s references unknown worker %q", phase, worker)
		}
	}
	return nil
}

func validateResilience(cfg *ResilienceConfig) error {
	if cfg.MaxAutoResumes < 0 {
		return errors.Wrap(errors.ErrConfigInvalidResilience,
			"resilience.max_auto_resumes cannot be negative")
	}
	if cfg.MaxWorkerCallMinutes <= 0 {
		return errors.Wrap(errors.ErrConfigInvalidResilience,
			"resilience.max_worker_call_minutes must be positive")
	}
	if cfg.MaxReviewRounds <= 0 {
		return errors.Wrap(errors.ErrConfigInvalidResilience,
			"resilience.max_review_rounds must be positive")
	}
	return nil
}

func validateReceipts(cfg *ReceiptsConfig) error {
	switch cfg.CaptureCmdOutput {
	case CaptureFull, CaptureTruncated, CaptureMetadataOnly:
	default:
		return errors.Wrapf(errors.ErrConfigInvalidReceipts,
			"receipts.capture_cmd_output must be one of full|truncated|metadata_only, got %q",
			cfg.CaptureCmdOutput)
	}
	if cfg.MaxOutputBytes <= 0 {
		return errors.Wrap(errors.ErrConfigInvalidReceipts,
			"receipts.max_output_bytes must be positive")
	}
	return nil
}

func validateWorkflow(cfg *WorkflowConfig) error {
	if cfg.IntegrationBranch == "" {
		return errors.Wrap(errors.ErrConfigInvalidWorkflow,
			"workflow.integration_branch must not be empty")
	}
	switch cfg.SubmitStrategy {
	case SubmitCherryPick, SubmitMerge, SubmitRebase:
	default:
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.submit_strategy must be one of cherry_pick|merge|rebase, got %q",
			cfg.SubmitStrategy)
	}
	return nil
}
