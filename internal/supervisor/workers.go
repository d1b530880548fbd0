package supervisor

import (
	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/errors"
)

// workerFor resolves the worker entry configured for a phase name ("plan",
// "implement", "review") via config.Phases (spec.md §6). Config validation
// is expected to have already guaranteed the referenced worker exists; this
// is a defensive second check so a bad resume snapshot fails loudly instead
// of invoking a zero-value worker.
func (e *Engine) workerFor(phaseName string) (string, config.WorkerEntry, error) {
	var workerName string
	switch phaseName {
	case "plan":
		workerName = e.cfg.Phases.Plan
	case "implement":
		workerName = e.cfg.Phases.Implement
	case "review":
		workerName = e.cfg.Phases.Review
	}
	if workerName == "" {
		return "", config.WorkerEntry{}, errors.Wrapf(errors.ErrConfigInvalidPhases, "no worker configured for phase %q", phaseName)
	}
	entry, ok := e.cfg.Workers[workerName]
	if !ok {
		return "", config.WorkerEntry{}, errors.Wrapf(errors.ErrConfigInvalidPhases, "phase %q references unknown worker %q", phaseName, workerName)
	}
	return workerName, entry, nil
}

// allVerificationCommands concatenates the configured tiers, for display in
// the implementer's context pack (spec.md §4.8 IMPLEMENT: "context pack
// (verification commands, reference patterns)").
func (e *Engine) allVerificationCommands() []string {
	var out []string
	out = append(out, e.cfg.Verification.Tier0...)
	out = append(out, e.cfg.Verification.Tier1...)
	out = append(out, e.cfg.Verification.Tier2...)
	return out
}

// verifyCWD returns the working directory verification commands run in,
// defaulting to the run's worktree when config.Verification.CWD is unset.
func verifyCWD(cwd, worktreePath string) string {
	if cwd != "" {
		return cwd
	}
	return worktreePath
}
