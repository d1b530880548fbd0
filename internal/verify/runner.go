// Package verify implements the Verification Engine: it runs configured
// commands, captures output, honors a time budget, and reports results
// (spec.md §4.3).
//
// Unlike the teacher's validation package (internal/validation), commands
// here are never passed through a shell: spec.md §4.3 requires direct
// execution so aliases and shell-only syntax are explicitly out of scope.
package verify

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weldr-dev/runr/internal/errors"
)

// CommandRunner executes one command directly (no shell) and returns its
// combined output and exit code. Implementations allow tests to inject a
// fake runner.
type CommandRunner interface {
	Run(ctx context.Context, workDir, command string) (output string, exitCode int, err error)
}

// DefaultCommandRunner implements CommandRunner using os/exec, splitting
// command on whitespace and invoking the binary directly.
type DefaultCommandRunner struct{}

// Run tokenizes command on whitespace and executes it without a shell.
func (DefaultCommandRunner) Run(ctx context.Context, workDir, command string) (string, int, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", 0, errors.Wrap(errors.ErrEmptyValue, "empty verification command")
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...) //#nosec G204 -- commands come from trusted project config, spec.md §4.3 forbids shell indirection
	cmd.Dir = workDir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	return buf.String(), exitCode, nil
}

// Result is the outcome of running one tier (spec.md §4.3 contract).
type Result struct {
	OK             bool
	FailedCommand  string
	ExitCode       int
	CapturedOutput string
	DurationS      float64
	TimeBudgetExhausted bool
}

// Engine runs verification tiers with a runner and optional live log
// streaming (e.g. into the run store's artifacts directory).
type Engine struct {
	runner CommandRunner
	logger zerolog.Logger
}

// New constructs a verification Engine. A nil runner defaults to
// DefaultCommandRunner.
func New(runner CommandRunner, logger zerolog.Logger) *Engine {
	if runner == nil {
		runner = DefaultCommandRunner{}
	}
	return &Engine{runner: runner, logger: logger}
}

// Run executes commands sequentially in cwd, honoring timeBudgetRemaining
// (spec.md §4.3). The first non-zero exit code stops the tier. If the
// budget is exhausted mid-tier, remaining commands are skipped and the tier
// is reported failed with TimeBudgetExhausted set.
func (e *Engine) Run(ctx context.Context, tier string, commands []string, cwd string, timeBudgetRemaining time.Duration) Result {
	start := time.Now()
	var combined bytes.Buffer

	deadline := start.Add(timeBudgetRemaining)
	for _, command := range commands {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{
				OK:                  false,
				CapturedOutput:      combined.String(),
				DurationS:           time.Since(start).Seconds(),
				TimeBudgetExhausted: true,
			}
		}

		cmdCtx, cancel := context.WithTimeout(ctx, remaining)
		output, exitCode, err := e.runner.Run(cmdCtx, cwd, command)
		cancel()

		combined.WriteString("$ " + command + "\n")
		combined.WriteString(output)
		if !strings.HasSuffix(output, "\n") {
			combined.WriteString("\n")
		}

		e.logger.Info().Str("tier", tier).Str("command", command).Int("exit_code", exitCode).Msg("verification command completed")

		if err != nil && cmdCtx.Err() == context.DeadlineExceeded {
			return Result{
				OK:                  false,
				FailedCommand:       command,
				ExitCode:            exitCode,
				CapturedOutput:      combined.String(),
				DurationS:           time.Since(start).Seconds(),
				TimeBudgetExhausted: true,
			}
		}

		if exitCode != 0 {
			return Result{
				OK:             false,
				FailedCommand:  command,
				ExitCode:       exitCode,
				CapturedOutput: combined.String(),
				DurationS:      time.Since(start).Seconds(),
			}
		}
	}

	return Result{OK: true, CapturedOutput: combined.String(), DurationS: time.Since(start).Seconds()}
}

// TruncateOutput enforces a maximum byte length on captured output before
// it is persisted as an artifact, per the receipts.max_output_bytes config
// key (spec.md §6).
func TruncateOutput(output string, maxBytes int) string {
	if maxBytes <= 0 || len(output) <= maxBytes {
		return output
	}
	return output[:maxBytes] + "\n...[truncated]"
}
