package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weldr-dev/runr/internal/config"
	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/metrics"
)

// CommandExecutor abstracts subprocess execution so tests can inject a
// fake worker binary without spawning a real process (spec.md §4.4),
// following the teacher's CommandExecutor/DefaultExecutor split
// (internal/ai/claude.go).
type CommandExecutor interface {
	Execute(ctx context.Context, cmd *exec.Cmd) (stdout, stderr []byte, err error)
}

// DefaultExecutor runs the worker subprocess using os/exec.
type DefaultExecutor struct{}

// Execute implements CommandExecutor.
func (DefaultExecutor) Execute(_ context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Result is the outcome of Invoke (spec.md §4.4 contract).
type Result struct {
	TextBody   string
	ParsedJSON string // the raw JSON block, if extraction+validation succeeded
	ParseError error  // set when both the initial attempt and the retry failed to parse
}

// Adapter invokes worker processes and parses their output against a
// phase's JSON schema (spec.md §4.4).
type Adapter struct {
	executor CommandExecutor
	recorder metrics.Recorder
	logger   zerolog.Logger
}

// New constructs a worker Adapter. A nil executor defaults to
// DefaultExecutor, a nil recorder defaults to metrics.NoopRecorder{}.
func New(executor CommandExecutor, recorder metrics.Recorder, logger zerolog.Logger) *Adapter {
	if executor == nil {
		executor = DefaultExecutor{}
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Adapter{executor: executor, recorder: recorder, logger: logger}
}

// Validator validates an extracted JSON block against a phase schema,
// returning a decode error if it does not conform.
type Validator func(jsonBlock []byte) error

// Invoke spawns the configured worker, feeds it promptText on stdin, and
// extracts+validates the JSON block from its output (spec.md §4.4). On a
// validation failure it retries exactly once with RetryAddendum appended to
// the prompt; a second failure is reported as result.ParseError.
func (a *Adapter) Invoke(ctx context.Context, workerName string, w config.WorkerEntry, phase, promptText, repoPath string, validate Validator) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, constants.DefaultWorkerCallTimeout)
	defer cancel()

	start := time.Now()
	res, err := a.attempt(callCtx, w, repoPath, promptText, validate)
	outcome := "ok"
	if err != nil {
		outcome = string(Classify(callCtx, err, ""))
		a.recorder.WorkerInvoked(workerName, phase, outcome, time.Since(start))
		return Result{}, err
	}
	if res.ParseError != nil {
		a.logger.Warn().Str("worker", workerName).Str("phase", phase).Msg("worker output failed to parse, retrying with strict-output addendum")
		res, err = a.attempt(callCtx, w, repoPath, promptText+RetryAddendum, validate)
		if err != nil {
			a.recorder.WorkerInvoked(workerName, phase, string(Classify(callCtx, err, "")), time.Since(start))
			return Result{}, err
		}
		if res.ParseError != nil {
			outcome = "parse_failed"
		}
	}

	a.recorder.WorkerInvoked(workerName, phase, outcome, time.Since(start))
	return res, nil
}

func (a *Adapter) attempt(ctx context.Context, w config.WorkerEntry, repoPath, promptText string, validate Validator) (Result, error) {
	cmd := exec.CommandContext(ctx, w.Bin, w.Args...) //#nosec G204 -- worker binary/args come from trusted project config
	cmd.Dir = repoPath
	cmd.Stdin = strings.NewReader(promptText)

	stdout, stderr, err := a.executor.Execute(ctx, cmd)
	if err != nil {
		return Result{}, errors.Wrap(err, "invoke worker: "+strings.TrimSpace(string(stderr)))
	}

	body, err := a.decodeBody(w, stdout)
	if err != nil {
		return Result{}, err
	}

	block, err := ExtractJSON(body)
	if err != nil {
		return Result{TextBody: body, ParseError: err}, nil
	}
	if validate != nil {
		if verr := validate([]byte(block)); verr != nil {
			return Result{TextBody: body, ParseError: errors.Wrap(errors.ErrWorkerParseFailed, verr.Error())}, nil
		}
	}
	return Result{TextBody: body, ParsedJSON: block}, nil
}

// decodeBody turns raw stdout into the concatenated text body, per the
// worker's configured output format (spec.md §4.4).
func (a *Adapter) decodeBody(w config.WorkerEntry, stdout []byte) (string, error) {
	switch w.Output {
	case "text", "":
		return string(stdout), nil
	case "json":
		var obj map[string]any
		if err := json.Unmarshal(stdout, &obj); err != nil {
			return "", errors.Wrap(errors.ErrWorkerParseFailed, "worker output is not valid JSON: "+err.Error())
		}
		if text, ok := textField(obj); ok {
			return text, nil
		}
		return string(stdout), nil
	case "jsonl":
		var lines []map[string]any
		scanner := bufio.NewScanner(bytes.NewReader(stdout))
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var obj map[string]any
			if err := json.Unmarshal(line, &obj); err != nil {
				continue
			}
			lines = append(lines, obj)
		}
		return ConcatenateJSONL(lines), nil
	default:
		return "", errors.Wrapf(errors.ErrConfigInvalidWorker, "unknown output format %q", w.Output)
	}
}
