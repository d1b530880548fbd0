// Package worker implements the Worker Adapter: it invokes an external
// worker process and parses its output into the phase-specific JSON
// schemas (spec.md §4.4).
package worker

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/weldr-dev/runr/internal/errors"
)

// ErrorClass enumerates the worker process error taxonomy (spec.md §4.4).
type ErrorClass string

// Known error classes.
const (
	ErrClassAuth      ErrorClass = "auth"
	ErrClassNetwork   ErrorClass = "network"
	ErrClassRateLimit ErrorClass = "rate_limit"
	ErrClassTimeout   ErrorClass = "timeout"
	ErrClassUnknown   ErrorClass = "unknown"
)

// Classify maps a worker invocation error (and its captured stderr) into
// the error taxonomy (spec.md §4.4). Matching is string-based against the
// worker's reported output, following the same CLI-agnostic heuristics the
// teacher's AI runners use to recognize provider error shapes.
func Classify(ctx context.Context, err error, stderr string) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, errors.ErrWorkerCallTimeout) {
		return ErrClassTimeout
	}

	text := strings.ToLower(err.Error() + " " + stderr)

	switch {
	case containsAny(text, "authentication", "api key", "unauthorized", "401"):
		return ErrClassAuth
	case containsAny(text, "rate limit", "429", "too many requests"):
		return ErrClassRateLimit
	case containsAny(text, "timeout", "deadline exceeded", "context deadline"):
		return ErrClassTimeout
	case containsAny(text, "connection refused", "network", "dns", "no such host", "eof", "broken pipe"):
		return ErrClassNetwork
	default:
		return ErrClassUnknown
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
