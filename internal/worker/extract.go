package worker

import (
	"strings"

	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/errors"
)

// ExtractJSON pulls the single JSON block delimited by BEGIN_JSON/END_JSON
// out of a concatenated text body (spec.md §4.4). Whitespace outside the
// block is ignored. Returns ErrWorkerParseFailed if the markers are absent,
// malformed, or out of order.
func ExtractJSON(body string) (string, error) {
	start := strings.Index(body, constants.BeginJSONMarker)
	if start == -1 {
		return "", errors.Wrap(errors.ErrWorkerParseFailed, "missing BEGIN_JSON marker")
	}
	start += len(constants.BeginJSONMarker)

	end := strings.Index(body[start:], constants.EndJSONMarker)
	if end == -1 {
		return "", errors.Wrap(errors.ErrWorkerParseFailed, "missing END_JSON marker")
	}

	block := strings.TrimSpace(body[start : start+end])
	if block == "" {
		return "", errors.Wrap(errors.ErrWorkerParseFailed, "empty JSON block")
	}
	return block, nil
}

// ConcatenateJSONL concatenates the assistant-emitted text segments from a
// line-delimited JSON stream, the "jsonl" output format (spec.md §4.4). Each
// line is decoded independently; lines that aren't JSON objects or don't
// carry a recognized text field are skipped rather than failing the whole
// stream, since worker JSONL streams interleave tool/event records with
// text.
func ConcatenateJSONL(lines []map[string]any) string {
	var b strings.Builder
	for _, line := range lines {
		if text, ok := textField(line); ok {
			b.WriteString(text)
		}
	}
	return b.String()
}

// textField looks for the handful of field names worker CLIs commonly use
// to carry assistant text within a streamed event record.
func textField(line map[string]any) (string, bool) {
	for _, key := range []string{"text", "content", "message", "delta"} {
		if v, ok := line[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// RetryAddendum is appended to the prompt on the single strict-output retry
// after a failed parse (spec.md §4.4).
const RetryAddendum = "\n\nYour previous response did not contain a valid JSON block between BEGIN_JSON and END_JSON markers. Respond again with ONLY the required JSON object wrapped exactly between a BEGIN_JSON line and an END_JSON line, with no other text inside the block."
