package phase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/weldr-dev/runr/internal/domain"
)

// ReviewFingerprint computes a stable hash over a reviewer's decision and
// checks, used by the REVIEW phase handler for loop detection (spec.md §4.7,
// §4.8: "compute the response fingerprint; if equal to the immediately
// previous review fingerprint, stop review_loop_detected"). It deliberately
// excludes Feedback (free-text prose that can vary between otherwise
// identical reviews) so two reviews raising the same checks fingerprint the
// same even if the reviewer's wording differs.
//
// Grounded in the teacher's hook.hashFile (internal/hook/snapshot.go):
// SHA256 truncated to a short hex prefix, not a full integrity digest.
func ReviewFingerprint(out domain.ReviewerOutput) string {
	payload := struct {
		Decision domain.ReviewDecision `json:"decision"`
		Checks   []domain.ReviewCheck  `json:"checks,omitempty"`
	}{
		Decision: out.Decision,
		Checks:   out.Checks,
	}
	// json.Marshal never fails on this payload shape; a zero value is fine
	// if it somehow did.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// ReviewLoopDetected reports whether out fingerprints identically to the
// run's immediately previous review, per the REVIEW phase loop-detection
// rule (spec.md §4.7).
func ReviewLoopDetected(state *domain.RunState, out domain.ReviewerOutput) bool {
	if state.LastReview == nil {
		return false
	}
	return state.LastReview.Fingerprint == ReviewFingerprint(out)
}

// RecordReview stores out as the run's last review outcome, stamping
// Fingerprint via ReviewFingerprint before persisting (spec.md §4.8 REVIEW:
// "record {decision, fingerprint} as last_review").
func RecordReview(state *domain.RunState, out domain.ReviewerOutput) {
	state.LastReview = &domain.ReviewRecord{
		Decision:    string(out.Decision),
		Fingerprint: ReviewFingerprint(out),
	}
}
