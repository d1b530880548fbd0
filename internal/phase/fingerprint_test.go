package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weldr-dev/runr/internal/domain"
)

func TestReviewFingerprintStableAndSensitive(t *testing.T) {
	a := domain.ReviewerOutput{
		Decision: domain.ReviewRequestChanges,
		Feedback: "please add a test",
		Checks: []domain.ReviewCheck{
			{Type: "command", Command: "go test ./...", Requirement: "passes", Current: "fails"},
		},
	}
	b := a
	b.Feedback = "different wording, same checks"

	fpA := ReviewFingerprint(a)
	fpB := ReviewFingerprint(b)
	require.NotEmpty(t, fpA)
	assert.Equal(t, fpA, fpB, "feedback text must not affect the fingerprint")

	c := a
	c.Checks = []domain.ReviewCheck{
		{Type: "command", Command: "go vet ./...", Requirement: "passes", Current: "fails"},
	}
	assert.NotEqual(t, fpA, ReviewFingerprint(c), "different checks must fingerprint differently")
}

func TestReviewLoopDetected(t *testing.T) {
	out := domain.ReviewerOutput{Decision: domain.ReviewRequestChanges}

	t.Run("false when no prior review", func(t *testing.T) {
		st := &domain.RunState{}
		assert.False(t, ReviewLoopDetected(st, out))
	})

	t.Run("true when fingerprint matches the previous review", func(t *testing.T) {
		st := &domain.RunState{}
		RecordReview(st, out)
		assert.True(t, ReviewLoopDetected(st, out))
	})

	t.Run("false when the new review differs", func(t *testing.T) {
		st := &domain.RunState{}
		RecordReview(st, out)
		other := domain.ReviewerOutput{
			Decision: domain.ReviewRequestChanges,
			Checks:   []domain.ReviewCheck{{Type: "command", Command: "go build ./..."}},
		}
		assert.False(t, ReviewLoopDetected(st, other))
	})
}

func TestRecordReview(t *testing.T) {
	st := &domain.RunState{}
	out := domain.ReviewerOutput{Decision: domain.ReviewApprove}
	RecordReview(st, out)

	require.NotNil(t, st.LastReview)
	assert.Equal(t, "approve", st.LastReview.Decision)
	assert.Equal(t, ReviewFingerprint(out), st.LastReview.Fingerprint)
}
