package supervisor

import (
	"encoding/json"
	"fmt"

	"github.com/weldr-dev/runr/internal/domain"
)

// validatePlannerOutput unmarshals and structurally checks a planner's JSON
// block (spec.md §4.4 planner schema), returning the decoded output.
func validatePlannerOutput(block []byte) (domain.PlannerOutput, error) {
	var out domain.PlannerOutput
	if err := json.Unmarshal(block, &out); err != nil {
		return out, err
	}
	if len(out.Milestones) == 0 {
		return out, fmt.Errorf("milestones must not be empty")
	}
	for i, m := range out.Milestones {
		if err := m.Validate(); err != nil {
			return out, fmt.Errorf("milestone %d: %w", i, err)
		}
	}
	return out, nil
}

// validateImplementerOutput unmarshals and structurally checks an
// implementer's JSON block (spec.md §4.4 implementer schema).
func validateImplementerOutput(block []byte) (domain.ImplementerOutput, error) {
	var out domain.ImplementerOutput
	if err := json.Unmarshal(block, &out); err != nil {
		return out, err
	}
	switch out.Status {
	case domain.ImplementComplete, domain.ImplementBlocked:
	default:
		return out, fmt.Errorf("status must be %q or %q, got %q", domain.ImplementComplete, domain.ImplementBlocked, out.Status)
	}
	return out, nil
}

// validateReviewerOutput unmarshals and structurally checks a reviewer's
// JSON block (spec.md §4.4 reviewer schema).
func validateReviewerOutput(block []byte) (domain.ReviewerOutput, error) {
	var out domain.ReviewerOutput
	if err := json.Unmarshal(block, &out); err != nil {
		return out, err
	}
	switch out.Decision {
	case domain.ReviewApprove, domain.ReviewRequestChanges, domain.ReviewReject:
	default:
		return out, fmt.Errorf("decision must be one of approve|request_changes|reject, got %q", out.Decision)
	}
	return out, nil
}
