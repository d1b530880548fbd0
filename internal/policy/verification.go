// Package policy implements the Verification Policy: deterministic tier
// selection for a given milestone and change set (spec.md §4.6).
package policy

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/weldr-dev/runr/internal/domain"
)

// SelectTiers decides which verification tiers run for this milestone
// (spec.md §4.6):
//   - tier0 always runs.
//   - tier1 runs if any changed file matches a risk trigger, the milestone
//     is high risk, or this is the last milestone.
//   - tier2 runs only on the last milestone.
//
// Risk triggers configured for tier2 are normalized to tier1 at selection
// (spec.md §4.6), since tier2's own gating is "last milestone only".
func SelectTiers(milestone domain.Milestone, changedFiles []string, riskTriggers []string, isLastMilestone bool) domain.TierReasons {
	reasons := domain.TierReasons{
		Tier0: []string{"always runs"},
	}

	tier1 := false
	if trigger, ok := matchingTrigger(changedFiles, riskTriggers); ok {
		reasons.Tier1 = append(reasons.Tier1, "changed file matches risk trigger: "+trigger)
		tier1 = true
	}
	if milestone.RiskLevel == domain.RiskHigh {
		reasons.Tier1 = append(reasons.Tier1, "milestone risk_level=high")
		tier1 = true
	}
	if isLastMilestone {
		reasons.Tier1 = append(reasons.Tier1, "last milestone")
		reasons.Tier2 = append(reasons.Tier2, "last milestone")
		tier1 = true
	}
	if !tier1 {
		reasons.Tier1 = nil
	}

	return reasons
}

func matchingTrigger(changedFiles []string, triggers []string) (string, bool) {
	for _, trigger := range triggers {
		for _, f := range changedFiles {
			if ok, err := doublestar.Match(trigger, f); err == nil && ok {
				return trigger, true
			}
		}
	}
	return "", false
}
