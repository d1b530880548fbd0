package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weldr-dev/runr/internal/domain"
)

func TestSelectTiers(t *testing.T) {
	t.Run("tier0 always runs, tier1/tier2 skipped by default", func(t *testing.T) {
		m := domain.Milestone{Goal: "add helper", RiskLevel: domain.RiskLow}
		reasons := SelectTiers(m, []string{"internal/foo/helper.go"}, []string{"**/migrations/**"}, false)
		assert.Equal(t, []string{"always runs"}, reasons.Tier0)
		assert.Empty(t, reasons.Tier1)
		assert.Empty(t, reasons.Tier2)
	})

	t.Run("tier1 runs when a changed file matches a risk trigger", func(t *testing.T) {
		m := domain.Milestone{Goal: "add migration", RiskLevel: domain.RiskLow}
		reasons := SelectTiers(m, []string{"db/migrations/0001_init.sql"}, []string{"db/migrations/**"}, false)
		assert.Contains(t, reasons.Tier1[0], "risk trigger")
		assert.Empty(t, reasons.Tier2)
	})

	t.Run("tier1 runs for high risk milestones", func(t *testing.T) {
		m := domain.Milestone{Goal: "rework auth", RiskLevel: domain.RiskHigh}
		reasons := SelectTiers(m, nil, nil, false)
		assert.Contains(t, reasons.Tier1, "milestone risk_level=high")
	})

	t.Run("tier1 and tier2 both run on the last milestone", func(t *testing.T) {
		m := domain.Milestone{Goal: "finish up", RiskLevel: domain.RiskLow}
		reasons := SelectTiers(m, nil, nil, true)
		assert.Contains(t, reasons.Tier1, "last milestone")
		assert.Contains(t, reasons.Tier2, "last milestone")
	})
}
