package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = map[string]WorkerEntry{"claude": {Bin: "claude", Output: "text"}}
	cfg.Phases = PhasesConfig{Plan: "claude", Implement: "claude", Review: "claude"}

	require.NoError(t, Validate(cfg))
	assert.Equal(t, "trunk", cfg.Workflow.Mode)
	assert.True(t, cfg.Resilience.AutoResume)
}
