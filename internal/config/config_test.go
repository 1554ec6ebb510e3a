package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultIsValid(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Agent.MaxCycles)
	assert.Equal(t, 3, cfg.Agent.SlowLoopInterval)
	assert.Equal(t, 10, cfg.Agent.PlanningMemories)
	assert.Equal(t, 7, cfg.Agent.ActionMemories)
	assert.True(t, cfg.Browser.Headless)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max cycles", func(c *Config) { c.Agent.MaxCycles = 0 }},
		{"negative slow loop interval", func(c *Config) { c.Agent.SlowLoopInterval = -1 }},
		{"zero embedding dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "oracle" }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "oracle" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefault()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
