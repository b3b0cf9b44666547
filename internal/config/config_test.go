package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurant/docpipe/internal/domain"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultMaxConcurrentAgents, cfg.Orchestrator.MaxConcurrentAgents)
	assert.Equal(t, "heuristic", cfg.Completion.Provider)
	assert.False(t, cfg.Orchestrator.Backoff.UseJitter, "deterministic by default")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
orchestrator:
  max_concurrent_agents: 16
  global_timeout: 5m
aggregation:
  disagreement_penalty: 0.2
completion:
  provider: openai
  model: gpt-4o-mini
  providers:
    openai:
      api_key_env: OPENAI_API_KEY
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Orchestrator.MaxConcurrentAgents)
	assert.Equal(t, 5*time.Minute, cfg.Orchestrator.GlobalTimeout)
	assert.Equal(t, 0.2, cfg.Aggregation.DisagreementPenalty)
	assert.Equal(t, "openai", cfg.Completion.Provider)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Completion.Providers["openai"].APIKeyEnv)

	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultMinorThreshold, cfg.Reconciliation.MinorThreshold)
	assert.Equal(t, DefaultBackoffInitial, cfg.Orchestrator.Backoff.InitialInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadTuning(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{
			name:   "zero concurrency",
			modify: func(c *Config) { c.Orchestrator.MaxConcurrentAgents = 0 },
		},
		{
			name:   "shrinking backoff",
			modify: func(c *Config) { c.Orchestrator.Backoff.Multiplier = 0.5 },
		},
		{
			name: "max below initial",
			modify: func(c *Config) {
				c.Orchestrator.Backoff.InitialInterval = time.Second
				c.Orchestrator.Backoff.MaxInterval = time.Millisecond
			},
		},
		{
			name:   "penalty above one",
			modify: func(c *Config) { c.Aggregation.DisagreementPenalty = 1.5 },
		},
		{
			name: "inverted reconciliation thresholds",
			modify: func(c *Config) {
				c.Reconciliation.MinorThreshold = 0.3
				c.Reconciliation.MajorThreshold = 0.1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
