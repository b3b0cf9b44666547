// Package config holds the tunable parameters of the procurement pipeline.
// Deployment-dependent knobs (tolerance thresholds, penalty curves,
// dimension weights) live here with stated defaults rather than as
// constants buried in engine code.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/procurant/docpipe/internal/domain"
)

// Config is the root pipeline configuration.
type Config struct {
	Orchestrator   OrchestratorConfig   `json:"orchestrator" yaml:"orchestrator"`
	Aggregation    AggregationConfig    `json:"aggregation" yaml:"aggregation"`
	Reconciliation ReconciliationConfig `json:"reconciliation" yaml:"reconciliation"`
	Benchmark      BenchmarkConfig      `json:"benchmark" yaml:"benchmark"`
	Completion     CompletionConfig     `json:"completion" yaml:"completion"`

	// Agents optionally overrides the built-in roster. Empty means the
	// default roster is used.
	Agents []AgentConfig `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// AgentConfig declares one roster entry in a config file.
type AgentConfig struct {
	Name       string        `json:"name" yaml:"name"`
	Category   string        `json:"category" yaml:"category"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Priority   int           `json:"priority" yaml:"priority"`
}

// OrchestratorConfig bounds the concurrent fan-out and retry behavior.
type OrchestratorConfig struct {
	// MaxConcurrentAgents bounds how many agent tasks run at once.
	MaxConcurrentAgents int `json:"max_concurrent_agents" yaml:"max_concurrent_agents"`

	// GlobalTimeout bounds the whole batch. Once reached, in-flight
	// agents are cancelled and recorded as timed out regardless of
	// remaining retry budget.
	GlobalTimeout time.Duration `json:"global_timeout" yaml:"global_timeout"`

	Backoff BackoffConfig `json:"backoff" yaml:"backoff"`
}

// BackoffConfig controls the retry delay between agent attempts.
type BackoffConfig struct {
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"` // Starting delay
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval"`         // Delay ceiling
	Multiplier      float64       `json:"multiplier" yaml:"multiplier"`             // Per-attempt growth
	UseJitter       bool          `json:"use_jitter" yaml:"use_jitter"`             // Full jitter randomization
}

// AggregationConfig controls field merge behavior.
type AggregationConfig struct {
	// DisagreementPenalty is the per-extra-distinct-value confidence
	// discount applied when agents conflict on a field.
	DisagreementPenalty float64 `json:"disagreement_penalty" yaml:"disagreement_penalty"`

	// ConfidenceFloor is the minimum confidence a conflicted field keeps.
	ConfidenceFloor float64 `json:"confidence_floor" yaml:"confidence_floor"`
}

// ReconciliationConfig controls invoice matching tolerances.
type ReconciliationConfig struct {
	// MinorThreshold and MajorThreshold split price deviations into
	// minor (< minor), major (minor..major), and critical (> major)
	// bands, expressed as fractions of the expected amount.
	MinorThreshold float64 `json:"minor_threshold" yaml:"minor_threshold"`
	MajorThreshold float64 `json:"major_threshold" yaml:"major_threshold"`

	// LineItemTolerance is the acceptable fractional deviation when
	// pairing invoice lines with contract lines.
	LineItemTolerance float64 `json:"line_item_tolerance" yaml:"line_item_tolerance"`

	// SeverityPenalties discount the report confidence per discrepancy.
	MinorPenalty    float64 `json:"minor_penalty" yaml:"minor_penalty"`
	MajorPenalty    float64 `json:"major_penalty" yaml:"major_penalty"`
	CriticalPenalty float64 `json:"critical_penalty" yaml:"critical_penalty"`

	// UsabilityThreshold flags reports built from records whose overall
	// confidence is below it.
	UsabilityThreshold float64 `json:"usability_threshold" yaml:"usability_threshold"`
}

// BenchmarkConfig controls contract scoring.
type BenchmarkConfig struct {
	// DimensionWeights combine the four dimension scores into the
	// overall score. Missing entries fall back to equal weights.
	DimensionWeights map[domain.BenchmarkDimension]float64 `json:"dimension_weights" yaml:"dimension_weights"`

	// StrengthThreshold and WeaknessThreshold classify dimensions into
	// strengths (>= strength) and weaknesses (<= weakness).
	StrengthThreshold float64 `json:"strength_threshold" yaml:"strength_threshold"`
	WeaknessThreshold float64 `json:"weakness_threshold" yaml:"weakness_threshold"`

	// UsabilityThreshold marks reports low-confidence when the record's
	// overall confidence is below it.
	UsabilityThreshold float64 `json:"usability_threshold" yaml:"usability_threshold"`
}

// CompletionConfig configures the completion-service client.
type CompletionConfig struct {
	// Provider selects the default provider adapter.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the default model identifier sent to the provider.
	Model string `json:"model" yaml:"model"`

	// HTTPTimeout bounds a single provider HTTP exchange.
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout"`

	// Providers holds per-provider endpoints and credentials.
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`

	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
}

// ProviderConfig holds one provider's endpoint and authentication.
type ProviderConfig struct {
	Endpoint  string            `json:"endpoint" yaml:"endpoint"`
	APIKey    string            `json:"-" yaml:"-"` // Sensitive, not serialized
	APIKeyEnv string            `json:"api_key_env" yaml:"api_key_env"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// RateLimitConfig configures the local token-bucket limiter protecting the
// provider quota during fan-out.
type RateLimitConfig struct {
	Enabled         bool    `json:"enabled" yaml:"enabled"`
	TokensPerSecond float64 `json:"tokens_per_second" yaml:"tokens_per_second"`
	BurstSize       int     `json:"burst_size" yaml:"burst_size"`
}

// CacheConfig configures the optional Redis-backed completion cache.
type CacheConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	TTL           time.Duration `json:"ttl" yaml:"ttl"`
	RedisAddr     string        `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `json:"-" yaml:"-"` // Sensitive
	RedisDB       int           `json:"redis_db" yaml:"redis_db"`
}

// Load reads a YAML config file and fills unset values with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engines cannot run with.
func (c *Config) Validate() error {
	if c.Orchestrator.MaxConcurrentAgents <= 0 {
		return domain.NewConfigurationError("max_concurrent_agents must be > 0, got %d", c.Orchestrator.MaxConcurrentAgents)
	}
	if c.Orchestrator.Backoff.Multiplier < 1.0 {
		return domain.NewConfigurationError("backoff multiplier must be >= 1.0, got %v", c.Orchestrator.Backoff.Multiplier)
	}
	if c.Orchestrator.Backoff.MaxInterval < c.Orchestrator.Backoff.InitialInterval {
		return domain.NewConfigurationError("backoff max_interval %v below initial_interval %v",
			c.Orchestrator.Backoff.MaxInterval, c.Orchestrator.Backoff.InitialInterval)
	}
	if c.Aggregation.DisagreementPenalty < 0 || c.Aggregation.DisagreementPenalty > 1 {
		return domain.NewConfigurationError("disagreement_penalty must be in [0,1], got %v", c.Aggregation.DisagreementPenalty)
	}
	if c.Reconciliation.MajorThreshold <= c.Reconciliation.MinorThreshold {
		return domain.NewConfigurationError("major_threshold %v must exceed minor_threshold %v",
			c.Reconciliation.MajorThreshold, c.Reconciliation.MinorThreshold)
	}
	return nil
}
