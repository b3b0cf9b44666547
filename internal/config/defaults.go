package config

import (
	"time"

	"github.com/procurant/docpipe/internal/domain"
)

// Default tuning values. Every engine reads these through Config, never
// directly, so deployments can override any of them.
const (
	DefaultMaxConcurrentAgents = 8
	DefaultGlobalTimeout       = 2 * time.Minute

	DefaultAgentTimeout    = 20 * time.Second
	DefaultAgentMaxRetries = 2

	DefaultBackoffInitial    = 250 * time.Millisecond
	DefaultBackoffMax        = 5 * time.Second
	DefaultBackoffMultiplier = 2.0

	DefaultDisagreementPenalty = 0.15
	DefaultConfidenceFloor     = 0.05

	DefaultMinorThreshold     = 0.05
	DefaultMajorThreshold     = 0.20
	DefaultLineItemTolerance  = 0.02
	DefaultMinorPenalty       = 0.02
	DefaultMajorPenalty       = 0.05
	DefaultCriticalPenalty    = 0.15
	DefaultUsabilityThreshold = 0.5

	DefaultStrengthThreshold = 8.0
	DefaultWeaknessThreshold = 5.0

	DefaultHTTPTimeout     = 30 * time.Second
	DefaultTokensPerSecond = 5.0
	DefaultBurstSize       = 10
	DefaultCacheTTL        = time.Hour
)

// Default returns a Config populated with the stated defaults. Jitter is
// disabled by default so retry timing stays deterministic under test; the
// worker entrypoint turns it on.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxConcurrentAgents: DefaultMaxConcurrentAgents,
			GlobalTimeout:       DefaultGlobalTimeout,
			Backoff: BackoffConfig{
				InitialInterval: DefaultBackoffInitial,
				MaxInterval:     DefaultBackoffMax,
				Multiplier:      DefaultBackoffMultiplier,
				UseJitter:       false,
			},
		},
		Aggregation: AggregationConfig{
			DisagreementPenalty: DefaultDisagreementPenalty,
			ConfidenceFloor:     DefaultConfidenceFloor,
		},
		Reconciliation: ReconciliationConfig{
			MinorThreshold:     DefaultMinorThreshold,
			MajorThreshold:     DefaultMajorThreshold,
			LineItemTolerance:  DefaultLineItemTolerance,
			MinorPenalty:       DefaultMinorPenalty,
			MajorPenalty:       DefaultMajorPenalty,
			CriticalPenalty:    DefaultCriticalPenalty,
			UsabilityThreshold: DefaultUsabilityThreshold,
		},
		Benchmark: BenchmarkConfig{
			DimensionWeights:   domain.DefaultDimensionWeights(),
			StrengthThreshold:  DefaultStrengthThreshold,
			WeaknessThreshold:  DefaultWeaknessThreshold,
			UsabilityThreshold: DefaultUsabilityThreshold,
		},
		Completion: CompletionConfig{
			Provider:    "heuristic",
			Model:       "heuristic-v1",
			HTTPTimeout: DefaultHTTPTimeout,
			Providers:   map[string]ProviderConfig{},
			RateLimit: RateLimitConfig{
				Enabled:         true,
				TokensPerSecond: DefaultTokensPerSecond,
				BurstSize:       DefaultBurstSize,
			},
			Cache: CacheConfig{
				Enabled: false,
				TTL:     DefaultCacheTTL,
			},
		},
	}
}
