package completion

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/procurant/docpipe/internal/config"
)

// ProviderHeuristic names the offline extraction backend.
const ProviderHeuristic = "heuristic"

// Client is the completion-service interface the agents depend on.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Option customizes client construction.
type Option func(*clientOptions)

type clientOptions struct {
	core   Handler
	logger *slog.Logger
	redis  *redis.Client
}

// WithCoreHandler replaces the HTTP transport at the bottom of the chain.
// Tests use this to inject scripted backends.
func WithCoreHandler(h Handler) Option {
	return func(o *clientOptions) { o.core = h }
}

// WithLogger sets the logger used by the observability middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithRedis supplies the Redis connection backing the completion cache.
// Required when cfg.Cache.Enabled is set and no core handler override is
// given.
func WithRedis(client *redis.Client) Option {
	return func(o *clientOptions) { o.redis = client }
}

type client struct {
	handler     Handler
	provider    string
	model       string
	httpTimeout time.Duration
}

// NewClient assembles the middleware chain around the configured
// transport. Chain order, outermost first: logging, rate limiting, cache,
// then the provider exchange. No retry layer; the orchestrator owns retry
// budgets.
func NewClient(cfg config.CompletionConfig, opts ...Option) (Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	core := o.core
	if core == nil {
		var err error
		core, err = defaultCore(cfg)
		if err != nil {
			return nil, err
		}
	}

	var middlewares []Middleware
	middlewares = append(middlewares, NewLoggingMiddleware(o.logger))
	if cfg.RateLimit.Enabled {
		middlewares = append(middlewares, NewRateLimitMiddleware(cfg.RateLimit))
	}
	if cfg.Cache.Enabled && o.redis != nil {
		middlewares = append(middlewares, NewCacheMiddleware(o.redis, cfg.Cache, o.logger))
	}

	return &client{
		handler:     Chain(core, middlewares...),
		provider:    cfg.Provider,
		model:       cfg.Model,
		httpTimeout: cfg.HTTPTimeout,
	}, nil
}

// defaultCore builds the transport the config names: the offline
// heuristic backend or the provider HTTP handler.
func defaultCore(cfg config.CompletionConfig) (Handler, error) {
	if cfg.Provider == ProviderHeuristic {
		return NewHeuristicHandler(), nil
	}

	router, err := NewRouter(resolveKeys(cfg.Providers))
	if err != nil {
		return nil, err
	}
	return NewHTTPHandler(&http.Client{Timeout: cfg.HTTPTimeout}, router), nil
}

// resolveKeys fills APIKey from the named environment variable so
// credentials never sit in config files.
func resolveKeys(providers map[string]config.ProviderConfig) map[string]config.ProviderConfig {
	resolved := make(map[string]config.ProviderConfig, len(providers))
	for name, pc := range providers {
		if pc.APIKey == "" && pc.APIKeyEnv != "" {
			pc.APIKey = os.Getenv(pc.APIKeyEnv)
		}
		resolved[name] = pc
	}
	return resolved
}

// Complete fills request defaults and runs the chain.
func (c *client) Complete(ctx context.Context, req *Request) (*Response, error) {
	if req.Provider == "" {
		req.Provider = c.provider
	}
	if req.Model == "" {
		req.Model = c.model
	}
	if req.Timeout == 0 {
		req.Timeout = c.httpTimeout
	}
	return c.handler.Handle(ctx, req)
}
