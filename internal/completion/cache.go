package completion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/procurant/docpipe/internal/config"
)

// cacheKeyPrefix namespaces completion cache entries in Redis.
const cacheKeyPrefix = "docpipe:completion:"

// NewCacheMiddleware returns middleware that caches successful completions
// in Redis, keyed by a content hash of the request. Identical extraction
// prompts over identical documents are frequent during reprocessing, so
// hits skip the provider entirely.
//
// The cache degrades gracefully: Redis failures are logged and the request
// proceeds to the provider. Only successful responses are stored, and
// never partial or error results.
func NewCacheMiddleware(client *redis.Client, cfg config.CacheConfig, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "completion_cache")

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			key := cacheKey(req)

			if resp, ok := lookup(ctx, client, key, logger); ok {
				resp.CacheHit = true
				return resp, nil
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}

			store(ctx, client, key, resp, cfg.TTL, logger)
			return resp, nil
		})
	}
}

// cacheKey derives a deterministic key from everything that shapes the
// completion output.
func cacheKey(req *Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%g|", req.Provider, req.Model, req.MaxTokens, req.Temperature)
	h.Write([]byte(req.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(req.DocumentText))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func lookup(ctx context.Context, client *redis.Client, key string, logger *slog.Logger) (*Response, bool) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.WarnContext(ctx, "cache lookup failed, proceeding to provider",
				"error", err)
		}
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		logger.WarnContext(ctx, "cache entry corrupt, proceeding to provider",
			"error", err)
		return nil, false
	}
	return &resp, true
}

func store(ctx context.Context, client *redis.Client, key string, resp *Response, ttl time.Duration, logger *slog.Logger) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.WarnContext(ctx, "cache marshal failed", "error", err)
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.WarnContext(ctx, "cache store failed", "error", err)
	}
}
