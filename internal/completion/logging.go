package completion

import (
	"context"
	"log/slog"
	"time"
)

// NewLoggingMiddleware returns middleware that logs each completion
// exchange with trace correlation, token usage, and latency. Placed
// outermost in the chain so it observes cache hits and limiter rejections
// too.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "completion")

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				logger.WarnContext(ctx, "completion failed",
					"trace_id", req.TraceID,
					"provider", req.Provider,
					"model", req.Model,
					"elapsed_ms", elapsed.Milliseconds(),
					"retryable", IsRetryable(err),
					"error", err)
				return nil, err
			}

			logger.DebugContext(ctx, "completion succeeded",
				"trace_id", req.TraceID,
				"provider", req.Provider,
				"model", req.Model,
				"elapsed_ms", elapsed.Milliseconds(),
				"total_tokens", resp.Usage.TotalTokens,
				"cache_hit", resp.CacheHit)
			return resp, nil
		})
	}
}
