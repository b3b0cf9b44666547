// Package completion provides the client for the generative-AI completion
// service, the only network boundary in the pipeline. It normalizes
// provider-specific HTTP APIs behind a single Handler abstraction and
// layers rate limiting, caching, and observability as composable
// middleware.
//
// The client deliberately carries no retry logic: retry ownership sits
// with the orchestrator, which accounts attempts against each agent's
// retry budget. The transport classifies errors as retryable or not and
// returns immediately.
package completion

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Request is a normalized completion call: an instruction prompt applied
// to a document's text.
type Request struct {
	// Provider and Model route the request; empty values fall back to
	// the client defaults.
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Prompt is the agent's instruction, including the expected output
	// schema.
	Prompt string `json:"prompt"`

	// DocumentText is the already-parsed document body.
	DocumentText string `json:"document_text"`

	// MaxTokens and Temperature tune the completion. Extraction runs at
	// low temperature for stable output.
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`

	// Timeout bounds this exchange; zero inherits the caller's context.
	Timeout time.Duration `json:"timeout"`

	// TraceID correlates log lines across the middleware chain.
	TraceID string `json:"trace_id"`
}

// Usage carries token accounting and latency for one exchange.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}

// Response is the normalized completion output.
type Response struct {
	// Content is the raw text returned by the model, typically JSON the
	// requesting agent parses.
	Content string `json:"content"`

	Usage Usage `json:"usage"`

	// ProviderRequestIDs carries provider-side request identifiers for
	// support escalation.
	ProviderRequestIDs []string `json:"provider_request_ids,omitempty"`

	// CacheHit marks responses served from the completion cache.
	CacheHit bool `json:"cache_hit,omitempty"`
}

// Handler processes completion requests. Middleware and the core transport
// both implement it.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided, first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewHTTPHandler creates the core handler that performs provider HTTP
// exchanges through the given router.
func NewHTTPHandler(client *http.Client, router Router) Handler {
	return &httpHandler{client: client, router: router}
}

type httpHandler struct {
	client *http.Client
	router Router
}

// Handle builds, sends, and parses one provider exchange. The per-request
// timeout, when set, is layered onto the caller's context so the agent's
// attempt deadline still wins when shorter.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	adapter, err := h.router.Pick(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("select provider: %w", err)
	}

	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp, err := adapter.Parse(httpResp)
	if err != nil {
		return nil, err
	}
	resp.Usage.LatencyMs = time.Since(start).Milliseconds()

	return resp, nil
}
