package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ErrorType categorizes completion-service failures for retry
// classification by the orchestrator.
type ErrorType string

const (
	// ErrorTypeTimeout indicates a deadline was exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates the provider or local limiter
	// throttled the request (retryable with backoff).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates connectivity problems (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeUnavailable indicates the provider is down (retryable).
	ErrorTypeUnavailable ErrorType = "unavailable"

	// ErrorTypeValidation indicates malformed input (non-retryable).
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeContent indicates the provider refused the content
	// (non-retryable).
	ErrorTypeContent ErrorType = "content_filtered"

	// ErrorTypeAuth indicates bad credentials (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeUnknown indicates an unclassified failure (non-retryable;
	// conservative default avoids retry loops).
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common completion client errors.
var (
	// ErrUnknownProvider indicates no adapter is configured for the
	// requested provider.
	ErrUnknownProvider = errors.New("unknown completion provider")

	// ErrEmptyDocument indicates a request with no document text.
	ErrEmptyDocument = errors.New("empty document text")

	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("empty completion response")
)

// ServiceError captures a structured completion-service failure with
// enough context for the orchestrator's retry decision.
type ServiceError struct {
	Provider   string    `json:"provider"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code"`
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after"` // Seconds, from Retry-After header
}

// Error returns the formatted provider failure with status context.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is transient.
func (e *ServiceError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeUnavailable:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns provider-specified backoff guidance, zero when
// none was given.
func (e *ServiceError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// RateLimitError carries throttle context from the local limiter.
type RateLimitError struct {
	Provider   string `json:"provider"`
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after"` // Seconds to wait before retry
}

// Error returns the formatted rate limit failure with retry guidance.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// GetRetryAfter returns the limiter's suggested wait.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// IsRetryable determines whether an error from the completion client
// warrants another attempt. Conservative default: unknown errors are not
// retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.IsRetryable()
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return isNetworkError(err)
}

// RetryAfter extracts provider backoff guidance from an error chain,
// zero when none is present.
func RetryAfter(err error) time.Duration {
	type afterProvider interface {
		GetRetryAfter() time.Duration
	}
	var p afterProvider
	if errors.As(err, &p) {
		return p.GetRetryAfter()
	}
	return 0
}

// classifyErrorType maps an HTTP status to an error type.
func classifyErrorType(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case statusCode >= 500:
		return ErrorTypeUnavailable
	default:
		return ErrorTypeUnknown
	}
}

// isNetworkError detects connectivity failures through type assertions
// rather than string matching where possible.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return netErr.Timeout()
		}
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
