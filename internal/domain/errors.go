package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch indicates aggregation was asked to merge an empty batch.
var ErrEmptyBatch = errors.New("empty agent result batch")

// ErrNoUsableResults indicates every agent in a batch failed or timed out.
var ErrNoUsableResults = errors.New("no usable agent results")

// ConfigurationError indicates an invalid registry or pipeline setup.
// Fatal: surfaced at startup and never retried.
type ConfigurationError struct {
	Reason string
	Cause  error
}

// Error returns the formatted configuration failure.
func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *ConfigurationError) Unwrap() error { return e.Cause }

// NewConfigurationError creates a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// AgentTransientError marks a recoverable per-agent fault, typically a
// completion-service rate limit or availability blip. The orchestrator
// retries it within the agent's retry budget.
type AgentTransientError struct {
	Agent string
	Cause error
}

// Error returns the formatted transient failure.
func (e *AgentTransientError) Error() string {
	return fmt.Sprintf("agent %s transient failure: %v", e.Agent, e.Cause)
}

// Unwrap returns the underlying error.
func (e *AgentTransientError) Unwrap() error { return e.Cause }

// AgentFatalError marks an unrecoverable per-agent fault such as malformed
// input specific to that agent. It is recorded as a failed result without
// consuming remaining retries and never aborts the batch.
type AgentFatalError struct {
	Agent string
	Cause error
}

// Error returns the formatted fatal failure.
func (e *AgentFatalError) Error() string {
	return fmt.Sprintf("agent %s fatal failure: %v", e.Agent, e.Cause)
}

// Unwrap returns the underlying error.
func (e *AgentFatalError) Unwrap() error { return e.Cause }

// AggregationError indicates a batch carried no usable signal at all:
// either it was empty or every agent failed. Surfaced to the caller as
// "document unanalyzable". Partial batches never raise it.
type AggregationError struct {
	RunID string
	Cause error
}

// Error returns the formatted aggregation failure.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed for run %s: %v", e.RunID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *AggregationError) Unwrap() error { return e.Cause }
