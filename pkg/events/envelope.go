// Package events provides the event infrastructure for pipeline
// observability. Activities wrap run milestones (analysis finished, record
// aggregated, invoice reconciled, contract benchmarked) in an Envelope and
// hand it to an EventSink; downstream projections consume from there.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Envelope wraps a pipeline event with the metadata consumers need for
// routing, deduplication, and correlation.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing.
	// Examples: "analysis.batch_completed", "aggregation.record_built".
	Type string `json:"type"`

	// Source names the activity that emitted the event.
	Source string `json:"source"`

	// Version enables payload schema evolution.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey makes replayed emissions detectable. Derived from the
	// workflow execution and event content, not from wall time.
	IdempotencyKey string `json:"idempotency_key"`

	// WorkflowID and RunID correlate the event with its Temporal
	// execution.
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	// DocumentID identifies the document the event concerns.
	DocumentID string `json:"document_id"`

	// Payload carries the event-specific data.
	Payload json.RawMessage `json:"payload"`
}

// EventSink receives emitted events. Implementations must treat duplicate
// idempotency keys as no-ops and should return quickly; event delivery is
// best-effort and never fails the emitting activity.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards all events. Used when event emission is disabled.
type NoOpEventSink struct{}

// Append implements EventSink with no side effects.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error { return nil }

// NewNoOpEventSink creates a sink that discards everything.
func NewNoOpEventSink() EventSink { return &NoOpEventSink{} }

// MemorySink collects events in memory with idempotency-key deduplication.
// Used by tests and the local process command.
type MemorySink struct {
	mu   sync.Mutex
	seen map[string]struct{}
	list []Envelope
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append stores the envelope, dropping duplicates by idempotency key.
func (s *MemorySink) Append(_ context.Context, envelope Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if envelope.IdempotencyKey != "" {
		if _, dup := s.seen[envelope.IdempotencyKey]; dup {
			return nil
		}
		s.seen[envelope.IdempotencyKey] = struct{}{}
	}
	s.list = append(s.list, envelope)
	return nil
}

// Events returns a copy of the collected envelopes in arrival order.
func (s *MemorySink) Events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.list))
	copy(out, s.list)
	return out
}
