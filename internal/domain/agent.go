// Package domain defines the core types shared across the procurement
// document pipeline: agent contracts, aggregated contract records, invoice
// reconciliation reports, and benchmark reports. All types are plain data
// with validation tags; behavior lives in the engine packages.
//
// Ownership model:
//   - AgentResult values are created once per agent invocation by the
//     orchestrator and never mutated afterwards.
//   - ContractRecord is produced by the aggregator and is read-only to the
//     downstream engines; reprocessing supersedes a record, it never
//     mutates one in place.
package domain

import (
	"time"
)

// AgentCategory groups analysis agents by the kind of signal they extract.
type AgentCategory string

// The five agent categories. Every registry must have at least one agent
// per category so benchmark dimensions stay meaningful.
const (
	CategoryPricing     AgentCategory = "pricing"
	CategoryTerms       AgentCategory = "terms"
	CategoryCompliance  AgentCategory = "compliance"
	CategoryFinancial   AgentCategory = "financial"
	CategoryOperational AgentCategory = "operational"
)

// String returns the string representation of the category.
func (c AgentCategory) String() string { return string(c) }

// Categories returns all agent categories in conflict-resolution priority
// order: pricing > financial > terms > compliance > operational. The order
// reflects how strongly a field disagreement affects downstream
// reconciliation.
func Categories() []AgentCategory {
	return []AgentCategory{
		CategoryPricing,
		CategoryFinancial,
		CategoryTerms,
		CategoryCompliance,
		CategoryOperational,
	}
}

// CategoryPriority returns the tie-break rank of a category; lower is
// stronger. Unknown categories rank last.
func CategoryPriority(c AgentCategory) int {
	for i, cat := range Categories() {
		if cat == c {
			return i
		}
	}
	return len(Categories())
}

// AgentDescriptor is the immutable identity and execution configuration of
// one analysis agent. Descriptors are fixed at registry construction and
// shared read-only by all concurrent agent tasks during a run.
type AgentDescriptor struct {
	// Name uniquely identifies the agent within a registry.
	Name string `json:"name" validate:"required,min=1"`

	// Category determines benchmark dimension attribution and the
	// tie-break order during field conflict resolution.
	Category AgentCategory `json:"category" validate:"required,oneof=pricing terms compliance financial operational"`

	// Timeout bounds a single invocation attempt. A timed-out attempt
	// consumes one unit of the retry budget.
	Timeout time.Duration `json:"timeout" validate:"gt=0"`

	// MaxRetries is the number of re-attempts after the first invocation
	// (0 means a single attempt).
	MaxRetries int `json:"max_retries" validate:"min=0"`

	// Priority orders agents within a category for reporting; it has no
	// scheduling effect.
	Priority int `json:"priority" validate:"min=0"`
}

// Validate checks the descriptor against its contract.
func (d *AgentDescriptor) Validate() error { return validate.Struct(d) }

// AgentStatus is the terminal state of one agent run.
type AgentStatus string

const (
	// AgentSucceeded indicates the agent returned a usable partial result.
	AgentSucceeded AgentStatus = "succeeded"

	// AgentFailed indicates the agent exhausted its retries on transient
	// faults or hit a fatal fault.
	AgentFailed AgentStatus = "failed"

	// AgentTimedOut indicates the agent was cut off by its per-attempt
	// timeout with no budget left, by the global run deadline, or by an
	// external cancellation.
	AgentTimedOut AgentStatus = "timed_out"
)

// FieldValue is one extracted field with the reporting agent's confidence.
type FieldValue struct {
	Value      any     `json:"value" validate:"required"`
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`
}

// AgentResult is the outcome of one agent run against one document.
// Created once by the orchestrator and handed to the aggregator; never
// mutated after creation.
type AgentResult struct {
	// AgentName identifies the agent that produced this result.
	AgentName string `json:"agent_name" validate:"required"`

	// Category is copied from the agent's descriptor so the aggregator
	// can tie-break without a registry lookup.
	Category AgentCategory `json:"category" validate:"required"`

	// Status is the terminal state of the run.
	Status AgentStatus `json:"status" validate:"required,oneof=succeeded failed timed_out"`

	// Fields maps extracted field names to typed values with per-field
	// confidence. Empty unless Status is succeeded.
	Fields map[string]FieldValue `json:"fields,omitempty"`

	// Error carries the failure detail when Status is not succeeded.
	Error string `json:"error,omitempty"`

	// Attempts is the number of invocation attempts consumed.
	Attempts int `json:"attempts" validate:"min=0"`

	// Elapsed is the wall time from first dispatch to terminal state.
	Elapsed time.Duration `json:"elapsed"`
}

// Succeeded reports whether the result carries usable extraction output.
func (r *AgentResult) Succeeded() bool { return r.Status == AgentSucceeded }

// Batch is the complete set of per-agent results for one run. The
// orchestrator always returns one entry per registered agent regardless of
// individual failures; batch health is classified by counting
// non-succeeded entries, and the caller decides whether a partial batch is
// acceptable.
type Batch struct {
	// RunID identifies the orchestration run that produced this batch.
	RunID string `json:"run_id" validate:"required"`

	// DocumentID identifies the analyzed document.
	DocumentID string `json:"document_id" validate:"required"`

	// Results holds exactly one entry per dispatched agent, in registry
	// order. Merge logic is order-independent; the ordering only keeps
	// batches reproducible for audit.
	Results []AgentResult `json:"results" validate:"required,min=1,dive"`

	// Elapsed is the wall time of the whole run.
	Elapsed time.Duration `json:"elapsed"`
}

// Validate checks the batch against its contract.
func (b *Batch) Validate() error { return validate.Struct(b) }

// SucceededCount returns the number of succeeded results in the batch.
func (b *Batch) SucceededCount() int {
	n := 0
	for i := range b.Results {
		if b.Results[i].Succeeded() {
			n++
		}
	}
	return n
}

// FailedAgents returns the names of agents that did not succeed, in batch
// order.
func (b *Batch) FailedAgents() []string {
	var names []string
	for i := range b.Results {
		if !b.Results[i].Succeeded() {
			names = append(names, b.Results[i].AgentName)
		}
	}
	return names
}
