package domain

// ProcessingStatus classifies the health of an aggregated record.
type ProcessingStatus string

const (
	// StatusPending indicates a run has been accepted but not aggregated.
	StatusPending ProcessingStatus = "pending"

	// StatusComplete indicates every registered agent succeeded.
	StatusComplete ProcessingStatus = "complete"

	// StatusPartial indicates at least one agent succeeded and at least
	// one failed or timed out.
	StatusPartial ProcessingStatus = "partial"

	// StatusFailed indicates no agent produced a usable result.
	StatusFailed ProcessingStatus = "failed"
)

// ContractRecord is the canonical aggregated view of one document. It is
// produced by the aggregator from a batch of agent results, is read-only to
// the reconciliation and benchmarking engines, and is superseded rather
// than mutated when a document is reprocessed.
type ContractRecord struct {
	// DocumentID identifies the source document.
	DocumentID string `json:"document_id" validate:"required"`

	// RunID identifies the orchestration run this record was built from.
	RunID string `json:"run_id" validate:"required"`

	// ContractType carries the document's declared contract type for
	// benchmark population selection.
	ContractType string `json:"contract_type,omitempty"`

	// Fields maps field names to merged values.
	Fields map[string]any `json:"fields" validate:"required"`

	// Confidence maps field names to merged confidence in [0,1].
	Confidence map[string]float64 `json:"confidence" validate:"required,dive,min=0,max=1"`

	// Contributors maps field names to the agents that reported the
	// field, sorted by name for reproducibility.
	Contributors map[string][]string `json:"contributors" validate:"required"`

	// OverallConfidence is the importance-weighted mean of the per-field
	// confidences. Missing fields are excluded from the mean rather than
	// counted as zero.
	OverallConfidence float64 `json:"overall_confidence" validate:"min=0,max=1"`

	// Status classifies batch health: complete, partial, or failed.
	Status ProcessingStatus `json:"status" validate:"required,oneof=pending partial complete failed"`

	// FailedAgents lists the agents that failed or timed out, sorted.
	FailedAgents []string `json:"failed_agents,omitempty"`

	// MissingFields lists fields that were reported only by failed or
	// timed-out agents and are therefore omitted from Fields, sorted.
	MissingFields []string `json:"missing_fields,omitempty"`
}

// Validate checks the record against its contract.
func (r *ContractRecord) Validate() error { return validate.Struct(r) }

// NumberField returns the named field as a float64 if present. JSON
// round-trips turn numbers into float64; native int and float values are
// normalized too.
func (r *ContractRecord) NumberField(name string) (float64, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// StringField returns the named field as a string if present.
func (r *ContractRecord) StringField(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringsField returns the named field as a string slice if present.
// Accepts both []string and []any of strings (the JSON decoding shape).
func (r *ContractRecord) StringsField(name string) ([]string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return nil, false
	}
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

// LineItemsField returns the named field as line items if present.
// Accepts native []LineItem and the []any-of-maps shape JSON decoding
// produces from agent output.
func (r *ContractRecord) LineItemsField(name string) ([]LineItem, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return nil, false
	}

	switch items := v.(type) {
	case []LineItem:
		return items, true
	case []any:
		out := make([]LineItem, 0, len(items))
		for _, e := range items {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, false
			}
			li := LineItem{}
			if s, ok := m["description"].(string); ok {
				li.Description = s
			}
			li.Quantity, _ = asNumber(m["quantity"])
			li.UnitPrice, _ = asNumber(m["unit_price"])
			li.Total, _ = asNumber(m["total"])
			if s, ok := m["currency"].(string); ok {
				li.Currency = s
			}
			out = append(out, li)
		}
		return out, true
	default:
		return nil, false
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
