package domain

// Severity grades a reconciliation discrepancy.
type Severity string

const (
	// SeverityMinor marks deviations under the minor threshold
	// (default: price deviation below 5%).
	SeverityMinor Severity = "minor"

	// SeverityMajor marks deviations between the minor and critical
	// thresholds, and all payment-terms mismatches.
	SeverityMajor Severity = "major"

	// SeverityCritical marks deviations above the critical threshold and
	// invoice lines with no contract counterpart (potential overbilling).
	SeverityCritical Severity = "critical"
)

// DiscrepancyKind names the reconciliation check that raised a discrepancy.
type DiscrepancyKind string

const (
	DiscrepancyPricing  DiscrepancyKind = "pricing"
	DiscrepancyTerms    DiscrepancyKind = "terms"
	DiscrepancyQuantity DiscrepancyKind = "quantity"
)

// Discrepancy is one detected mismatch between invoice and contract data.
type Discrepancy struct {
	Field    string          `json:"field" validate:"required"`
	Kind     DiscrepancyKind `json:"kind" validate:"required,oneof=pricing terms quantity"`
	Expected any             `json:"expected"`
	Actual   any             `json:"actual"`
	Severity Severity        `json:"severity" validate:"required,oneof=minor major critical"`
	Detail   string          `json:"detail,omitempty"`
}

// ReconciliationReport is the immutable output of one reconciliation run.
// It is a pure function of the contract record and invoice: identical
// inputs always produce an identical report.
type ReconciliationReport struct {
	ContractID string `json:"contract_id" validate:"required"`
	InvoiceID  string `json:"invoice_id" validate:"required"`

	PriceMatch    bool `json:"price_match"`
	TermsMatch    bool `json:"terms_match"`
	QuantityMatch bool `json:"quantity_match"`

	// Discrepancies is ordered: pricing first, then terms, then quantity,
	// matching the order the checks run.
	Discrepancies []Discrepancy `json:"discrepancies,omitempty" validate:"dive"`

	// UnbilledContractLines lists contract line descriptions with no
	// invoice counterpart. Informational only, never a discrepancy.
	UnbilledContractLines []string `json:"unbilled_contract_lines,omitempty"`

	// Confidence is the contract's overall confidence discounted by the
	// number and severity of discrepancies found.
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`

	// LowConfidence flags reports built from a contract record below the
	// usability threshold. The report is still produced; the caller
	// decides whether to act on it.
	LowConfidence bool `json:"low_confidence"`
}

// Validate checks the report against its contract.
func (r *ReconciliationReport) Validate() error { return validate.Struct(r) }

// Clean reports whether reconciliation found no discrepancies at all.
func (r *ReconciliationReport) Clean() bool {
	return r.PriceMatch && r.TermsMatch && r.QuantityMatch && len(r.Discrepancies) == 0
}
