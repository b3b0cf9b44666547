package domain

import "time"

// DocumentKind distinguishes the two document classes the pipeline ingests.
type DocumentKind string

const (
	// DocumentContract is a procurement contract.
	DocumentContract DocumentKind = "contract"

	// DocumentInvoice is a supplier invoice.
	DocumentInvoice DocumentKind = "invoice"
)

// Document is the already-parsed input to an orchestration run. Upstream
// collaborators own upload, storage, and text extraction; within the
// pipeline a document is plain text plus metadata.
type Document struct {
	ID           string            `json:"id" validate:"required"`
	Kind         DocumentKind      `json:"kind" validate:"required,oneof=contract invoice"`
	ContractType string            `json:"contract_type,omitempty"`
	Text         string            `json:"text" validate:"required,min=1"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate checks the document against its contract.
func (d *Document) Validate() error { return validate.Struct(d) }

// LineItem is a single priced line on a contract or invoice.
type LineItem struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"min=0"`
	Total       float64 `json:"total" validate:"min=0"`
	Currency    string  `json:"currency" validate:"required,len=3"`
}

// InvoiceRecord is the structured invoice supplied by an external
// collaborator. Read-only input to the reconciliation engine.
type InvoiceRecord struct {
	ID               string     `json:"id" validate:"required"`
	Vendor           string     `json:"vendor" validate:"required"`
	Amount           float64    `json:"amount" validate:"gt=0"`
	Currency         string     `json:"currency" validate:"required,len=3"`
	InvoiceDate      time.Time  `json:"invoice_date" validate:"required"`
	DueDate          time.Time  `json:"due_date"`
	PaymentTermsDays int        `json:"payment_terms_days" validate:"min=0"`
	LineItems        []LineItem `json:"line_items,omitempty" validate:"dive"`

	// ContractRecordID optionally links the invoice to the contract
	// record it should be reconciled against.
	ContractRecordID string `json:"contract_record_id,omitempty"`
}

// Validate checks the invoice against its contract.
func (r *InvoiceRecord) Validate() error { return validate.Struct(r) }
