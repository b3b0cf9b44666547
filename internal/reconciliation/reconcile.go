// Package reconciliation checks supplier invoices against aggregated
// contract records. The engine is pure: a report is a deterministic
// function of the record, the invoice, and the configured tolerances.
package reconciliation

import (
	"fmt"
	"math"
	"strings"

	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
)

// Engine reconciles invoices against contract records.
type Engine struct {
	cfg config.ReconciliationConfig
}

// New creates a reconciliation engine with the given tolerances.
func New(cfg config.ReconciliationConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Reconcile compares the invoice against the contract record and returns
// the discrepancy report. A low-confidence record still produces a report,
// flagged rather than withheld.
func (e *Engine) Reconcile(record *domain.ContractRecord, invoice *domain.InvoiceRecord) (*domain.ReconciliationReport, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contract record: %w", err)
	}
	if err := invoice.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice: %w", err)
	}

	report := &domain.ReconciliationReport{
		ContractID:    record.DocumentID,
		InvoiceID:     invoice.ID,
		LowConfidence: record.OverallConfidence < e.cfg.UsabilityThreshold,
	}

	e.checkPrice(record, invoice, report)
	e.checkTerms(record, invoice, report)
	e.checkLineItems(record, invoice, report)

	report.Confidence = e.discount(record.OverallConfidence, report.Discrepancies)
	return report, nil
}

// checkPrice compares the invoice total against the contract total. The
// contract's permitted variance, when stated, widens the acceptance band;
// beyond it the deviation is graded into the minor, major, and critical
// severity bands. A currency mismatch is critical on its own and does not
// suppress the amount comparison, so overbilling in the wrong currency
// surfaces as both discrepancies.
func (e *Engine) checkPrice(record *domain.ContractRecord, invoice *domain.InvoiceRecord, report *domain.ReconciliationReport) {
	expected, ok := record.NumberField(domain.FieldTotalAmount)
	if !ok || expected <= 0 {
		report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
			Field:    domain.FieldTotalAmount,
			Kind:     domain.DiscrepancyPricing,
			Actual:   invoice.Amount,
			Severity: domain.SeverityMajor,
			Detail:   "contract total unavailable, invoice amount cannot be verified",
		})
		return
	}

	currencyOK := true
	if currency, ok := record.StringField(domain.FieldCurrency); ok &&
		!strings.EqualFold(currency, invoice.Currency) {
		currencyOK = false
		report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
			Field:    domain.FieldCurrency,
			Kind:     domain.DiscrepancyPricing,
			Expected: currency,
			Actual:   invoice.Currency,
			Severity: domain.SeverityCritical,
			Detail:   "invoice settled in a different currency than contracted",
		})
	}

	deviation := math.Abs(invoice.Amount-expected) / expected
	if deviation <= e.allowedVariance(record) {
		report.PriceMatch = currencyOK
		return
	}

	report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
		Field:    domain.FieldTotalAmount,
		Kind:     domain.DiscrepancyPricing,
		Expected: expected,
		Actual:   invoice.Amount,
		Severity: e.priceSeverity(deviation),
		Detail:   fmt.Sprintf("invoice total deviates %.1f%% from contract", deviation*100),
	})
}

// allowedVariance returns the fractional price deviation the contract
// itself permits.
func (e *Engine) allowedVariance(record *domain.ContractRecord) float64 {
	if v, ok := record.NumberField(domain.FieldVariancePercent); ok && v > 0 {
		return v / 100
	}
	return 0
}

// priceSeverity grades a fractional deviation into the severity bands.
func (e *Engine) priceSeverity(deviation float64) domain.Severity {
	switch {
	case deviation > e.cfg.MajorThreshold:
		return domain.SeverityCritical
	case deviation >= e.cfg.MinorThreshold:
		return domain.SeverityMajor
	default:
		return domain.SeverityMinor
	}
}

// checkTerms compares payment terms. Terms either match or they do not;
// every mismatch is major because paying on the wrong schedule has
// contractual consequences regardless of the size of the difference.
func (e *Engine) checkTerms(record *domain.ContractRecord, invoice *domain.InvoiceRecord, report *domain.ReconciliationReport) {
	expected, ok := record.NumberField(domain.FieldPaymentTermsDays)
	if !ok {
		// No contracted terms to check against; not a discrepancy.
		report.TermsMatch = true
		return
	}

	if invoice.PaymentTermsDays == int(expected) {
		report.TermsMatch = true
		return
	}

	report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
		Field:    domain.FieldPaymentTermsDays,
		Kind:     domain.DiscrepancyTerms,
		Expected: int(expected),
		Actual:   invoice.PaymentTermsDays,
		Severity: domain.SeverityMajor,
		Detail:   "invoice payment terms differ from contract",
	})
}

// checkLineItems pairs invoice lines with contract lines by description
// and verifies quantity and unit price per pair. Invoice lines with no
// contract counterpart are critical (potential overbilling); contract
// lines with no invoice counterpart are reported as unbilled, not as
// discrepancies.
func (e *Engine) checkLineItems(record *domain.ContractRecord, invoice *domain.InvoiceRecord, report *domain.ReconciliationReport) {
	contractLines, ok := record.LineItemsField(domain.FieldPricingItems)
	if !ok || len(contractLines) == 0 || len(invoice.LineItems) == 0 {
		// Nothing to pair; line-level checks are vacuously satisfied.
		report.QuantityMatch = true
		return
	}

	byDesc := make(map[string]domain.LineItem, len(contractLines))
	billed := make(map[string]bool, len(contractLines))
	for _, cl := range contractLines {
		byDesc[normalizeDesc(cl.Description)] = cl
	}

	clean := true
	for _, il := range invoice.LineItems {
		key := normalizeDesc(il.Description)
		cl, found := byDesc[key]
		if !found {
			clean = false
			report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
				Field:    domain.FieldPricingItems,
				Kind:     domain.DiscrepancyPricing,
				Actual:   il.Description,
				Severity: domain.SeverityCritical,
				Detail:   "invoice line has no contract counterpart",
			})
			continue
		}
		billed[key] = true

		if il.Quantity != cl.Quantity {
			clean = false
			report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
				Field:    domain.FieldPricingItems,
				Kind:     domain.DiscrepancyQuantity,
				Expected: cl.Quantity,
				Actual:   il.Quantity,
				Severity: domain.SeverityMajor,
				Detail:   fmt.Sprintf("quantity mismatch on %q", il.Description),
			})
		}

		if cl.UnitPrice > 0 {
			dev := math.Abs(il.UnitPrice-cl.UnitPrice) / cl.UnitPrice
			if dev > e.cfg.LineItemTolerance {
				clean = false
				report.Discrepancies = append(report.Discrepancies, domain.Discrepancy{
					Field:    domain.FieldPricingItems,
					Kind:     domain.DiscrepancyPricing,
					Expected: cl.UnitPrice,
					Actual:   il.UnitPrice,
					Severity: e.priceSeverity(dev),
					Detail:   fmt.Sprintf("unit price deviates %.1f%% on %q", dev*100, il.Description),
				})
			}
		}
	}

	for _, cl := range contractLines {
		if !billed[normalizeDesc(cl.Description)] {
			report.UnbilledContractLines = append(report.UnbilledContractLines, cl.Description)
		}
	}

	report.QuantityMatch = clean
}

// discount reduces the record's confidence per discrepancy, weighted by
// severity, clamped to [0,1].
func (e *Engine) discount(base float64, discrepancies []domain.Discrepancy) float64 {
	conf := base
	for _, d := range discrepancies {
		switch d.Severity {
		case domain.SeverityCritical:
			conf -= e.cfg.CriticalPenalty
		case domain.SeverityMajor:
			conf -= e.cfg.MajorPenalty
		default:
			conf -= e.cfg.MinorPenalty
		}
	}
	return domain.Clamp01(conf)
}

func normalizeDesc(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
