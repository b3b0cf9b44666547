package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
)

func newAggregator() *Aggregator {
	return New(config.AggregationConfig{
		DisagreementPenalty: config.DefaultDisagreementPenalty,
		ConfidenceFloor:     config.DefaultConfidenceFloor,
	})
}

func testDoc() domain.Document {
	return domain.Document{
		ID:           "doc-1",
		Kind:         domain.DocumentContract,
		ContractType: "saas",
		Text:         "irrelevant here",
	}
}

func succeededResult(agent string, cat domain.AgentCategory, fields map[string]domain.FieldValue) domain.AgentResult {
	return domain.AgentResult{
		AgentName: agent,
		Category:  cat,
		Status:    domain.AgentSucceeded,
		Fields:    fields,
		Attempts:  1,
	}
}

func failedResult(agent string, cat domain.AgentCategory) domain.AgentResult {
	return domain.AgentResult{
		AgentName: agent,
		Category:  cat,
		Status:    domain.AgentFailed,
		Error:     "boom",
		Attempts:  3,
	}
}

func testBatch(results ...domain.AgentResult) *domain.Batch {
	return &domain.Batch{
		RunID:      "run-1",
		DocumentID: "doc-1",
		Results:    results,
	}
}

func TestAggregate_AgreementKeepsMaxConfidence(t *testing.T) {
	batch := testBatch(
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 50000.0, Confidence: 0.8},
		}),
		succeededResult("financial_totals", domain.CategoryFinancial, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 50000.0, Confidence: 0.9},
		}),
	)

	record, err := newAggregator().Aggregate(batch, testDoc())
	require.NoError(t, err)

	assert.Equal(t, 50000.0, record.Fields[domain.FieldTotalAmount])
	assert.InDelta(t, 0.9, record.Confidence[domain.FieldTotalAmount], 1e-9)
	assert.Equal(t, []string{"financial_totals", "pricing_totals"},
		record.Contributors[domain.FieldTotalAmount])
	assert.Equal(t, domain.StatusComplete, record.Status)
}

func TestAggregate_ConflictPenalizesConfidence(t *testing.T) {
	batch := testBatch(
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 50000.0, Confidence: 0.9},
		}),
		succeededResult("financial_totals", domain.CategoryFinancial, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 48000.0, Confidence: 0.7},
		}),
	)

	record, err := newAggregator().Aggregate(batch, testDoc())
	require.NoError(t, err)

	// Highest confidence wins; one extra distinct value costs one penalty.
	assert.Equal(t, 50000.0, record.Fields[domain.FieldTotalAmount])
	assert.InDelta(t, 0.9-config.DefaultDisagreementPenalty,
		record.Confidence[domain.FieldTotalAmount], 1e-9)
}

func TestAggregate_ConflictFloorNeverReachesZero(t *testing.T) {
	agg := New(config.AggregationConfig{DisagreementPenalty: 0.5, ConfidenceFloor: 0.05})
	batch := testBatch(
		succeededResult("a1", domain.CategoryPricing, map[string]domain.FieldValue{
			"f": {Value: "x", Confidence: 0.4},
		}),
		succeededResult("a2", domain.CategoryTerms, map[string]domain.FieldValue{
			"f": {Value: "y", Confidence: 0.3},
		}),
		succeededResult("a3", domain.CategoryCompliance, map[string]domain.FieldValue{
			"f": {Value: "z", Confidence: 0.2},
		}),
	)

	record, err := agg.Aggregate(batch, testDoc())
	require.NoError(t, err)
	assert.InDelta(t, 0.05, record.Confidence["f"], 1e-9)
}

func TestAggregate_TieBreaksAreDeterministic(t *testing.T) {
	// Equal confidence: category priority decides, pricing beats terms.
	batch := testBatch(
		succeededResult("terms_payment", domain.CategoryTerms, map[string]domain.FieldValue{
			"f": {Value: "terms-value", Confidence: 0.8},
		}),
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			"f": {Value: "pricing-value", Confidence: 0.8},
		}),
	)

	agg := newAggregator()
	record, err := agg.Aggregate(batch, testDoc())
	require.NoError(t, err)
	assert.Equal(t, "pricing-value", record.Fields["f"])

	// Same category and confidence: lexicographically smaller agent name.
	batch2 := testBatch(
		succeededResult("pricing_b", domain.CategoryPricing, map[string]domain.FieldValue{
			"f": {Value: "from-b", Confidence: 0.8},
		}),
		succeededResult("pricing_a", domain.CategoryPricing, map[string]domain.FieldValue{
			"f": {Value: "from-a", Confidence: 0.8},
		}),
	)
	record2, err := agg.Aggregate(batch2, testDoc())
	require.NoError(t, err)
	assert.Equal(t, "from-a", record2.Fields["f"])
}

func TestAggregate_OrderIndependent(t *testing.T) {
	r1 := succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
		domain.FieldTotalAmount: {Value: 100.0, Confidence: 0.9},
		domain.FieldCurrency:    {Value: "USD", Confidence: 0.7},
	})
	r2 := succeededResult("financial_totals", domain.CategoryFinancial, map[string]domain.FieldValue{
		domain.FieldTotalAmount: {Value: 90.0, Confidence: 0.6},
	})
	r3 := failedResult("terms_payment", domain.CategoryTerms)

	agg := newAggregator()
	a, err := agg.Aggregate(testBatch(r1, r2, r3), testDoc())
	require.NoError(t, err)
	b, err := agg.Aggregate(testBatch(r3, r2, r1), testDoc())
	require.NoError(t, err)

	assert.Equal(t, a.Fields, b.Fields)
	assert.Equal(t, a.Confidence, b.Confidence)
	assert.Equal(t, a.Contributors, b.Contributors)
	assert.Equal(t, a.OverallConfidence, b.OverallConfidence)
	assert.Equal(t, a.MissingFields, b.MissingFields)
}

func TestAggregate_Idempotent(t *testing.T) {
	batch := testBatch(
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 100.0, Confidence: 0.9},
		}),
		failedResult("terms_payment", domain.CategoryTerms),
	)

	agg := newAggregator()
	a, err := agg.Aggregate(batch, testDoc())
	require.NoError(t, err)
	b, err := agg.Aggregate(batch, testDoc())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAggregate_EmptyBatch(t *testing.T) {
	_, err := newAggregator().Aggregate(&domain.Batch{RunID: "run-1", DocumentID: "doc-1"}, testDoc())

	var aggErr *domain.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)
}

func TestAggregate_AllFailed(t *testing.T) {
	batch := testBatch(
		failedResult("a1", domain.CategoryPricing),
		failedResult("a2", domain.CategoryTerms),
	)

	_, err := newAggregator().Aggregate(batch, testDoc())

	var aggErr *domain.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.ErrorIs(t, err, domain.ErrNoUsableResults)
	assert.Equal(t, "run-1", aggErr.RunID)
}

func TestAggregate_PartialBatch(t *testing.T) {
	batch := testBatch(
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 100.0, Confidence: 0.9},
		}),
		failedResult("terms_payment", domain.CategoryTerms),
	)

	record, err := newAggregator().Aggregate(batch, testDoc())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPartial, record.Status)
	assert.Equal(t, []string{"terms_payment"}, record.FailedAgents)
	// The failed terms agent's canonical fields were never reported.
	assert.Contains(t, record.MissingFields, domain.FieldPaymentTermsDays)
	assert.NotContains(t, record.MissingFields, domain.FieldTotalAmount)
}

func TestAggregate_MissingFieldsExcludedFromOverall(t *testing.T) {
	// One confident field plus failed agents: overall reflects the
	// present field, not zeros for the missing ones.
	batch := testBatch(
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 100.0, Confidence: 0.9},
		}),
		failedResult("compliance_audit", domain.CategoryCompliance),
	)

	record, err := newAggregator().Aggregate(batch, testDoc())
	require.NoError(t, err)
	assert.InDelta(t, 0.9, record.OverallConfidence, 1e-9)
}

func TestAggregate_OverallConfidenceWeighted(t *testing.T) {
	// total_amount (weight 2.0) at 0.9 and contact_email (weight 0.5) at
	// 0.4: weighted mean (0.9*2 + 0.4*0.5) / 2.5 = 0.8.
	batch := testBatch(
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 100.0, Confidence: 0.9},
		}),
		succeededResult("operational_contacts", domain.CategoryOperational, map[string]domain.FieldValue{
			domain.FieldContactEmail: {Value: "x@y.com", Confidence: 0.4},
		}),
	)

	record, err := newAggregator().Aggregate(batch, testDoc())
	require.NoError(t, err)
	assert.InDelta(t, 0.8, record.OverallConfidence, 1e-9)
}

func TestAggregate_CompositeValuesCountedByStructure(t *testing.T) {
	// Structurally identical slices are one distinct value, no penalty.
	batch := testBatch(
		succeededResult("a1", domain.CategoryCompliance, map[string]domain.FieldValue{
			domain.FieldRegulatoryRefs: {Value: []string{"GDPR", "SOC2"}, Confidence: 0.7},
		}),
		succeededResult("a2", domain.CategoryCompliance, map[string]domain.FieldValue{
			domain.FieldRegulatoryRefs: {Value: []string{"GDPR", "SOC2"}, Confidence: 0.6},
		}),
	)

	record, err := newAggregator().Aggregate(batch, testDoc())
	require.NoError(t, err)
	assert.InDelta(t, 0.7, record.Confidence[domain.FieldRegulatoryRefs], 1e-9)
}

func TestAggregate_CarriesDocumentContext(t *testing.T) {
	batch := testBatch(
		succeededResult("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 1.0, Confidence: 0.5},
		}),
	)

	record, err := newAggregator().Aggregate(batch, testDoc())
	require.NoError(t, err)
	assert.Equal(t, "doc-1", record.DocumentID)
	assert.Equal(t, "run-1", record.RunID)
	assert.Equal(t, "saas", record.ContractType)
}
