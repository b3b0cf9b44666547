package activity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/procurant/docpipe/internal/aggregation"
	"github.com/procurant/docpipe/internal/benchmark"
	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
	"github.com/procurant/docpipe/internal/orchestrator"
	"github.com/procurant/docpipe/internal/reconciliation"
	"github.com/procurant/docpipe/internal/registry"
	"github.com/procurant/docpipe/pkg/events"
)

type cannedAgent struct {
	desc   domain.AgentDescriptor
	fields map[string]domain.FieldValue
}

func (a *cannedAgent) Descriptor() domain.AgentDescriptor { return a.desc }

func (a *cannedAgent) Analyze(context.Context, domain.Document) (map[string]domain.FieldValue, error) {
	return a.fields, nil
}

func canned(name string, cat domain.AgentCategory, fields map[string]domain.FieldValue) registry.Agent {
	return &cannedAgent{
		desc: domain.AgentDescriptor{
			Name:       name,
			Category:   cat,
			Timeout:    time.Second,
			MaxRetries: 1,
			Priority:   1,
		},
		fields: fields,
	}
}

func newTestActivities(t *testing.T) (*Activities, *events.MemorySink) {
	t.Helper()

	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg, err := registry.New(
		canned("pricing_totals", domain.CategoryPricing, map[string]domain.FieldValue{
			domain.FieldTotalAmount: {Value: 120000.0, Confidence: 0.9},
			domain.FieldCurrency:    {Value: "USD", Confidence: 0.95},
		}),
		canned("financial_risk", domain.CategoryFinancial, map[string]domain.FieldValue{
			domain.FieldRiskScore: {Value: 0.2, Confidence: 0.8},
		}),
		canned("terms_payment", domain.CategoryTerms, map[string]domain.FieldValue{
			domain.FieldPaymentTermsDays: {Value: 30.0, Confidence: 0.85},
		}),
		canned("compliance_audit", domain.CategoryCompliance, map[string]domain.FieldValue{
			domain.FieldComplianceScore: {Value: 0.9, Confidence: 0.8},
		}),
		canned("operational_vendor", domain.CategoryOperational, map[string]domain.FieldValue{
			domain.FieldVendorName: {Value: "Acme Corp", Confidence: 0.7},
		}),
	)
	require.NoError(t, err)

	orch, err := orchestrator.New(reg, cfg.Orchestrator, logger)
	require.NoError(t, err)

	pop := benchmark.NewMemoryPopulation()
	pop.Seed("saas", 3, 5, 7)

	sink := events.NewMemorySink()
	acts := NewActivities(
		NewBaseActivities(sink),
		orch,
		aggregation.New(cfg.Aggregation),
		reconciliation.New(cfg.Reconciliation),
		benchmark.New(cfg.Benchmark, pop),
		pop,
	)
	return acts, sink
}

func testDoc() domain.Document {
	return domain.Document{
		ID:           "doc-1",
		Kind:         domain.DocumentContract,
		ContractType: "saas",
		Text:         "Subscription services. Total $120,000. Net 30.",
	}
}

func TestActivities_PipelineEndToEnd(t *testing.T) {
	acts, sink := newTestActivities(t)
	ctx := context.Background()

	analyzed, err := acts.AnalyzeDocument(ctx, AnalyzeInput{Document: testDoc()})
	require.NoError(t, err)
	require.Len(t, analyzed.Batch.Results, 5)
	assert.Equal(t, 5, analyzed.Batch.SucceededCount())

	aggregated, err := acts.AggregateBatch(ctx, AggregateInput{
		Batch:    analyzed.Batch,
		Document: testDoc(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, aggregated.Record.Status)
	assert.Equal(t, 120000.0, aggregated.Record.Fields[domain.FieldTotalAmount])

	benched, err := acts.BenchmarkContract(ctx, BenchmarkInput{Record: aggregated.Record})
	require.NoError(t, err)
	assert.Equal(t, domain.BenchmarkOK, benched.Report.Status)

	reconciled, err := acts.ReconcileInvoice(ctx, ReconcileInput{
		Record: aggregated.Record,
		Invoice: domain.InvoiceRecord{
			ID:               "inv-1",
			Vendor:           "Acme Corp",
			Amount:           120000,
			Currency:         "USD",
			InvoiceDate:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			PaymentTermsDays: 30,
		},
	})
	require.NoError(t, err)
	assert.True(t, reconciled.Report.Clean())

	types := map[string]bool{}
	for _, e := range sink.Events() {
		types[e.Type] = true
		assert.NotEmpty(t, e.IdempotencyKey)
		assert.Equal(t, "doc-1", e.DocumentID)
	}
	assert.True(t, types["analysis.batch_started"])
	assert.True(t, types["analysis.batch_completed"])
	assert.True(t, types["aggregation.record_built"])
	assert.True(t, types["benchmark.report_built"])
	assert.True(t, types["reconciliation.report_built"])
}

func TestAnalyzeDocument_InvalidInput(t *testing.T) {
	acts, _ := newTestActivities(t)

	_, err := acts.AnalyzeDocument(context.Background(), AnalyzeInput{
		Document: domain.Document{ID: "doc-1"},
	})

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, TagValidation, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestBenchmarkContract_RecordsScoreInPopulation(t *testing.T) {
	acts, _ := newTestActivities(t)
	ctx := context.Background()

	record := domain.ContractRecord{
		DocumentID:   "doc-1",
		RunID:        "run-1",
		ContractType: "saas",
		Fields: map[string]any{
			domain.FieldTotalAmount: 120000.0,
			domain.FieldCurrency:    "USD",
		},
		Confidence: map[string]float64{
			domain.FieldTotalAmount: 0.9,
			domain.FieldCurrency:    0.95,
		},
		Contributors:      map[string][]string{},
		OverallConfidence: 0.9,
		Status:            domain.StatusComplete,
	}

	before, err := acts.population.Snapshot(ctx, "saas")
	require.NoError(t, err)

	out, err := acts.BenchmarkContract(ctx, BenchmarkInput{Record: record})
	require.NoError(t, err)
	require.Equal(t, domain.BenchmarkOK, out.Report.Status)

	after, err := acts.population.Snapshot(ctx, "saas")
	require.NoError(t, err)
	assert.Len(t, after.Scores, len(before.Scores)+1)
}

func TestClassifyEngineError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTag   string
		retryable bool
	}{
		{
			name:    "aggregation failure is unanalyzable",
			err:     &domain.AggregationError{RunID: "run-1", Cause: domain.ErrNoUsableResults},
			wantTag: TagUnanalyzable,
		},
		{
			name:    "configuration error is validation",
			err:     domain.NewConfigurationError("bad roster"),
			wantTag: TagValidation,
		},
		{
			name:      "anything else stays retryable",
			err:       errors.New("redis hiccup"),
			wantTag:   TagEngine,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyEngineError(tt.err)

			var appErr *temporal.ApplicationError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantTag, appErr.Type())
			assert.Equal(t, !tt.retryable, appErr.NonRetryable())
		})
	}
}
