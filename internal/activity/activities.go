package activity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/procurant/docpipe/internal/aggregation"
	"github.com/procurant/docpipe/internal/benchmark"
	"github.com/procurant/docpipe/internal/domain"
	"github.com/procurant/docpipe/internal/orchestrator"
	"github.com/procurant/docpipe/internal/reconciliation"
	"github.com/procurant/docpipe/pkg/events"
)

// heartbeatInterval paces progress heartbeats during long fan-outs.
const heartbeatInterval = 5 * time.Second

// Activities bundles the pipeline engines behind Temporal activity methods.
type Activities struct {
	BaseActivities

	orchestrator *orchestrator.Orchestrator
	aggregator   *aggregation.Aggregator
	reconciler   *reconciliation.Engine
	benchmarker  *benchmark.Engine
	population   benchmark.Provider
}

// NewActivities wires the engines into the activity set.
func NewActivities(
	base BaseActivities,
	orch *orchestrator.Orchestrator,
	agg *aggregation.Aggregator,
	rec *reconciliation.Engine,
	bench *benchmark.Engine,
	pop benchmark.Provider,
) *Activities {
	return &Activities{
		BaseActivities: base,
		orchestrator:   orch,
		aggregator:     agg,
		reconciler:     rec,
		benchmarker:    bench,
		population:     pop,
	}
}

// AnalyzeInput carries the document to fan out over.
type AnalyzeInput struct {
	Document domain.Document `json:"document"`
}

// AnalyzeOutput carries the complete batch.
type AnalyzeOutput struct {
	Batch domain.Batch `json:"batch"`
}

// AnalyzeDocument runs the agent fan-out and returns the complete batch.
// The activity heartbeats run progress so Temporal can distinguish a slow
// fan-out from a stuck one.
func (a *Activities) AnalyzeDocument(ctx context.Context, in AnalyzeInput) (*AnalyzeOutput, error) {
	if err := in.Document.Validate(); err != nil {
		return nil, nonRetryable(TagValidation, err, "invalid document")
	}

	run, err := a.orchestrator.Start(ctx, in.Document)
	if err != nil {
		return nil, classifyEngineError(err)
	}

	a.emit(ctx, "analysis.batch_started", "analysis-activity", in.Document.ID, map[string]any{
		"run_id": run.ID(),
		"agents": run.Progress().Total,
	})

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	var batch *domain.Batch
	done := make(chan struct{})
	go func() {
		batch = run.Wait()
		close(done)
	}()

wait:
	for {
		select {
		case <-done:
			break wait
		case <-ticker.C:
			a.RecordHeartbeat(ctx, run.Progress())
		}
	}

	p := run.Progress()
	a.emit(ctx, "analysis.batch_completed", "analysis-activity", in.Document.ID, map[string]any{
		"run_id":    batch.RunID,
		"succeeded": p.Succeeded,
		"failed":    p.Failed,
		"timed_out": p.TimedOut,
	})

	return &AnalyzeOutput{Batch: *batch}, nil
}

// AggregateInput carries the batch and its source document.
type AggregateInput struct {
	Batch    domain.Batch    `json:"batch"`
	Document domain.Document `json:"document"`
}

// AggregateOutput carries the merged contract record.
type AggregateOutput struct {
	Record domain.ContractRecord `json:"record"`
}

// AggregateBatch merges the batch into a contract record. An unanalyzable
// document (no usable agent results) is a non-retryable business outcome,
// not a transient fault.
func (a *Activities) AggregateBatch(ctx context.Context, in AggregateInput) (*AggregateOutput, error) {
	if err := in.Batch.Validate(); err != nil {
		return nil, nonRetryable(TagValidation, err, "invalid batch")
	}

	record, err := a.aggregator.Aggregate(&in.Batch, in.Document)
	if err != nil {
		return nil, classifyEngineError(err)
	}

	a.emit(ctx, "aggregation.record_built", "aggregation-activity", record.DocumentID, map[string]any{
		"run_id":             record.RunID,
		"status":             record.Status,
		"overall_confidence": record.OverallConfidence,
		"fields":             len(record.Fields),
	})

	return &AggregateOutput{Record: *record}, nil
}

// ReconcileInput carries the contract record and the invoice to check.
type ReconcileInput struct {
	Record  domain.ContractRecord `json:"record"`
	Invoice domain.InvoiceRecord  `json:"invoice"`
}

// ReconcileOutput carries the discrepancy report.
type ReconcileOutput struct {
	Report domain.ReconciliationReport `json:"report"`
}

// ReconcileInvoice checks the invoice against the contract record.
func (a *Activities) ReconcileInvoice(ctx context.Context, in ReconcileInput) (*ReconcileOutput, error) {
	report, err := a.reconciler.Reconcile(&in.Record, &in.Invoice)
	if err != nil {
		return nil, nonRetryable(TagValidation, err, "reconciliation inputs invalid")
	}

	a.emit(ctx, "reconciliation.report_built", "reconciliation-activity", in.Record.DocumentID, map[string]any{
		"invoice_id":     report.InvoiceID,
		"clean":          report.Clean(),
		"discrepancies":  len(report.Discrepancies),
		"low_confidence": report.LowConfidence,
	})

	return &ReconcileOutput{Report: *report}, nil
}

// BenchmarkInput carries the contract record to score.
type BenchmarkInput struct {
	Record domain.ContractRecord `json:"record"`
}

// BenchmarkOutput carries the benchmark report.
type BenchmarkOutput struct {
	Report domain.BenchmarkReport `json:"report"`
}

// BenchmarkContract scores the record against its reference population and
// appends the new score so the population grows with every run. The
// append is best-effort; a full report with a stale population beats no
// report.
func (a *Activities) BenchmarkContract(ctx context.Context, in BenchmarkInput) (*BenchmarkOutput, error) {
	report, err := a.benchmarker.Benchmark(ctx, &in.Record)
	if err != nil {
		return nil, classifyEngineError(err)
	}

	if a.population != nil && report.Status == domain.BenchmarkOK {
		if err := a.population.Record(ctx, in.Record.ContractType, in.Record.DocumentID, report.OverallScore); err != nil {
			SafeLogError(ctx, "failed to record benchmark score", "error", err)
		}
	}

	a.emit(ctx, "benchmark.report_built", "benchmark-activity", in.Record.DocumentID, map[string]any{
		"overall_score": report.OverallScore,
		"percentile":    report.Percentile,
		"status":        report.Status,
	})

	return &BenchmarkOutput{Report: *report}, nil
}

// emit wraps a payload in an envelope with a deterministic idempotency key
// and appends it best-effort.
func (a *Activities) emit(ctx context.Context, eventType, source, documentID string, payload map[string]any) {
	wfCtx := a.GetWorkflowContext(ctx)

	data, err := json.Marshal(payload)
	if err != nil {
		SafeLogError(ctx, "failed to marshal event payload", "event_type", eventType, "error", err)
		return
	}

	key := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s", wfCtx.WorkflowID, eventType, documentID))

	a.EmitEventSafe(ctx, events.Envelope{
		ID:             uuid.NewString(),
		Type:           eventType,
		Source:         source,
		Version:        "1.0.0",
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: hex.EncodeToString(key[:]),
		WorkflowID:     wfCtx.WorkflowID,
		RunID:          wfCtx.RunID,
		DocumentID:     documentID,
		Payload:        data,
	}, eventType)
}
