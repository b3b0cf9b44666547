// Package workflow defines the Temporal workflow driving one document
// through the pipeline: agent fan-out, aggregation, then reconciliation
// and benchmarking. The workflow holds orchestration order and retry
// policy only; all computation happens in activities.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/procurant/docpipe/internal/activity"
	"github.com/procurant/docpipe/internal/domain"
)

// ProcessDocumentWorkflowName is the registered workflow name.
const ProcessDocumentWorkflowName = "ProcessDocumentWorkflow"

// ProcessDocumentInput starts one pipeline run. The invoice is optional;
// when present, the aggregated record is reconciled against it.
type ProcessDocumentInput struct {
	Document domain.Document       `json:"document"`
	Invoice  *domain.InvoiceRecord `json:"invoice,omitempty"`
}

// ProcessDocumentOutput is the full pipeline result for one document.
type ProcessDocumentOutput struct {
	Record         domain.ContractRecord        `json:"record"`
	Reconciliation *domain.ReconciliationReport `json:"reconciliation,omitempty"`
	Benchmark      *domain.BenchmarkReport      `json:"benchmark,omitempty"`
}

// ProcessDocumentWorkflow runs analysis, aggregation, and the downstream
// engines for one document. Reconciliation and benchmarking run in
// parallel once the record exists; either failing fails the workflow, a
// low-confidence record does not.
func ProcessDocumentWorkflow(ctx workflow.Context, in ProcessDocumentInput) (*ProcessDocumentOutput, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("document pipeline started", "document_id", in.Document.ID, "kind", in.Document.Kind)

	_ = workflow.GetVersion(ctx, "process-document-pipeline", workflow.DefaultVersion, 1)

	var acts *activity.Activities

	// The fan-out activity is long-running and heartbeats progress; its
	// own internal retries mean Temporal-level retries stay conservative.
	analyzeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    2,
			NonRetryableErrorTypes: []string{
				activity.TagValidation,
			},
		},
	})

	var analyzed activity.AnalyzeOutput
	if err := workflow.ExecuteActivity(analyzeCtx, acts.AnalyzeDocument, activity.AnalyzeInput{
		Document: in.Document,
	}).Get(ctx, &analyzed); err != nil {
		return nil, err
	}

	// Aggregation and the downstream engines are pure and fast.
	engineCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				activity.TagValidation,
				activity.TagUnanalyzable,
			},
		},
	})

	var aggregated activity.AggregateOutput
	if err := workflow.ExecuteActivity(engineCtx, acts.AggregateBatch, activity.AggregateInput{
		Batch:    analyzed.Batch,
		Document: in.Document,
	}).Get(ctx, &aggregated); err != nil {
		return nil, err
	}

	out := &ProcessDocumentOutput{Record: aggregated.Record}

	benchFuture := workflow.ExecuteActivity(engineCtx, acts.BenchmarkContract, activity.BenchmarkInput{
		Record: aggregated.Record,
	})

	var reconcileFuture workflow.Future
	if in.Invoice != nil {
		reconcileFuture = workflow.ExecuteActivity(engineCtx, acts.ReconcileInvoice, activity.ReconcileInput{
			Record:  aggregated.Record,
			Invoice: *in.Invoice,
		})
	}

	var benched activity.BenchmarkOutput
	if err := benchFuture.Get(ctx, &benched); err != nil {
		return nil, err
	}
	out.Benchmark = &benched.Report

	if reconcileFuture != nil {
		var reconciled activity.ReconcileOutput
		if err := reconcileFuture.Get(ctx, &reconciled); err != nil {
			return nil, err
		}
		out.Reconciliation = &reconciled.Report
	}

	logger.Info("document pipeline finished",
		"document_id", in.Document.ID,
		"record_status", out.Record.Status,
		"overall_confidence", out.Record.OverallConfidence)

	return out, nil
}
