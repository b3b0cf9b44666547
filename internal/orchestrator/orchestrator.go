// Package orchestrator fans analysis agents out over a document and
// collects their results into a complete batch. It owns every execution
// policy in the pipeline: concurrency bounds, per-attempt timeouts, retry
// budgets with exponential backoff, and the global run deadline.
//
// The batch contract is unconditional: one AgentResult per registered
// agent, in registry order, no matter how individual agents fail. Agent
// failures degrade the batch; they never abort it.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/procurant/docpipe/internal/completion"
	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
	"github.com/procurant/docpipe/internal/registry"
)

// Orchestrator runs the registered agents against documents.
type Orchestrator struct {
	reg     *registry.Registry
	cfg     config.OrchestratorConfig
	backoff *backoff
	logger  *slog.Logger
}

// New creates an orchestrator over the given roster.
func New(reg *registry.Registry, cfg config.OrchestratorConfig, logger *slog.Logger) (*Orchestrator, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, domain.NewConfigurationError("orchestrator requires a non-empty agent registry")
	}
	if cfg.MaxConcurrentAgents <= 0 {
		return nil, domain.NewConfigurationError("max_concurrent_agents must be > 0, got %d", cfg.MaxConcurrentAgents)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		reg:     reg,
		cfg:     cfg,
		backoff: newBackoff(cfg.Backoff),
		logger:  logger.With("component", "orchestrator"),
	}, nil
}

// Progress is a point-in-time snapshot of a run.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	TimedOut  int `json:"timed_out"`
}

// Run is the handle to one in-flight orchestration. Callers observe
// progress, cancel early, and wait for the batch.
type Run struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	total     int
	completed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	timedOut  atomic.Int64

	batch *domain.Batch
}

// ID returns the run identifier, assigned at dispatch.
func (r *Run) ID() string { return r.id }

// Cancel stops the run. In-flight and unstarted agents finish as timed
// out; the batch stays complete.
func (r *Run) Cancel() { r.cancel() }

// Progress returns a snapshot of completion counts.
func (r *Run) Progress() Progress {
	return Progress{
		Total:     r.total,
		Completed: int(r.completed.Load()),
		Succeeded: int(r.succeeded.Load()),
		Failed:    int(r.failed.Load()),
		TimedOut:  int(r.timedOut.Load()),
	}
}

// Wait blocks until the run finishes and returns the complete batch.
func (r *Run) Wait() *domain.Batch {
	<-r.done
	return r.batch
}

// Execute runs the full roster against the document and blocks until the
// batch is complete. Equivalent to Start followed by Wait.
func (o *Orchestrator) Execute(ctx context.Context, doc domain.Document) (*domain.Batch, error) {
	run, err := o.Start(ctx, doc)
	if err != nil {
		return nil, err
	}
	return run.Wait(), nil
}

// Start validates the document, dispatches the fan-out, and returns the
// run handle immediately.
func (o *Orchestrator) Start(ctx context.Context, doc domain.Document) (*Run, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	agents := o.reg.List()
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if o.cfg.GlobalTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.GlobalTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	run := &Run{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
		total:  len(agents),
	}

	o.logger.InfoContext(ctx, "run started",
		"run_id", run.id,
		"document_id", doc.ID,
		"agents", len(agents),
		"max_concurrent", o.cfg.MaxConcurrentAgents)

	go o.fanOut(runCtx, run, doc, agents)
	return run, nil
}

// fanOut dispatches every agent under the concurrency bound and assembles
// the batch in registry order.
func (o *Orchestrator) fanOut(ctx context.Context, run *Run, doc domain.Document, agents []registry.Agent) {
	defer run.cancel()
	start := time.Now()

	results := make([]domain.AgentResult, len(agents))
	sem := semaphore.NewWeighted(int64(o.cfg.MaxConcurrentAgents))

	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(slot int, agent registry.Agent) {
			defer wg.Done()

			desc := agent.Descriptor()
			if err := sem.Acquire(ctx, 1); err != nil {
				// Run deadline or cancellation hit before this agent
				// ever started; it still gets a batch entry.
				results[slot] = o.timedOutResult(desc, 0, 0, ctx.Err())
				o.account(run, &results[slot])
				return
			}
			defer sem.Release(1)

			results[slot] = o.runAgent(ctx, desc, agent, doc)
			o.account(run, &results[slot])
		}(i, agent)
	}
	wg.Wait()

	run.batch = &domain.Batch{
		RunID:      run.id,
		DocumentID: doc.ID,
		Results:    results,
		Elapsed:    time.Since(start),
	}

	p := run.Progress()
	o.logger.Info("run finished",
		"run_id", run.id,
		"document_id", doc.ID,
		"elapsed_ms", run.batch.Elapsed.Milliseconds(),
		"succeeded", p.Succeeded,
		"failed", p.Failed,
		"timed_out", p.TimedOut)

	close(run.done)
}

// runAgent drives one agent to a terminal state: attempt, classify,
// back off, retry, until success or the budget runs out.
func (o *Orchestrator) runAgent(ctx context.Context, desc domain.AgentDescriptor, agent registry.Agent, doc domain.Document) domain.AgentResult {
	start := time.Now()
	maxAttempts := desc.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return o.timedOutResult(desc, attempt-1, time.Since(start), ctx.Err())
		}

		fields, err := o.attempt(ctx, desc, agent, doc)
		if err == nil {
			return domain.AgentResult{
				AgentName: desc.Name,
				Category:  desc.Category,
				Status:    domain.AgentSucceeded,
				Fields:    fields,
				Attempts:  attempt,
				Elapsed:   time.Since(start),
			}
		}
		lastErr = err

		// The run deadline overrides the agent's own budget.
		if ctx.Err() != nil {
			return o.timedOutResult(desc, attempt, time.Since(start), ctx.Err())
		}

		if !retryable(err) {
			o.logger.Warn("agent failed fatally",
				"agent", desc.Name, "attempt", attempt, "error", err)
			return o.failedResult(desc, attempt, time.Since(start), err)
		}

		if attempt == maxAttempts {
			break
		}

		delay := o.backoff.delay(attempt, completion.RetryAfter(err))
		o.logger.Debug("agent attempt failed, backing off",
			"agent", desc.Name, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return o.timedOutResult(desc, attempt, time.Since(start), ctx.Err())
		case <-timer.C:
		}
	}

	// Budget exhausted. A final timeout reads as timed_out, anything else
	// as failed.
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return o.timedOutResult(desc, maxAttempts, time.Since(start), lastErr)
	}
	o.logger.Warn("agent exhausted retries",
		"agent", desc.Name, "attempts", maxAttempts, "error", lastErr)
	return o.failedResult(desc, maxAttempts, time.Since(start), lastErr)
}

// attempt runs one invocation under the agent's per-attempt timeout.
func (o *Orchestrator) attempt(ctx context.Context, desc domain.AgentDescriptor, agent registry.Agent, doc domain.Document) (map[string]domain.FieldValue, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, desc.Timeout)
	defer cancel()
	return agent.Analyze(attemptCtx, doc)
}

func (o *Orchestrator) failedResult(desc domain.AgentDescriptor, attempts int, elapsed time.Duration, err error) domain.AgentResult {
	return domain.AgentResult{
		AgentName: desc.Name,
		Category:  desc.Category,
		Status:    domain.AgentFailed,
		Error:     err.Error(),
		Attempts:  attempts,
		Elapsed:   elapsed,
	}
}

func (o *Orchestrator) timedOutResult(desc domain.AgentDescriptor, attempts int, elapsed time.Duration, err error) domain.AgentResult {
	msg := "run cancelled"
	if err != nil {
		msg = err.Error()
	}
	return domain.AgentResult{
		AgentName: desc.Name,
		Category:  desc.Category,
		Status:    domain.AgentTimedOut,
		Error:     msg,
		Attempts:  attempts,
		Elapsed:   elapsed,
	}
}

func (o *Orchestrator) account(run *Run, res *domain.AgentResult) {
	run.completed.Add(1)
	switch res.Status {
	case domain.AgentSucceeded:
		run.succeeded.Add(1)
	case domain.AgentTimedOut:
		run.timedOut.Add(1)
	default:
		run.failed.Add(1)
	}
}

// retryable reports whether the attempt's failure warrants another try.
// Agent-level classification wins; otherwise the completion client's
// transport classification applies. Per-attempt deadlines are retryable,
// the budget decides when to stop.
func retryable(err error) bool {
	var fatal *domain.AgentFatalError
	if errors.As(err, &fatal) {
		return false
	}
	var transient *domain.AgentTransientError
	if errors.As(err, &transient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return completion.IsRetryable(err)
}
