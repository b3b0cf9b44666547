// Package worker assembles the pipeline engines from configuration and
// registers them on a Temporal worker.
package worker

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/procurant/docpipe/internal/activity"
	"github.com/procurant/docpipe/internal/aggregation"
	"github.com/procurant/docpipe/internal/agents"
	"github.com/procurant/docpipe/internal/benchmark"
	"github.com/procurant/docpipe/internal/completion"
	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/orchestrator"
	"github.com/procurant/docpipe/internal/reconciliation"
	"github.com/procurant/docpipe/internal/registry"
	"github.com/procurant/docpipe/internal/workflow"
	"github.com/procurant/docpipe/pkg/events"
)

// TaskQueue is the Temporal task queue the pipeline runs on.
const TaskQueue = "docpipe-pipeline"

// Options configures worker assembly.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// EventSink receives pipeline events; nil disables emission.
	EventSink events.EventSink

	// ScoreDBPath locates the SQLite benchmark population. Empty keeps
	// the population in memory.
	ScoreDBPath string
}

// Pipeline holds the assembled engines, shared by the Temporal worker and
// the local process command.
type Pipeline struct {
	Activities *activity.Activities
	Registry   *registry.Registry

	closers []func() error
}

// Close releases resources held by the pipeline.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildPipeline constructs the engines from configuration.
func BuildPipeline(opts Options) (*Pipeline, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var completionOpts []completion.Option
	completionOpts = append(completionOpts, completion.WithLogger(logger))
	if cfg.Completion.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Completion.Cache.RedisAddr,
			Password: cfg.Completion.Cache.RedisPassword,
			DB:       cfg.Completion.Cache.RedisDB,
		})
		completionOpts = append(completionOpts, completion.WithRedis(rdb))
	}

	completionClient, err := completion.NewClient(cfg.Completion, completionOpts...)
	if err != nil {
		return nil, fmt.Errorf("build completion client: %w", err)
	}

	var roster []registry.Agent
	if len(cfg.Agents) > 0 {
		roster, err = agents.NewRosterFromConfig(completionClient, cfg.Agents)
		if err != nil {
			return nil, err
		}
	} else {
		roster = agents.NewRoster(completionClient, config.DefaultAgentTimeout, config.DefaultAgentMaxRetries)
	}

	reg, err := registry.New(roster...)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(reg, cfg.Orchestrator, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Registry: reg}

	var pop benchmark.Provider
	if opts.ScoreDBPath != "" {
		store, err := benchmark.OpenStore(opts.ScoreDBPath)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, store.Close)
		pop = store
	} else {
		pop = benchmark.NewMemoryPopulation()
	}

	p.Activities = activity.NewActivities(
		activity.NewBaseActivities(opts.EventSink),
		orch,
		aggregation.New(cfg.Aggregation),
		reconciliation.New(cfg.Reconciliation),
		benchmark.New(cfg.Benchmark, pop),
		pop,
	)

	return p, nil
}

// New builds the pipeline and registers it on a Temporal worker bound to
// the pipeline task queue.
func New(c client.Client, opts Options) (worker.Worker, *Pipeline, error) {
	p, err := BuildPipeline(opts)
	if err != nil {
		return nil, nil, err
	}

	w := worker.New(c, TaskQueue, worker.Options{})
	Register(w, p)
	return w, p, nil
}

// Register registers the workflow and activities on the worker.
func Register(w worker.Worker, p *Pipeline) {
	w.RegisterWorkflow(workflow.ProcessDocumentWorkflow)
	w.RegisterActivity(p.Activities.AnalyzeDocument)
	w.RegisterActivity(p.Activities.AggregateBatch)
	w.RegisterActivity(p.Activities.ReconcileInvoice)
	w.RegisterActivity(p.Activities.BenchmarkContract)
}
