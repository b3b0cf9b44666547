// Command docpipe runs the procurement document pipeline: a Temporal
// worker for production, and a local one-shot mode for development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	temporalworker "go.temporal.io/sdk/worker"

	"github.com/procurant/docpipe/internal/activity"
	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
	"github.com/procurant/docpipe/internal/worker"
	"github.com/procurant/docpipe/pkg/events"
)

var (
	configPath       string
	verbose          bool
	temporalHostPort string
	scoreDBPath      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docpipe",
		Short: "Procurement document intelligence pipeline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional; local development convenience only.
			_ = godotenv.Load()
			setupLogging()
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&scoreDBPath, "score-db", "docpipe-scores.db", "path to the benchmark score database")

	root.AddCommand(newWorkerCmd())
	root.AddCommand(newProcessCmd())
	return root
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal pipeline worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Production retries spread out under contention.
			cfg.Orchestrator.Backoff.UseJitter = true

			c, err := client.Dial(client.Options{HostPort: temporalHostPort})
			if err != nil {
				return fmt.Errorf("connect temporal: %w", err)
			}
			defer c.Close()

			w, pipeline, err := worker.New(c, worker.Options{
				Config:      cfg,
				Logger:      slog.Default(),
				EventSink:   events.NewNoOpEventSink(),
				ScoreDBPath: scoreDBPath,
			})
			if err != nil {
				return err
			}
			defer func() { _ = pipeline.Close() }()

			slog.Info("worker starting",
				"task_queue", worker.TaskQueue,
				"agents", pipeline.Registry.Len())
			return w.Run(temporalworker.InterruptCh())
		},
	}
	cmd.Flags().StringVar(&temporalHostPort, "temporal", client.DefaultHostPort, "Temporal server host:port")
	return cmd
}

func newProcessCmd() *cobra.Command {
	var invoicePath string

	cmd := &cobra.Command{
		Use:   "process <document-file>",
		Short: "Run the pipeline locally against one document",
		Long: "Runs analysis, aggregation, benchmarking, and (with --invoice)\n" +
			"reconciliation directly in-process, without Temporal. Uses the\n" +
			"configured completion provider; the default heuristic provider\n" +
			"needs no credentials.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sink := events.NewMemorySink()
			pipeline, err := worker.BuildPipeline(worker.Options{
				Config:      cfg,
				Logger:      slog.Default(),
				EventSink:   sink,
				ScoreDBPath: scoreDBPath,
			})
			if err != nil {
				return err
			}
			defer func() { _ = pipeline.Close() }()

			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out, err := runLocal(ctx, pipeline, doc, invoicePath)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&invoicePath, "invoice", "", "path to a JSON invoice to reconcile against")
	return cmd
}

// localResult mirrors the workflow output for the one-shot mode.
type localResult struct {
	Record         domain.ContractRecord        `json:"record"`
	Benchmark      *domain.BenchmarkReport      `json:"benchmark,omitempty"`
	Reconciliation *domain.ReconciliationReport `json:"reconciliation,omitempty"`
}

// runLocal drives the activities in workflow order without Temporal.
func runLocal(ctx context.Context, pipeline *worker.Pipeline, doc domain.Document, invoicePath string) (*localResult, error) {
	acts := pipeline.Activities

	analyzed, err := acts.AnalyzeDocument(ctx, activity.AnalyzeInput{Document: doc})
	if err != nil {
		return nil, err
	}

	aggregated, err := acts.AggregateBatch(ctx, activity.AggregateInput{
		Batch:    analyzed.Batch,
		Document: doc,
	})
	if err != nil {
		return nil, err
	}

	result := &localResult{Record: aggregated.Record}

	benched, err := acts.BenchmarkContract(ctx, activity.BenchmarkInput{Record: aggregated.Record})
	if err != nil {
		return nil, err
	}
	result.Benchmark = &benched.Report

	if invoicePath != "" {
		invoice, err := readInvoice(invoicePath)
		if err != nil {
			return nil, err
		}
		reconciled, err := acts.ReconcileInvoice(ctx, activity.ReconcileInput{
			Record:  aggregated.Record,
			Invoice: invoice,
		})
		if err != nil {
			return nil, err
		}
		result.Reconciliation = &reconciled.Report
	}

	return result, nil
}

// readDocument loads a plain-text contract from disk. The file name (sans
// extension) becomes the document ID.
func readDocument(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read document: %w", err)
	}

	base := filepath.Base(path)
	id := base[:len(base)-len(filepath.Ext(base))]

	return domain.Document{
		ID:   id,
		Kind: domain.DocumentContract,
		Text: string(data),
	}, nil
}

func readInvoice(path string) (domain.InvoiceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.InvoiceRecord{}, fmt.Errorf("read invoice: %w", err)
	}
	var invoice domain.InvoiceRecord
	if err := json.Unmarshal(data, &invoice); err != nil {
		return domain.InvoiceRecord{}, fmt.Errorf("parse invoice: %w", err)
	}
	return invoice, nil
}
