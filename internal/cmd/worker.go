package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/navconv/internal/config"
	"github.com/3leaps/navconv/internal/observability"
	"github.com/3leaps/navconv/pkg/jobs"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the job worker",
	Long: `Run the job worker that processes waiting jobs from the registry.

The worker polls the registry, claims waiting jobs, and drives each one
through the conversion pipeline with bounded retries. Stop with SIGINT or
SIGTERM; in-flight jobs get a grace period to finish.`,
	RunE: runWorker,
}

var workerCount int

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().IntVar(&workerCount, "workers", 0, "Concurrent job runners (0 uses config)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to build pipeline", err)
	}
	defer func() { _ = p.blobs.Close() }()

	orch := jobs.NewOrchestrator(p.converter, p.extractor, p.schemaConv, p.blobs, p.store, logger)

	workers := cfg.Jobs.Workers
	if workerCount > 0 {
		workers = workerCount
	}
	queue := jobs.NewQueue(p.store, orch, jobs.QueueConfig{
		Workers:        workers,
		PollInterval:   cfg.Jobs.PollInterval,
		RetryBaseDelay: cfg.Jobs.RetryBaseDelay,
	}, logger)

	queue.Start(ctx)
	logger.Info("worker started",
		zap.Int("workers", workers),
		zap.String("data_dir", cfg.Jobs.DataDir))

	<-ctx.Done()
	logger.Info("worker stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := queue.Shutdown(shutdownCtx); err != nil {
		return exitError(foundry.ExitSignalInt, "Shutdown timed out", err)
	}
	return nil
}
