package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/retention"
	"github.com/hyperengineering/statarr/internal/sonarr"
	"github.com/hyperengineering/statarr/internal/store"
	"github.com/hyperengineering/statarr/internal/worker"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled analysis and retention pruning",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	namespace := resolveNamespace(cfg)
	slog.Info("configuration loaded", "namespace", namespace)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	var wg sync.WaitGroup

	// Retention worker always runs.
	retentionWorker := worker.NewRetentionWorker(
		retention.NewService(db),
		namespace,
		cfg.Retention.DaysToKeep,
		time.Duration(cfg.Retention.Interval),
	)
	startWorker(ctx, &wg, "retention", retentionWorker.Run)

	// Analysis worker needs stored credentials; without them the daemon
	// still prunes, it just cannot ingest.
	creds, err := openSecrets(cfg, db).Load(ctx, namespace)
	switch {
	case err == nil:
		client, err := sonarr.NewClient(creds.BaseURL, creds.APIKey,
			time.Duration(cfg.Sonarr.Timeout), cfg.Sonarr.MaxRetries)
		if err != nil {
			db.Close()
			return err
		}
		runner := worker.NewAnalysisRunner(client, db, namespace,
			cfg.Analysis.ZThreshold, cfg.Analysis.AbsoluteThresholdMB)
		analysisWorker := worker.NewAnalysisWorker(runner, time.Duration(cfg.Analysis.Interval))
		startWorker(ctx, &wg, "analysis", analysisWorker.Run)
	case errors.Is(err, store.ErrSecretNotFound):
		slog.Warn("no credentials stored; analysis worker disabled",
			"namespace", namespace)
	default:
		db.Close()
		return fmt.Errorf("load credentials: %w", err)
	}

	// Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// Wait for workers to complete
	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// startWorker launches a background worker goroutine that respects context
// cancellation. Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
