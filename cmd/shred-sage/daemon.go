package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shred-sage/internal/cleanup"
	"shred-sage/internal/database"
	"shred-sage/internal/disk"
	"shred-sage/internal/exitcodes"
	"shred-sage/internal/fsops"
	"shred-sage/internal/logging"
	"shred-sage/internal/metrics"
	"shred-sage/internal/scheduler"
)

var (
	daemonDryRun bool
	daemonOnce   bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Shred entries dropped into the configured spool directories",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVarP(&daemonDryRun, "dry-run", "n", false, "Log what would be shredded without modifying anything")
	daemonCmd.Flags().BoolVar(&daemonOnce, "once", false, "Run one spool pass and exit")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForDaemon(); err != nil {
		return withCode(exitcodes.InvalidConfig, err)
	}

	logger := logging.NewWithConfig(cfg)
	logger.Println("shred-sage daemon starting...")
	logger.Printf("Spool paths: %v, interval %s, min age %s", cfg.Spool.Paths, cfg.Interval(), cfg.MinAge())
	if daemonDryRun {
		logger.Println("DRY RUN MODE: nothing will be shredded")
	}

	metrics.Init()

	logger.Printf("Opening erasure database: %s", cfg.DatabasePath)
	db, err := database.NewErasureDB(cfg.DatabasePath)
	if err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("failed to open database: %w", err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	deps := scheduler.Deps{Fs: fsops.NewOS(), Shredder: engine, History: cleanup.History(db), Logger: logger}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if daemonOnce {
		if err := scheduler.RunOnce(ctx, cfg, daemonDryRun, deps); err != nil {
			return withCode(exitcodes.RuntimeError, fmt.Errorf("spool pass failed: %w", err))
		}
		logger.Println("spool pass completed")
		return nil
	}

	hc := metrics.NewHealthChecker(30 * time.Second)
	hc.RegisterComponent("database", db.Ping, 5*time.Second)
	hc.RegisterComponent("spool", func() error { return spoolsReachable(cfg.Spool.Paths) }, 5*time.Second)
	metrics.SetHealthChecker(hc)
	hc.Start()
	defer hc.Stop()

	trigger := make(chan struct{}, 1)
	metrics.SetTriggerChannel(trigger)

	logger.Printf("Starting Prometheus metrics on %s", cfg.PrometheusAddress())
	metrics.StartServer(cfg.PrometheusAddress(), logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metrics.Shutdown(shutdownCtx, logger)
	}()

	err = scheduler.Run(ctx, cfg, daemonDryRun, deps, trigger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("scheduler failed: %w", err))
	}
	logger.Println("shred-sage daemon stopped")
	return nil
}

func spoolsReachable(paths []string) error {
	for _, p := range paths {
		if disk.IsStale(p, 2*time.Second) {
			return fmt.Errorf("%s is on a stale or hung mount", p)
		}
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return fmt.Errorf("%s is not a directory", p)
		}
	}
	return nil
}
