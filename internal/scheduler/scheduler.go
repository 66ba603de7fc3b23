package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"shred-sage/internal/cleanup"
	"shred-sage/internal/config"
	"shred-sage/internal/fsops"
	"shred-sage/internal/metrics"
	"shred-sage/internal/safety"
	"shred-sage/internal/scan"
)

// Deps are the long-lived collaborators shared by every spool pass
type Deps struct {
	Fs       afero.Fs
	Shredder cleanup.Shredder
	History  cleanup.History // optional
	Logger   *log.Logger
}

func (d *Deps) defaults() error {
	if d.Shredder == nil {
		return errors.New("nil shredder")
	}
	if d.Fs == nil {
		d.Fs = fsops.NewOS()
	}
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}
	return nil
}

// RunOnce scans every spool path and shreds what is old enough. Failures of
// individual entries are logged and recorded; only a failed scan is returned.
func RunOnce(ctx context.Context, cfg *config.Config, dryRun bool, deps Deps) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := deps.defaults(); err != nil {
		return err
	}
	logger := deps.Logger

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	start := time.Now()

	scanner := scan.NewScanner(deps.Fs, logger)
	candidates, err := scanner.Spool(cfg.Spool.Paths, cfg.MinAge(), cfg.Spool.IncludeDirs, start)
	if err != nil {
		metrics.ErrorsTotal.Inc()
		return err
	}
	updateSpoolMetrics(cfg.Spool.Paths, candidates)

	cleaner := cleanup.NewCleaner(logger, nil, dryRun, deps.Shredder, deps.History)
	cleaner.SetValidator(Validator(cfg))
	cleaner.SetRedactPaths(cfg.Logging.RedactPaths)
	cleaner.SetTolerateVanished(true)

	res, err := cleaner.Process(candidates)
	if err != nil {
		logger.Printf("spool pass finished with errors: %v", err)
	}

	metrics.RecordRun(start)
	logger.Printf("cycle complete: run=%s candidates=%d shredded=%d skipped=%d failed=%d bytes=%d duration=%.3fs",
		cleaner.RunID(), len(candidates), res.Shredded+res.DryRun, res.Skipped, res.Failed, res.Bytes,
		time.Since(start).Seconds())
	return nil
}

// Run performs a pass immediately, then one per interval and one per value
// received on trigger, until ctx is cancelled. trigger may be nil.
func Run(ctx context.Context, cfg *config.Config, dryRun bool, deps Deps, trigger <-chan struct{}) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := deps.defaults(); err != nil {
		return err
	}
	logger := deps.Logger

	if err := RunOnce(ctx, cfg, dryRun, deps); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
		case <-trigger:
			logger.Println("spool pass triggered")
		}
		if err := RunOnce(ctx, cfg, dryRun, deps); err != nil {
			logger.Printf("error running cycle: %v", err)
		}
	}
}

// Validator builds the safety validator for spool mode. Without configured
// allowed roots, only the spool directories themselves are allowed.
func Validator(cfg *config.Config) *safety.Validator {
	allowed := cfg.Safety.AllowedRoots
	if len(allowed) == 0 {
		allowed = cfg.Spool.Paths
	}
	protected := append(append([]string{}, cfg.Safety.ProtectedPaths...), cfg.ProtectedDirs()...)
	return safety.NewValidator(allowed, protected)
}

func updateSpoolMetrics(spools []string, candidates []scan.Candidate) {
	counts := make(map[string]int, len(spools))
	for _, c := range candidates {
		counts[filepath.Dir(c.Path)]++
	}
	for _, s := range spools {
		metrics.SetSpoolCandidates(s, counts[filepath.Clean(s)])
	}
}
