package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"shred-sage/internal/cleanup"
	"shred-sage/internal/exitcodes"
	"shred-sage/internal/fsops"
	"shred-sage/internal/metrics"
	"shred-sage/internal/scan"
)

var eraseDryRun bool

var eraseCmd = &cobra.Command{
	Use:   "erase <path>...",
	Short: "Securely erase files and directories",
	Long:  "Each path is validated, then overwritten, renamed and removed. Directories are erased recursively without following symlinks.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runErase,
}

func init() {
	eraseCmd.Flags().BoolVarP(&eraseDryRun, "dry-run", "n", false, "Validate and report without modifying anything")
}

func runErase(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	metrics.Init()

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	scanner := scan.NewScanner(fsops.NewOS(), logger)
	var candidates []scan.Candidate
	for _, path := range args {
		c, err := scanner.Describe(path, start)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return withCode(exitcodes.InvalidTarget, fmt.Errorf("%s: no such file or directory", path))
			}
			return withCode(exitcodes.RuntimeError, err)
		}
		candidates = append(candidates, c)
	}

	var history cleanup.History
	if db := openHistory(cfg, logger); db != nil {
		defer db.Close()
		history = db
	}

	cleaner := cleanup.NewCleaner(logger, nil, eraseDryRun, engine, history)
	cleaner.SetValidator(newValidator(cfg))
	cleaner.SetRedactPaths(cfg.Logging.RedactPaths)

	res, err := cleaner.Process(candidates)
	metrics.RecordRun(start)

	out := cmd.OutOrStdout()
	if eraseDryRun {
		fmt.Fprintf(out, "dry run: %d would be shredded, %d rejected\n", res.DryRun, res.Skipped)
	} else {
		fmt.Fprintf(out, "shredded %d (%s), rejected %d, failed %d\n", res.Shredded, formatBytes(res.Bytes), res.Skipped, res.Failed)
	}
	return withCode(codeForRun(err), err)
}
