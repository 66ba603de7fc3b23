package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"shred-sage/internal/cleanup"
	"shred-sage/internal/config"
	"shred-sage/internal/database"
	"shred-sage/internal/exitcodes"
	"shred-sage/internal/logging"
	"shred-sage/internal/metrics"
	"shred-sage/internal/safety"
	"shred-sage/internal/shred"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "shred-sage",
	Short:         "Irrecoverably erase files and directory trees",
	Long:          "shred-sage overwrites files with a fixed ten-pass sequence, scrubs their names and removes them. It can also watch spool directories and shred what is dropped there.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to the console as well as the log file")

	rootCmd.AddCommand(eraseCmd, daemonCmd, historyCmd)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitError carries the process exit status out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitcodes.Success
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra usage errors: unknown flags, wrong argument counts
	return exitcodes.InvalidTarget
}

// codeForRun maps the aggregate error of a shred run to an exit status.
// A safety rejection outranks other failures, which outrank bad targets.
func codeForRun(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.Is(err, cleanup.ErrRejected):
		return exitcodes.SafetyViolation
	}

	code := exitcodes.InvalidTarget
	for _, e := range flatten(err) {
		if !errors.Is(e, shred.ErrNotFound) && !errors.Is(e, shred.ErrInvalidArgument) {
			code = exitcodes.RuntimeError
		}
	}
	return code
}

func flatten(err error) []error {
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		return u.Unwrap()
	}
	if m, ok := err.(interface{ WrappedErrors() []error }); ok {
		return m.WrappedErrors()
	}
	return []error{err}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, withCode(exitcodes.InvalidConfig, fmt.Errorf("failed to load config: %w", err))
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	var console io.Writer = io.Discard
	if verbose {
		console = os.Stdout
	}
	return logging.NewWithOutput(console, cfg)
}

func newEngine(cfg *config.Config, logger *log.Logger) (*shred.Engine, error) {
	engine, err := shred.New(shred.Options{
		BlockSize:   cfg.Shred.BlockSize,
		ExtraMargin: cfg.Shred.ExtraMargin,
		Workers:     cfg.Shred.Workers,
		RenameCount: cfg.Shred.RenameCount,
		Extensions:  cfg.Shred.Extensions,
		Logger:      logger,
		Observer:    metrics.ShredObserver{},
		RedactPaths: cfg.Logging.RedactPaths,
	})
	if err != nil {
		return nil, withCode(exitcodes.InvalidConfig, fmt.Errorf("failed to create engine: %w", err))
	}
	return engine, nil
}

func newValidator(cfg *config.Config) *safety.Validator {
	protected := append(append([]string{}, cfg.Safety.ProtectedPaths...), cfg.ProtectedDirs()...)
	return safety.NewValidator(cfg.Safety.AllowedRoots, protected)
}

// openHistory opens the erasure history. A missing or unwritable database
// is not fatal to an interactive erase.
func openHistory(cfg *config.Config, logger *log.Logger) *database.ErasureDB {
	db, err := database.NewErasureDB(cfg.DatabasePath)
	if err != nil {
		logger.Printf("[WARN] erasure history disabled: %v", err)
		return nil
	}
	return db
}
