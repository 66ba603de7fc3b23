package cleanup

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"shred-sage/internal/database"
	"shred-sage/internal/disk"
	"shred-sage/internal/logging"
	"shred-sage/internal/metrics"
	"shred-sage/internal/safety"
	"shred-sage/internal/scan"
	"shred-sage/internal/shred"
)

// ErrRejected marks a candidate the safety validator refused
var ErrRejected = errors.New("rejected by safety validator")

// CleanupLogger interface for structured logging in cleanup
type CleanupLogger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// cleanupStdLogger wraps standard log.Logger to implement CleanupLogger interface
type cleanupStdLogger struct {
	*log.Logger
}

func (l *cleanupStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *cleanupStdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *cleanupStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *cleanupStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Shredder is the part of the erasure engine the cleaner drives
type Shredder interface {
	SecureDeleteFile(path string) error
	SecureDeleteDirectory(path string) error
	Passes() int
}

// Validator decides whether a candidate may be shredded
type Validator interface {
	ValidateShredTarget(path string) error
}

// History stores one record per processed candidate
type History interface {
	RecordErasure(rec database.ErasureRecord) error
}

// Metrics interface for cleanup metrics
type Metrics interface {
	SafetyRejection(reason string)
	FilesystemWarning(kind string)
	HistoryError()
}

// cleanupMetrics forwards to the global Prometheus collectors
type cleanupMetrics struct{}

func (cleanupMetrics) SafetyRejection(reason string) { metrics.RecordSafetyRejection(reason) }
func (cleanupMetrics) FilesystemWarning(kind string) { metrics.RecordFilesystemWarning(kind) }
func (cleanupMetrics) HistoryError()                 { metrics.ErrorsTotal.Inc() }

// Result summarises one pass over a candidate list
type Result struct {
	Shredded int
	DryRun   int
	Skipped  int
	Failed   int
	Bytes    int64
}

// Cleaner validates candidates, shreds them and records what happened
type Cleaner struct {
	logger    CleanupLogger
	metrics   Metrics
	shredder  Shredder
	validator Validator
	history   History
	classify  func(path string) (disk.Info, error)
	logFile   *os.File // Optional file for structured logging
	dryRun    bool
	redact    bool
	// tolerateVanished treats a candidate that disappeared before it could
	// be shredded as already handled. Spool mode races with producers.
	tolerateVanished bool
	runID            string
}

// NewCleaner creates a new Cleaner instance. history may be nil.
func NewCleaner(logger *log.Logger, logFile *os.File, dryRun bool, shredder Shredder, history History) *Cleaner {
	cleanupLogger := &cleanupStdLogger{Logger: logger}
	if logger == nil {
		cleanupLogger.Logger = log.Default()
	}
	return &Cleaner{
		logger:    cleanupLogger,
		metrics:   cleanupMetrics{},
		shredder:  shredder,
		validator: safety.NewValidator(nil, nil),
		history:   history,
		classify:  disk.Classify,
		logFile:   logFile,
		dryRun:    dryRun,
		runID:     uuid.NewString(),
	}
}

// SetValidator replaces the default validator (built-in protected paths only)
func (c *Cleaner) SetValidator(v Validator) { c.validator = v }

// SetShredder replaces the erasure engine
func (c *Cleaner) SetShredder(s Shredder) { c.shredder = s }

// SetClassifier replaces the filesystem advisor
func (c *Cleaner) SetClassifier(fn func(path string) (disk.Info, error)) { c.classify = fn }

// SetRedactPaths logs and records path fingerprints instead of names
func (c *Cleaner) SetRedactPaths(redact bool) { c.redact = redact }

// SetTolerateVanished makes a candidate that no longer exists a no-op
func (c *Cleaner) SetTolerateVanished(tolerate bool) { c.tolerateVanished = tolerate }

// RunID identifies every history record written by this cleaner
func (c *Cleaner) RunID() string { return c.runID }

// Process handles each candidate in order. The returned error aggregates
// every rejection and failure; processing never stops early.
func (c *Cleaner) Process(candidates []scan.Candidate) (Result, error) {
	c.logger.Info("Starting shred run", "run_id", c.runID, "total_candidates", len(candidates), "dry_run", c.dryRun)

	var (
		res     Result
		errs    *multierror.Error
		advised = make(map[string]bool)
	)

	for _, cand := range candidates {
		objectType := "file"
		if cand.IsDir {
			objectType = "directory"
		}

		if err := c.validator.ValidateShredTarget(cand.Path); err != nil {
			reason := rejectionReason(err)
			c.logStructured(database.ActionSkip, cand.Path, objectType, cand.Size, reason)
			c.record(cand, objectType, database.ActionSkip, 0, func(rec *database.ErasureRecord) {
				rec.ErrorKind = "rejected"
				rec.ErrorMessage = reason
			})
			c.metrics.SafetyRejection(reason)
			res.Skipped++
			errs = multierror.Append(errs, fmt.Errorf("%w: %s: %w", ErrRejected, c.pathField(cand.Path), err))
			continue
		}

		c.advise(cand.Path, advised)

		if c.dryRun {
			c.logger.Info("[DRY RUN] Would shred "+objectType, "path", c.pathField(cand.Path), "size", cand.Size)
			c.logStructured(database.ActionDryRun, cand.Path, objectType, cand.Size, "")
			c.record(cand, objectType, database.ActionDryRun, 0, nil)
			res.DryRun++
			continue
		}

		start := time.Now()
		var err error
		if cand.IsDir {
			err = c.shredder.SecureDeleteDirectory(cand.Path)
		} else {
			err = c.shredder.SecureDeleteFile(cand.Path)
		}
		elapsed := time.Since(start)

		if err != nil {
			if c.tolerateVanished && errors.Is(err, shred.ErrNotFound) {
				c.logger.Info("Candidate already gone", "path", c.pathField(cand.Path))
				continue
			}

			kind := errorKind(err)
			c.logStructured(database.ActionError, cand.Path, objectType, cand.Size, kind)
			c.record(cand, objectType, database.ActionError, elapsed, func(rec *database.ErasureRecord) {
				rec.ErrorKind = kind
				rec.Operation = shred.OpOf(err)
				if !c.redact {
					rec.ErrorMessage = err.Error()
				}
			})
			res.Failed++
			errs = multierror.Append(errs, err)
			continue
		}

		c.logStructured(database.ActionShred, cand.Path, objectType, cand.Size, "")
		c.record(cand, objectType, database.ActionShred, elapsed, func(rec *database.ErasureRecord) {
			rec.Passes = c.shredder.Passes()
		})
		res.Shredded++
		res.Bytes += cand.Size
	}

	c.logger.Info("Shred run complete",
		"run_id", c.runID,
		"shredded", res.Shredded,
		"dry_run", res.DryRun,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"bytes", res.Bytes,
	)
	return res, errs.ErrorOrNil()
}

// advise warns once per directory when overwriting in place is unreliable
func (c *Cleaner) advise(path string, seen map[string]bool) {
	if c.classify == nil {
		return
	}
	dir := filepath.Dir(path)
	if seen[dir] {
		return
	}
	seen[dir] = true

	info, err := c.classify(dir)
	if err != nil {
		c.logger.Warn("Failed to classify filesystem", "path", c.pathField(dir), "error", err)
	}
	if msg := info.Warning(); msg != "" {
		c.logger.Warn("Overwrite may not reach original blocks", "path", c.pathField(dir), "filesystem", info.Name, "detail", msg)
		c.metrics.FilesystemWarning(string(info.Kind))
	}
}

func (c *Cleaner) record(cand scan.Candidate, objectType, action string, elapsed time.Duration, fill func(*database.ErasureRecord)) {
	if c.history == nil {
		return
	}
	rec := database.ErasureRecord{
		RunID:      c.runID,
		Timestamp:  time.Now(),
		Action:     action,
		ObjectType: objectType,
		Path:       c.pathField(cand.Path),
		Size:       cand.Size,
		DurationMS: elapsed.Milliseconds(),
	}
	if !c.redact {
		rec.FileName = filepath.Base(cand.Path)
	}
	if fill != nil {
		fill(&rec)
	}
	if err := c.history.RecordErasure(rec); err != nil {
		// Don't fail the run if the history write fails
		c.logger.Error("Failed to record to database", "error", err)
		c.metrics.HistoryError()
	}
}

func (c *Cleaner) pathField(path string) string {
	return logging.PathField(path, c.redact)
}

// logStructured logs with structured format: timestamp, action, path, object type, size, reason
func (c *Cleaner) logStructured(action, path, objectType string, size int64, reason string) {
	logEntry := fmt.Sprintf("[%s] %s path=%s object=%s size=%d",
		time.Now().UTC().Format(time.RFC3339),
		action,
		c.pathField(path),
		objectType,
		size,
	)
	if reason != "" {
		logEntry += fmt.Sprintf(` reason="%s"`, strings.ReplaceAll(reason, `"`, `\"`))
	}

	if c.logFile != nil {
		c.logFile.WriteString(logEntry + "\n")
		c.logFile.Sync()
	}
	c.logger.Info(logEntry)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, safety.ErrProtectedPath):
		return "protected_path"
	case errors.Is(err, safety.ErrOutsideAllowed):
		return "outside_allowed"
	case errors.Is(err, safety.ErrTraversal):
		return "traversal"
	case errors.Is(err, safety.ErrSymlinkEscape):
		return "symlink_escape"
	default:
		return "invalid_path"
	}
}

// errorKind names a shred failure for logs and history without exposing paths
func errorKind(err error) string {
	if kind, ok := shred.KindOf(err); ok {
		return kind.String()
	}
	switch {
	case errors.Is(err, shred.ErrNotFound):
		return shred.KindNotFound.String()
	case errors.Is(err, shred.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, shred.ErrClosed):
		return "closed"
	default:
		return shred.KindErasure.String()
	}
}
