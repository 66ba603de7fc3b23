package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shred-sage/internal/config"
)

const (
	defaultLogDir = "/var/log/shred-sage"
	logFile       = "shred.log"
)

// New creates a logger writing to stdout and the default log directory
func New() *log.Logger {
	return NewWithConfig(nil)
}

// NewWithConfig creates a logger with the configured directory and rotation
func NewWithConfig(cfg *config.Config) *log.Logger {
	return NewWithOutput(os.Stdout, cfg)
}

// NewWithOutput is NewWithConfig with console output sent to stdout instead
// of os.Stdout. The log file is always written.
func NewWithOutput(stdout io.Writer, cfg *config.Config) *log.Logger {
	dir := defaultLogDir
	rotateDays := 30
	if cfg != nil {
		if cfg.Logging.Dir != "" {
			dir = cfg.Logging.Dir
		}
		if cfg.Logging.RotationDays > 0 {
			rotateDays = cfg.Logging.RotationDays
		}
	}
	return newLogger(stdout, dir, rotateDays)
}

func newLogger(stdout io.Writer, dir string, rotateDays int) *log.Logger {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.Printf("failed to ensure log directory %s: %v", dir, err)
	}

	filePath := filepath.Join(dir, logFile)
	rotateLogsIfNeeded(filePath, rotateDays)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		log.Printf("failed to open log file %s: %v", filePath, err)
		return log.New(stdout, "", log.LstdFlags|log.Lmicroseconds)
	}

	mw := io.MultiWriter(stdout, f)
	return log.New(mw, "", log.LstdFlags|log.Lmicroseconds)
}

// PathField returns path for a log line or history record. With redact set
// it returns a stable sha256 fingerprint so erased names do not survive in
// the tool's own output.
func PathField(path string, redact bool) string {
	if !redact {
		return path
	}
	sum := sha256.Sum256([]byte(path))
	return "sha256:" + hex.EncodeToString(sum[:8])
}

// rotateLogsIfNeeded renames the log once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	if !info.ModTime().Before(cutoffTime) {
		return
	}

	rotatedPath := logPath + "." + info.ModTime().Format("20060102-150405")
	if err := os.Rename(logPath, rotatedPath); err != nil {
		log.Printf("failed to rotate log file: %v", err)
		return
	}

	cleanupOldLogs(logPath, rotationDays)
}

// cleanupOldLogs removes rotated logs older than rotationDays
func cleanupOldLogs(logPath string, rotationDays int) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
