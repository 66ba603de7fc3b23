package scan

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"shred-sage/internal/fsops"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	parts := []interface{}{fmt.Sprintf("[%s]", level), msg}
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Candidate is a spool entry old enough to be shredded
type Candidate struct {
	Path    string
	Size    int64 // total of regular files for directories
	ModTime time.Time
	IsDir   bool
	Age     time.Duration
}

// Scanner lists shred candidates in spool directories
type Scanner struct {
	fs     afero.Fs
	logger Logger
}

// NewScanner creates a Scanner; a nil logger discards output
func NewScanner(fsys afero.Fs, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Scanner{fs: fsys, logger: &stdLogger{Logger: logger}}
}

// Spool lists the direct children of each spool path that are at least
// minAge old, oldest first. Symlinks and special files are skipped.
func Spool(fsys afero.Fs, paths []string, minAge time.Duration, includeDirs bool, now time.Time) ([]Candidate, error) {
	return NewScanner(fsys, nil).Spool(paths, minAge, includeDirs, now)
}

// Spool is the Scanner form of the package-level Spool
func (s *Scanner) Spool(paths []string, minAge time.Duration, includeDirs bool, now time.Time) ([]Candidate, error) {
	var all []Candidate
	for _, root := range paths {
		found, err := s.scanSpool(root, minAge, includeDirs, now)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spool %s: %w", root, err)
		}
		all = append(all, found...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ModTime.Before(all[j].ModTime)
	})
	return all, nil
}

func (s *Scanner) scanSpool(root string, minAge time.Duration, includeDirs bool, now time.Time) ([]Candidate, error) {
	entries, err := afero.ReadDir(s.fs, root)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, info := range entries {
		path := filepath.Join(root, info.Name())

		c := Candidate{Path: path, Size: info.Size(), ModTime: info.ModTime()}
		switch {
		case info.Mode().IsRegular():
		case info.IsDir():
			if !includeDirs {
				continue
			}
			c.IsDir = true
			// A directory is only as old as its newest entry, so a job
			// still being written is left alone.
			if c.Size, c.ModTime, err = s.treeStats(path); err != nil {
				s.logger.Warn("Failed to inspect spool directory", "path", path, "error", err)
				continue
			}
		default:
			s.logger.Warn("Skipping non-regular spool entry", "path", path, "mode", info.Mode().String())
			continue
		}

		c.Age = now.Sub(c.ModTime)
		if c.Age < minAge {
			continue
		}
		candidates = append(candidates, c)
	}

	s.logger.Info("Spool scan complete", "path", root, "entries", len(entries), "candidates_found", len(candidates))
	return candidates, nil
}

// Describe builds a Candidate for an explicitly named target. The final
// component is not followed, so a symlink is reported as neither file nor
// directory and left to the shredder to refuse.
func (s *Scanner) Describe(path string, now time.Time) (Candidate, error) {
	info, err := fsops.Lstat(s.fs, path)
	if err != nil {
		return Candidate{}, err
	}
	c := Candidate{Path: path, Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}
	if c.IsDir {
		if c.Size, c.ModTime, err = s.treeStats(path); err != nil {
			return Candidate{}, fmt.Errorf("failed to inspect %s: %w", path, err)
		}
	}
	c.Age = now.Sub(c.ModTime)
	return c, nil
}

func (s *Scanner) treeStats(dir string) (size int64, newest time.Time, err error) {
	err = afero.Walk(s.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		if info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size, newest, err
}
