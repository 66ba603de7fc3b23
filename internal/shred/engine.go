// Package shred irrecoverably erases files and directory trees: every file
// is overwritten with a fixed sequence of passes, renamed through random
// names, truncated and unlinked, and directories are removed bottom-up.
package shred

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/spf13/afero"

	"shred-sage/internal/fsops"
	"shred-sage/internal/limiter"
	"shred-sage/internal/logging"
	"shred-sage/internal/pattern"
)

const (
	// DefaultBlockSize is the chunk size of every write
	DefaultBlockSize = pattern.DefaultBlockSize
	// DefaultExtraMargin is written past the end of each file on every pass
	DefaultExtraMargin = 4096
	// DefaultWorkers bounds concurrent file erasures
	DefaultWorkers = limiter.DefaultCapacity
)

// Options configures an Engine. Zero values select the defaults and
// negative values are rejected by New.
type Options struct {
	// BlockSize is the write chunk size; 0 means DefaultBlockSize.
	BlockSize int
	// ExtraMargin is written past EOF on every pass; 0 means
	// DefaultExtraMargin, so a margin cannot be switched off.
	ExtraMargin int64
	// Workers bounds concurrent file erasures; 0 means DefaultWorkers.
	Workers int
	// RenameCount is the number of name rotations; 0 means DefaultRenameCount.
	RenameCount int
	// Extensions disguise rotated names; empty means DefaultExtensions.
	Extensions []string

	// Fs is the filesystem to operate on; defaults to the OS filesystem.
	Fs afero.Fs
	// Random supplies every random byte; defaults to crypto/rand.Reader.
	// It must be safe for concurrent use.
	Random io.Reader
	// Limiter, when set, is shared with other engines in the process and
	// Workers is ignored. Observer hooks of every engine on it stay registered.
	Limiter *limiter.WorkerLimiter

	Logger      *log.Logger
	Observer    Observer
	RedactPaths bool
}

// Engine owns everything a shred needs. Create one with New and release it
// with Close.
type Engine struct {
	fs      afero.Fs
	random  io.Reader
	catalog *pattern.Catalog
	rotator *Rotator
	limiter *limiter.WorkerLimiter
	margin  int64
	log     Logger
	obs     Observer
	redact  bool

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.BlockSize < 0 || opts.ExtraMargin < 0 || opts.Workers < 0 || opts.RenameCount < 0 {
		return nil, fmt.Errorf("%w: negative engine option", ErrInvalidArgument)
	}
	for _, ext := range opts.Extensions {
		if ext == "" {
			return nil, fmt.Errorf("%w: empty extension", ErrInvalidArgument)
		}
	}

	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.ExtraMargin == 0 {
		opts.ExtraMargin = DefaultExtraMargin
	}
	if opts.Fs == nil {
		opts.Fs = fsops.NewOS()
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}
	if opts.Limiter == nil {
		opts.Limiter = limiter.NewWorkerLimiter(opts.Workers)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	} else {
		opts.Limiter.OnChange(opts.Observer.WorkersActive)
	}

	catalog := pattern.Default
	if opts.BlockSize != pattern.DefaultBlockSize {
		catalog = pattern.NewCatalog(opts.BlockSize)
	}

	return &Engine{
		fs:      opts.Fs,
		random:  opts.Random,
		catalog: catalog,
		rotator: NewRotator(opts.Fs, opts.Random, opts.RenameCount, opts.Extensions),
		limiter: opts.Limiter,
		margin:  opts.ExtraMargin,
		log:     &stdLogger{Logger: opts.Logger},
		obs:     opts.Observer,
		redact:  opts.RedactPaths,
	}, nil
}

// Passes returns the number of overwrite passes applied to every file
func (e *Engine) Passes() int { return e.catalog.Passes() }

// SecureDeleteFile erases a single regular file.
func (e *Engine) SecureDeleteFile(path string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.deleteFile(path)
}

// SecureDeleteDirectory erases every file under path and removes the tree.
func (e *Engine) SecureDeleteDirectory(path string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.deleteDirectory(path)
}

// SecureDeleteFileAsync runs SecureDeleteFile in the background. The channel
// receives exactly one value and is then closed. ctx is only consulted before
// the work starts; a started erasure runs to completion.
func (e *Engine) SecureDeleteFileAsync(ctx context.Context, path string) <-chan error {
	return e.async(ctx, func() error { return e.deleteFile(path) })
}

// SecureDeleteDirectoryAsync is the background form of SecureDeleteDirectory.
func (e *Engine) SecureDeleteDirectoryAsync(ctx context.Context, path string) <-chan error {
	return e.async(ctx, func() error { return e.deleteDirectory(path) })
}

// Close waits for in-flight background work. Later calls fail with ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.inflight.Wait()
	return nil
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

func (e *Engine) async(ctx context.Context, fn func() error) <-chan error {
	ch := make(chan error, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		ch <- ErrClosed
		close(ch)
		return ch
	}
	e.inflight.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.inflight.Done()
		defer close(ch)
		if err := ctx.Err(); err != nil {
			ch <- err
			return
		}
		ch <- fn()
	}()
	return ch
}

func (e *Engine) deleteFile(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty file path", ErrInvalidArgument)
	}

	release, err := e.limiter.Acquire(context.Background())
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	if err := e.eraseFile(path); err != nil {
		e.fail("file", path, err)
		return err
	}
	e.log.Info("file erased", "path", e.pathField(path), "passes", e.catalog.Passes(),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (e *Engine) deleteDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty directory path", ErrInvalidArgument)
	}

	start := time.Now()
	if err := e.shredDirectory(path); err != nil {
		e.fail("directory", path, err)
		return err
	}
	e.log.Info("directory shredded", "path", e.pathField(path),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (e *Engine) fail(object, path string, err error) {
	op := OpOf(err)
	if op == "" {
		op = "validate"
	}
	e.obs.OperationFailed(op)
	e.log.Error(object+" shred failed", "path", e.pathField(path), "op", op, "error", e.errField(err))
}

// errField keeps paths embedded in error text out of redacted logs
func (e *Engine) errField(err error) string {
	if !e.redact {
		return err.Error()
	}
	if kind, ok := KindOf(err); ok {
		return kind.String()
	}
	return "invalid target"
}

func (e *Engine) pathField(path string) string {
	return logging.PathField(path, e.redact)
}
