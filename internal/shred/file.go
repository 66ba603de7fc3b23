package shred

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/afero"

	"shred-sage/internal/fsops"
)

// eraseFile destroys a single regular file: rotate its name, overwrite it
// with every pass, truncate it to its original size and unlink it.
// The caller holds a limiter slot.
func (e *Engine) eraseFile(path string) error {
	start := time.Now()

	fi, err := fsops.Lstat(e.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return wrap("erase", path, "stat failed", err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}
	size := fi.Size()

	rotated, err := e.rotator.Rotate(path)
	if err != nil {
		return err
	}

	f, err := e.fs.OpenFile(rotated, os.O_RDWR, 0)
	if err != nil {
		return wrap("erase", path, "open failed", err)
	}
	unlock, err := fsops.LockExclusive(f)
	if err != nil {
		f.Close()
		return wrap("erase", path, "lock failed", err)
	}

	err = e.overwrite(f, size)
	if uerr := unlock(); err == nil && uerr != nil {
		err = fmt.Errorf("unlock: %w", uerr)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	if err != nil {
		return wrap("erase", path, "overwrite failed, renamed to "+rotated, err)
	}

	if err := e.fs.Remove(rotated); err != nil {
		return wrap("erase", path, "remove failed, renamed to "+rotated, err)
	}

	e.obs.FileErased(size, time.Since(start))
	return nil
}

// overwrite runs the passes over size plus the margin, then cuts the file
// back to size.
func (e *Engine) overwrite(f afero.File, size int64) error {
	if err := e.runPasses(f, size+e.margin); err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}
