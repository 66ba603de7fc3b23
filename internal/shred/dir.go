package shred

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"shred-sage/internal/fsops"
)

// tree is a directory resolved into its leaves
type tree struct {
	files  []string
	others []string // symlinks, sockets, fifos
	dirs   []string // excluding the root
}

// dirStep is the outcome of preparing one directory for removal
type dirStep struct {
	original string
	target   string // name to remove
	rotated  bool
	err      error // rotation failure, when rotated is false
}

func (e *Engine) shredDirectory(root string) error {
	fi, err := fsops.Lstat(e.fs, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return wrap("enumerate", root, "stat failed", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	}

	t, err := e.enumerate(root)
	if err != nil {
		return wrap("enumerate", root, "walk failed", err)
	}

	if len(t.files) == 0 && len(t.others) == 0 {
		rotated, err := e.rotator.Rotate(root)
		if err != nil {
			return err
		}
		if err := e.fs.RemoveAll(rotated); err != nil {
			return wrap("remove", root, "remove tree failed", err)
		}
		e.obs.DirectoryRemoved(false)
		return nil
	}

	if err := e.eraseAll(t.files); err != nil {
		return err
	}

	for _, p := range t.others {
		target, err := e.rotator.rotateEntry(p)
		if err != nil {
			e.log.Warn("rotate failed, unlinking under last name", "path", e.pathField(p), "error", e.errField(err))
		}
		if err := e.fs.Remove(target); err != nil {
			return wrap("remove", p, "unlink failed", err)
		}
	}

	dirs := append(t.dirs, root)
	sort.SliceStable(dirs[:len(dirs)-1], func(i, j int) bool {
		return len(dirs[i]) > len(dirs[j])
	})
	for _, d := range dirs {
		step := e.prepareDir(d)
		if !step.rotated {
			e.log.Warn("directory rotation failed, removing under last name", "path", e.pathField(d), "error", e.errField(step.err))
		}
		if err := e.fs.Remove(step.target); err != nil {
			return wrap("remove", d, "remove directory failed", err)
		}
		e.obs.DirectoryRemoved(!step.rotated)
	}
	return nil
}

// enumerate walks root without following symlinks
func (e *Engine) enumerate(root string) (tree, error) {
	var t tree
	err := afero.Walk(e.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		switch {
		case info.IsDir():
			t.dirs = append(t.dirs, p)
		case info.Mode().IsRegular():
			t.files = append(t.files, p)
		default:
			t.others = append(t.others, p)
		}
		return nil
	})
	return t, err
}

// eraseAll erases every file on its own goroutine, bounded by the shared
// limiter, and returns once all of them have finished.
func (e *Engine) eraseAll(files []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)
	for _, p := range files {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()

			release, err := e.limiter.Acquire(context.Background())
			if err == nil {
				err = e.eraseFile(p)
				release()
			}
			if err != nil {
				e.log.Error("file erase failed", "path", e.pathField(p), "error", e.errField(err))
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	return errs.ErrorOrNil()
}

func (e *Engine) prepareDir(path string) dirStep {
	rotated, err := e.rotator.Rotate(path)
	if err != nil {
		return dirStep{original: path, target: rotated, err: err}
	}
	return dirStep{original: path, target: rotated, rotated: true}
}
