package shred

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shred-sage/internal/fsops"
	"shred-sage/internal/limiter"
)

func mkfile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func osEngine(t *testing.T, opts Options) (*Engine, *fsops.RecordingFs) {
	t.Helper()
	opts.Fs = fsops.NewRecordingFs(afero.NewOsFs())
	return newRecordingEngine(t, opts)
}

func TestShredEmptyDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(root, 0o755))
	obs := &countingObserver{}
	e, rfs := osEngine(t, Options{Observer: obs})

	require.NoError(t, e.SecureDeleteDirectory(root))

	assert.Empty(t, rfs.Filter("write"))
	assert.Len(t, rfs.Filter("rename"), DefaultRenameCount)
	assert.Len(t, rfs.Filter("removeall"), 1)
	assert.NoDirExists(t, root)
	assert.Equal(t, 1, obs.dirs)
}

func TestShredNestedDirectoryOrder(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	mkfile(t, filepath.Join(root, "a", "b", "f1"), "one")
	mkfile(t, filepath.Join(root, "a", "f2"), "two")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "c"), 0o755))

	obs := &countingObserver{}
	e, rfs := osEngine(t, Options{Observer: obs})
	require.NoError(t, e.SecureDeleteDirectory(root))

	assert.NoDirExists(t, root)
	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)

	dirs := map[string]bool{
		root:                          true,
		filepath.Join(root, "a"):      true,
		filepath.Join(root, "a", "b"): true,
		filepath.Join(root, "c"):      true,
	}
	events := rfs.Events()
	lastWrite := -1
	var firstDirRename int = -1
	var order []string
	for i, ev := range events {
		if ev.Op == "write" {
			lastWrite = i
		}
		if ev.Op == "rename" && dirs[ev.Path] {
			if firstDirRename < 0 {
				firstDirRename = i
			}
			order = append(order, ev.Path)
		}
	}
	assert.Less(t, lastWrite, firstDirRename, "every file is erased before any directory is touched")
	assert.Equal(t, []string{
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "a"),
		filepath.Join(root, "c"),
		root,
	}, order)

	assert.Equal(t, 2, obs.files)
	assert.Equal(t, 4, obs.dirs)
	assert.Zero(t, obs.fallback)
}

func TestShredDirectoryDoesNotFollowSymlinks(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "outside.txt")
	mkfile(t, outside, "keep me")
	root := filepath.Join(base, "root")
	mkfile(t, filepath.Join(root, "inner.txt"), "erase me")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))
	require.NoError(t, os.Symlink(base, filepath.Join(root, "dirlink")))

	e, _ := osEngine(t, Options{})
	require.NoError(t, e.SecureDeleteDirectory(root))

	assert.NoDirExists(t, root)
	data, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestShredFileRefusesSymlink(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "target")
	mkfile(t, target, "keep")
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(target, link))

	e, rfs := osEngine(t, Options{})
	assert.ErrorIs(t, e.SecureDeleteFile(link), ErrNotFound)
	assert.Zero(t, rfs.Mutations())
	assert.FileExists(t, target)
}

func TestShredDirectoryRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	mkfile(t, path, "x")

	e, rfs := osEngine(t, Options{})
	assert.ErrorIs(t, e.SecureDeleteDirectory(path), ErrNotFound)
	assert.ErrorIs(t, e.SecureDeleteDirectory(path+"-missing"), ErrNotFound)
	assert.Zero(t, rfs.Mutations())
}

func TestDirectoryRotationFallback(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	sub := filepath.Join(root, "sub")
	mkfile(t, filepath.Join(sub, "f"), "data")

	obs := &countingObserver{}
	e, rfs := osEngine(t, Options{Observer: obs})
	rfs.Fail = func(ev fsops.Event) error {
		if ev.Op == "rename" && ev.Path == sub {
			return assert.AnError
		}
		return nil
	}

	require.NoError(t, e.SecureDeleteDirectory(root))
	assert.NoDirExists(t, root)

	var removedSub bool
	for _, ev := range rfs.Filter("remove") {
		if ev.Path == sub {
			removedSub = true
		}
	}
	assert.True(t, removedSub, "sub is removed under its original name")
	assert.Equal(t, 1, obs.fallback)
	assert.Equal(t, 2, obs.dirs)
}

func TestDirectoryRemoveFailureIsFatal(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	mkfile(t, filepath.Join(root, "f"), "data")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	obs := &countingObserver{}
	e, rfs := osEngine(t, Options{Observer: obs})
	rfs.Fail = func(ev fsops.Event) error {
		if ev.Op != "remove" {
			return nil
		}
		if fi, err := os.Lstat(ev.Path); err == nil && fi.IsDir() {
			return assert.AnError
		}
		return nil
	}

	err := e.SecureDeleteDirectory(root)
	require.Error(t, err)
	assert.Equal(t, "remove", OpOf(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, obs.files)
	assert.Equal(t, []string{"remove"}, obs.failed)
}

func TestDirectoryCollectsEveryFileFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	mkfile(t, filepath.Join(root, "bad1"), "x")
	mkfile(t, filepath.Join(root, "bad2"), "x")
	mkfile(t, filepath.Join(root, "good"), "x")

	e, rfs := osEngine(t, Options{})
	rfs.Fail = func(ev fsops.Event) error {
		if ev.Op == "rename" && (filepath.Base(ev.Path) == "bad1" || filepath.Base(ev.Path) == "bad2") {
			return assert.AnError
		}
		return nil
	}

	err := e.SecureDeleteDirectory(root)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.DirExists(t, root)
	assert.NoFileExists(t, filepath.Join(root, "good"))
}

func TestDirectoryLimiterBoundsWorkers(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	for i := 0; i < 12; i++ {
		mkfile(t, filepath.Join(root, "d", string(rune('a'+i))), "some bytes")
	}

	lim := limiter.NewWorkerLimiter(2)
	e, _ := osEngine(t, Options{Limiter: lim})
	require.NoError(t, e.SecureDeleteDirectory(root))

	assert.LessOrEqual(t, lim.Peak(), 2)
	assert.Positive(t, lim.Peak())
	assert.Zero(t, lim.Active())
	assert.NoDirExists(t, root)
}
