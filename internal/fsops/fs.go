package fsops

import (
	"os"

	"github.com/spf13/afero"
)

// FS abstracts every filesystem call made by the shredder.
// Enables in-memory and recording filesystems in tests to prove what was
// written, renamed and removed.
type FS = afero.Fs

// NewOS returns the filesystem backed by real os package calls
func NewOS() FS {
	return afero.NewOsFs()
}

// Lstat returns file info without following a trailing symlink when the
// filesystem supports it, and falls back to Stat otherwise.
func Lstat(fs FS, path string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		fi, _, err := l.LstatIfPossible(path)
		return fi, err
	}
	return fs.Stat(path)
}
