//go:build !unix

package fsops

import "github.com/spf13/afero"

// LockExclusive is a no-op on platforms without flock; exclusivity there
// relies on the platform's default sharing rules for open files.
func LockExclusive(f afero.File) (unlock func() error, err error) {
	return noopUnlock, nil
}
