//go:build unix

package fsops

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

type fder interface {
	Fd() uintptr
}

// LockExclusive takes a non-blocking exclusive flock on f. Files that are not
// backed by an OS descriptor (in-memory filesystems) are not locked.
// The lock is advisory: it stops other cooperating processes and other
// shredders, not arbitrary readers.
func LockExclusive(f afero.File) (unlock func() error, err error) {
	d, ok := f.(fder)
	if !ok {
		return noopUnlock, nil
	}
	fd := int(d.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", f.Name(), ErrLocked)
		}
		return nil, fmt.Errorf("flock %s: %w", f.Name(), err)
	}
	return func() error {
		return unix.Flock(fd, unix.LOCK_UN)
	}, nil
}
