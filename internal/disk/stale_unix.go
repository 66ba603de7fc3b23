//go:build unix

package disk

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// IsStale reports whether path looks like a hung or stale network mount:
// a stat that does not return within timeout, or one failing with
// EIO, ESTALE or ENXIO.
func IsStale(path string, timeout time.Duration) bool {
	done := make(chan error, 1)
	go func() {
		_, err := os.Stat(path)
		done <- err
	}()

	select {
	case err := <-done:
		return err != nil && (os.IsTimeout(err) ||
			errors.Is(err, unix.EIO) ||
			errors.Is(err, unix.ESTALE) ||
			errors.Is(err, unix.ENXIO))
	case <-time.After(timeout):
		return true
	}
}
