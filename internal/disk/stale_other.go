//go:build !unix

package disk

import (
	"os"
	"time"
)

// IsStale reports whether a stat of path fails to return within timeout
func IsStale(path string, timeout time.Duration) bool {
	done := make(chan error, 1)
	go func() {
		_, err := os.Stat(path)
		done <- err
	}()

	select {
	case err := <-done:
		return err != nil && os.IsTimeout(err)
	case <-time.After(timeout):
		return true
	}
}
