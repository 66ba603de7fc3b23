package shred

import "time"

// Observer receives progress events from the engine. Implementations must be
// safe for concurrent use; directory shreds report from several workers.
type Observer interface {
	PassWritten(bytes int64)
	FileErased(size int64, elapsed time.Duration)
	DirectoryRemoved(fallback bool)
	OperationFailed(op string)
	WorkersActive(n int)
}

type nopObserver struct{}

func (nopObserver) PassWritten(int64)               {}
func (nopObserver) FileErased(int64, time.Duration) {}
func (nopObserver) DirectoryRemoved(bool)           {}
func (nopObserver) OperationFailed(string)          {}
func (nopObserver) WorkersActive(int)               {}
