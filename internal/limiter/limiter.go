package limiter

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the number of file erasures allowed to run at once
const DefaultCapacity = 5

// WorkerLimiter bounds how many file erasures execute simultaneously.
// One limiter is shared by every shred call in the process.
type WorkerLimiter struct {
	sem      *semaphore.Weighted
	capacity int

	mu       sync.Mutex
	active   int
	peak     int
	onChange []func(active int)
}

// NewWorkerLimiter creates a limiter with the given capacity.
// A non-positive capacity falls back to DefaultCapacity.
func NewWorkerLimiter(capacity int) *WorkerLimiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &WorkerLimiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// OnChange registers a callback invoked with the active count after every
// acquire and release. Used to feed the workers-active gauge. Callbacks
// accumulate, so engines sharing a limiter each keep their hook.
func (l *WorkerLimiter) OnChange(fn func(active int)) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.onChange = append(l.onChange, fn)
	l.mu.Unlock()
}

// Acquire blocks until a slot is free or ctx is done.
// The returned release func must be called exactly once; extra calls are ignored.
func (l *WorkerLimiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.track(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.track(-1)
			l.sem.Release(1)
		})
	}, nil
}

func (l *WorkerLimiter) track(delta int) {
	l.mu.Lock()
	l.active += delta
	if l.active > l.peak {
		l.peak = l.active
	}
	active, hooks := l.active, l.onChange
	l.mu.Unlock()

	for _, fn := range hooks {
		fn(active)
	}
}

// Capacity returns the configured number of slots
func (l *WorkerLimiter) Capacity() int { return l.capacity }

// Active returns the number of slots currently held
func (l *WorkerLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Peak returns the highest number of slots held at the same time
func (l *WorkerLimiter) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}
