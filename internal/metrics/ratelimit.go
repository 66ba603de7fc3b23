package metrics

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default /trigger budget: one request per second with a burst of three.
// The limit is shared by all clients; a spool pass is a global resource.
const (
	defaultTriggerEvery = time.Second
	defaultTriggerBurst = 3
)

var (
	triggerLimitMu sync.Mutex
	triggerLimiter = rate.NewLimiter(rate.Every(defaultTriggerEvery), defaultTriggerBurst)
)

// SetTriggerRateLimit replaces the /trigger budget
func SetTriggerRateLimit(every time.Duration, burst int) {
	triggerLimitMu.Lock()
	defer triggerLimitMu.Unlock()
	triggerLimiter = rate.NewLimiter(rate.Every(every), burst)
}

func currentTriggerLimiter() *rate.Limiter {
	triggerLimitMu.Lock()
	defer triggerLimitMu.Unlock()
	return triggerLimiter
}

// rateLimited rejects requests over the /trigger budget with 429
func rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !currentTriggerLimiter().Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
