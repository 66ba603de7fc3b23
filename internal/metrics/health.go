package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ComponentHealthy tracks individual component health (1 healthy, 0 not)
	ComponentHealthy *prometheus.GaugeVec

	// HealthCheckFailures counts consecutive failures per component
	HealthCheckFailures *prometheus.GaugeVec

	// StartTime records when the daemon started
	StartTime prometheus.Gauge
)

var errHealthCheckTimeout = errors.New("health check timeout")

func initHealthMetrics() {
	ComponentHealthy = NewGaugeVec(
		"shredsage_component_healthy",
		"Component health status (1=healthy, 0=unhealthy).",
		[]string{"component"},
	)
	HealthCheckFailures = NewGaugeVec(
		"shredsage_health_check_failures_consecutive",
		"Consecutive health check failures per component.",
		[]string{"component"},
	)
	StartTime = NewGauge(
		"shredsage_daemon_start_timestamp_seconds",
		"Unix timestamp when the daemon started.",
	)
}

func registerHealthMetrics() {
	prometheus.MustRegister(ComponentHealthy)
	prometheus.MustRegister(HealthCheckFailures)
	prometheus.MustRegister(StartTime)
}

// HealthChecker periodically runs registered component checks
type HealthChecker struct {
	mu         sync.RWMutex
	startTime  time.Time
	components map[string]*componentHealth
	interval   time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

type componentHealth struct {
	check        func() error
	timeout      time.Duration
	healthy      bool
	failureCount int
	lastErr      error
}

// NewHealthChecker creates a checker running every interval
func NewHealthChecker(interval time.Duration) *HealthChecker {
	hc := &HealthChecker{
		startTime:  time.Now(),
		components: make(map[string]*componentHealth),
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
	StartTime.Set(float64(hc.startTime.Unix()))
	return hc
}

// RegisterComponent adds a named check. Components start healthy.
func (hc *HealthChecker) RegisterComponent(name string, check func() error, timeout time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.components[name] = &componentHealth{check: check, timeout: timeout, healthy: true}
	ComponentHealthy.WithLabelValues(name).Set(1)
}

// Start runs all checks now and then every interval until Stop
func (hc *HealthChecker) Start() {
	hc.RunChecks()
	hc.wg.Add(1)
	go func() {
		defer hc.wg.Done()
		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				hc.RunChecks()
			case <-hc.stopCh:
				return
			}
		}
	}()
}

// Stop ends the check loop and waits for it
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() { close(hc.stopCh) })
	hc.wg.Wait()
}

// RunChecks executes every registered check once
func (hc *HealthChecker) RunChecks() {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	for name, comp := range hc.components {
		err := runWithTimeout(comp.check, comp.timeout)
		comp.lastErr = err
		if err != nil {
			comp.healthy = false
			comp.failureCount++
			ComponentHealthy.WithLabelValues(name).Set(0)
			HealthCheckFailures.WithLabelValues(name).Set(float64(comp.failureCount))
			ErrorsTotal.Inc()
			continue
		}
		comp.healthy = true
		comp.failureCount = 0
		ComponentHealthy.WithLabelValues(name).Set(1)
		HealthCheckFailures.WithLabelValues(name).Set(0)
	}
}

func runWithTimeout(fn func() error, timeout time.Duration) error {
	if timeout <= 0 {
		return fn()
	}
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(timeout):
		return errHealthCheckTimeout
	}
}

// GetHealth returns the current status of every component
func (hc *HealthChecker) GetHealth() map[string]bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	health := make(map[string]bool, len(hc.components))
	for name, comp := range hc.components {
		health[name] = comp.healthy
	}
	return health
}

// IsHealthy returns true if all components are healthy
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	for _, comp := range hc.components {
		if !comp.healthy {
			return false
		}
	}
	return true
}

// Uptime returns time since the checker was created
func (hc *HealthChecker) Uptime() time.Duration {
	return time.Since(hc.startTime)
}
