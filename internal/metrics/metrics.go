package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce       sync.Once
	serverMutex    sync.Mutex
	currentSrv     *http.Server
	triggerChannel chan<- struct{}

	globalHealthChecker *HealthChecker
	healthMutex         sync.RWMutex
)

// Init creates and registers every metric with the default registry.
// Safe to call multiple times.
func Init() {
	initOnce.Do(func() {
		initShredMetrics()
		initDaemonMetrics()
		initHealthMetrics()

		registerShredMetrics()
		registerDaemonMetrics()
		registerHealthMetrics()

		// Present in /metrics before the first run
		LastRunTimestamp.Set(0)
		WorkersActive.Set(0)
	})
}

// SetTriggerChannel sets the channel that /trigger uses to request an
// immediate spool pass
func SetTriggerChannel(ch chan<- struct{}) {
	serverMutex.Lock()
	defer serverMutex.Unlock()
	triggerChannel = ch
}

// NewMux builds the HTTP handler exposing /metrics, /health and /trigger
func NewMux() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/trigger", rateLimited(handleTrigger)).Methods(http.MethodPost)
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	hc := GetHealthChecker()
	healthy := hc == nil || hc.IsHealthy()
	body := map[string]interface{}{"status": "ok", "healthy": healthy}
	if hc != nil {
		body["components"] = hc.GetHealth()
	}
	if !healthy {
		body["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(body)
}

func handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	serverMutex.Lock()
	ch := triggerChannel
	serverMutex.Unlock()

	if ch == nil {
		http.Error(w, "Trigger channel not initialized", http.StatusServiceUnavailable)
		return
	}
	select {
	case ch <- struct{}{}:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Spool pass triggered"))
	default:
		http.Error(w, "Spool pass already pending", http.StatusServiceUnavailable)
	}
}

// StartServer starts the metrics HTTP server on addr
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown stops the health checker and the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	healthMutex.Lock()
	if globalHealthChecker != nil {
		globalHealthChecker.Stop()
		globalHealthChecker = nil
	}
	healthMutex.Unlock()

	if currentSrv == nil {
		return
	}
	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}

// SetHealthChecker sets the global health checker instance
func SetHealthChecker(hc *HealthChecker) {
	healthMutex.Lock()
	defer healthMutex.Unlock()
	globalHealthChecker = hc
}

// GetHealthChecker returns the global health checker instance
func GetHealthChecker() *HealthChecker {
	healthMutex.RLock()
	defer healthMutex.RUnlock()
	return globalHealthChecker
}
