package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"shred-sage/internal/shred"
)

var _ shred.Observer = ShredObserver{}

// gatherValue returns the value of a counter or gauge sample from the default
// registry, matching every given label.
func gatherValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	sample:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue sample
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			if m.GetHistogram() != nil {
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

// TestMetricsInit verifies that Init() is idempotent and registers metrics
func TestMetricsInit(t *testing.T) {
	Init()
	Init()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	found := make(map[string]bool)
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}

	for _, expected := range []string{
		"shredsage_files_erased_total",
		"shredsage_bytes_overwritten_total",
		"shredsage_passes_total",
		"shredsage_workers_active",
		"shredsage_last_run_timestamp",
		"shredsage_file_erase_duration_seconds",
		"shredsage_daemon_errors_total",
	} {
		if !found[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

// TestShredObserver checks each engine event lands in the right series
func TestShredObserver(t *testing.T) {
	Init()
	obs := ShredObserver{}

	passes := gatherValue(t, "shredsage_passes_total", nil)
	bytes := gatherValue(t, "shredsage_bytes_overwritten_total", nil)
	files := gatherValue(t, "shredsage_files_erased_total", nil)

	obs.PassWritten(4106)
	obs.PassWritten(4106)
	obs.FileErased(10, 20*time.Millisecond)
	obs.DirectoryRemoved(true)
	obs.OperationFailed("remove")
	obs.WorkersActive(3)

	if got := gatherValue(t, "shredsage_passes_total", nil) - passes; got != 2 {
		t.Errorf("Expected 2 passes, got %v", got)
	}
	if got := gatherValue(t, "shredsage_bytes_overwritten_total", nil) - bytes; got != 8212 {
		t.Errorf("Expected 8212 bytes, got %v", got)
	}
	if got := gatherValue(t, "shredsage_files_erased_total", nil) - files; got != 1 {
		t.Errorf("Expected 1 file, got %v", got)
	}
	if got := gatherValue(t, "shredsage_directories_removed_total", map[string]string{"mode": "fallback"}); got < 1 {
		t.Errorf("Expected fallback directory count, got %v", got)
	}
	if got := gatherValue(t, "shredsage_errors_total", map[string]string{"operation": "remove"}); got < 1 {
		t.Errorf("Expected remove error count, got %v", got)
	}
	if got := gatherValue(t, "shredsage_workers_active", nil); got != 3 {
		t.Errorf("Expected 3 active workers, got %v", got)
	}
	obs.WorkersActive(0)
}

func TestDaemonHelpers(t *testing.T) {
	Init()

	RecordRun(time.Now().Add(-time.Second))
	if gatherValue(t, "shredsage_last_run_timestamp", nil) == 0 {
		t.Error("Expected last run timestamp to be set")
	}

	SetSpoolCandidates("/var/spool/shred", 4)
	if got := gatherValue(t, "shredsage_spool_candidates", map[string]string{"spool": "/var/spool/shred"}); got != 4 {
		t.Errorf("Expected 4 candidates, got %v", got)
	}

	RecordFilesystemWarning("copy_on_write")
	RecordSafetyRejection("protected path")
}

func TestHealthEndpoint(t *testing.T) {
	Init()

	hc := NewHealthChecker(time.Hour)
	fail := true
	hc.RegisterComponent("database", func() error {
		if fail {
			return errors.New("down")
		}
		return nil
	}, time.Second)
	SetHealthChecker(hc)
	defer SetHealthChecker(nil)

	hc.RunChecks()
	rec := httptest.NewRecorder()
	NewMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while unhealthy, got %d", rec.Code)
	}

	fail = false
	hc.RunChecks()
	rec = httptest.NewRecorder()
	NewMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 once healthy, got %d", rec.Code)
	}
}

func TestHealthCheckTimeout(t *testing.T) {
	Init()

	hc := NewHealthChecker(time.Hour)
	hc.RegisterComponent("slow", func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}, 10*time.Millisecond)
	hc.RunChecks()

	if hc.IsHealthy() {
		t.Error("Expected timed out component to be unhealthy")
	}
}

func TestTriggerEndpoint(t *testing.T) {
	Init()

	ch := make(chan struct{}, 1)
	SetTriggerChannel(ch)
	SetTriggerRateLimit(time.Millisecond, 10)
	defer func() {
		SetTriggerChannel(nil)
		SetTriggerRateLimit(defaultTriggerEvery, defaultTriggerBurst)
	}()

	mux := NewMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trigger", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while a pass is pending, got %d", rec.Code)
	}

	select {
	case <-ch:
	default:
		t.Error("Expected a queued trigger")
	}
}

func TestTriggerRateLimit(t *testing.T) {
	Init()

	ch := make(chan struct{}, 10)
	SetTriggerChannel(ch)
	SetTriggerRateLimit(time.Hour, 1)
	defer func() {
		SetTriggerChannel(nil)
		SetTriggerRateLimit(defaultTriggerEvery, defaultTriggerBurst)
	}()

	mux := NewMux()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 over budget, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	Init()

	rec := httptest.NewRecorder()
	NewMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "shredsage_files_erased_total") {
		t.Error("Expected shredsage metrics in exposition")
	}
}

// TestStandardBuckets verifies bucket ordering
func TestStandardBuckets(t *testing.T) {
	for name, buckets := range map[string][]float64{"duration": DurationBuckets, "bytes": BytesBuckets} {
		for i := 1; i < len(buckets); i++ {
			if buckets[i] <= buckets[i-1] {
				t.Errorf("%s buckets not increasing at %d", name, i)
			}
		}
	}
}
