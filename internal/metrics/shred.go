package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Erasure engine metrics
var (
	// FilesErasedTotal counts files overwritten, truncated and unlinked
	FilesErasedTotal prometheus.Counter

	// BytesOverwrittenTotal counts every byte written by every pass, margin included
	BytesOverwrittenTotal prometheus.Counter

	// PassesTotal counts completed overwrite passes
	PassesTotal prometheus.Counter

	// DirectoriesRemovedTotal counts removed directories by whether their
	// name was rotated first or removal fell back to the existing name
	DirectoriesRemovedTotal *prometheus.CounterVec

	// ShredErrorsTotal counts failures by the operation that failed
	ShredErrorsTotal *prometheus.CounterVec

	// WorkersActive is the number of file erasures currently running
	WorkersActive prometheus.Gauge

	// FileEraseDuration is the wall time of one complete file erasure
	FileEraseDuration prometheus.Histogram

	// ErasedFileSize is the original size of erased files
	ErasedFileSize prometheus.Histogram
)

func initShredMetrics() {
	FilesErasedTotal = NewCounter(
		"shredsage_files_erased_total",
		"Total number of files securely erased.",
	)
	BytesOverwrittenTotal = NewCounter(
		"shredsage_bytes_overwritten_total",
		"Total bytes written by overwrite passes.",
	)
	PassesTotal = NewCounter(
		"shredsage_passes_total",
		"Total number of completed overwrite passes.",
	)
	DirectoriesRemovedTotal = NewCounterVec(
		"shredsage_directories_removed_total",
		"Total directories removed, by naming mode (rotated or fallback).",
		[]string{"mode"},
	)
	ShredErrorsTotal = NewCounterVec(
		"shredsage_errors_total",
		"Total erasure failures by operation.",
		[]string{"operation"},
	)
	WorkersActive = NewGauge(
		"shredsage_workers_active",
		"Number of file erasures currently running.",
	)
	FileEraseDuration = NewDurationHistogram(
		"shredsage_file_erase_duration_seconds",
		"Duration of a complete file erasure in seconds.",
	)
	ErasedFileSize = NewBytesHistogram(
		"shredsage_erased_file_size_bytes",
		"Original size of erased files in bytes.",
	)
}

func registerShredMetrics() {
	prometheus.MustRegister(FilesErasedTotal)
	prometheus.MustRegister(BytesOverwrittenTotal)
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(DirectoriesRemovedTotal)
	prometheus.MustRegister(ShredErrorsTotal)
	prometheus.MustRegister(WorkersActive)
	prometheus.MustRegister(FileEraseDuration)
	prometheus.MustRegister(ErasedFileSize)
}

// ShredObserver feeds engine progress events into the Prometheus metrics.
// Init must have been called.
type ShredObserver struct{}

func (ShredObserver) PassWritten(bytes int64) {
	PassesTotal.Inc()
	BytesOverwrittenTotal.Add(float64(bytes))
}

func (ShredObserver) FileErased(size int64, elapsed time.Duration) {
	FilesErasedTotal.Inc()
	ErasedFileSize.Observe(float64(size))
	FileEraseDuration.Observe(elapsed.Seconds())
}

func (ShredObserver) DirectoryRemoved(fallback bool) {
	mode := "rotated"
	if fallback {
		mode = "fallback"
	}
	DirectoriesRemovedTotal.WithLabelValues(mode).Inc()
}

func (ShredObserver) OperationFailed(op string) {
	ShredErrorsTotal.WithLabelValues(op).Inc()
}

func (ShredObserver) WorkersActive(n int) {
	WorkersActive.Set(float64(n))
}
