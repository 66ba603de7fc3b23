package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Daemon and CLI run metrics
var (
	// ErrorsTotal tracks errors outside the erasure engine (scan, history, server)
	ErrorsTotal prometheus.Counter

	// RunDuration tracks how long each spool pass or erase command takes
	RunDuration prometheus.Histogram

	// LastRunTimestamp records the Unix time of the last completed run
	LastRunTimestamp prometheus.Gauge

	// SpoolCandidates is the number of entries selected by the last spool scan
	SpoolCandidates *prometheus.GaugeVec

	// FilesystemWarningsTotal counts targets on filesystems where overwriting
	// in place is not reliable
	FilesystemWarningsTotal *prometheus.CounterVec

	// SafetyRejectionsTotal counts targets refused by the safety validator
	SafetyRejectionsTotal *prometheus.CounterVec
)

func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"shredsage_daemon_errors_total",
		"Total number of non-erasure errors encountered.",
	)
	RunDuration = NewDurationHistogram(
		"shredsage_run_duration_seconds",
		"Duration of spool passes and erase commands in seconds.",
	)
	LastRunTimestamp = NewGauge(
		"shredsage_last_run_timestamp",
		"Timestamp of the last completed run (Unix epoch seconds).",
	)
	SpoolCandidates = NewGaugeVec(
		"shredsage_spool_candidates",
		"Entries selected for shredding by the last spool scan.",
		[]string{"spool"},
	)
	FilesystemWarningsTotal = NewCounterVec(
		"shredsage_filesystem_warnings_total",
		"Targets on filesystems where in-place overwrite is unreliable, by kind.",
		[]string{"kind"},
	)
	SafetyRejectionsTotal = NewCounterVec(
		"shredsage_safety_rejections_total",
		"Targets refused by the safety validator, by reason.",
		[]string{"reason"},
	)
}

func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(SpoolCandidates)
	prometheus.MustRegister(FilesystemWarningsTotal)
	prometheus.MustRegister(SafetyRejectionsTotal)
}

// RecordRun updates the run duration histogram and last run timestamp
func RecordRun(started time.Time) {
	RunDuration.Observe(time.Since(started).Seconds())
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// SetSpoolCandidates records how many entries a spool scan selected
func SetSpoolCandidates(spool string, n int) {
	SpoolCandidates.WithLabelValues(spool).Set(float64(n))
}

// RecordFilesystemWarning counts a target on an unreliable filesystem
func RecordFilesystemWarning(kind string) {
	FilesystemWarningsTotal.WithLabelValues(kind).Inc()
}

// RecordSafetyRejection counts a target refused by the validator
func RecordSafetyRejection(reason string) {
	SafetyRejectionsTotal.WithLabelValues(reason).Inc()
}
