package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_transcoder_jobs_total",
			Help: "Total number of ffmpeg/ffprobe invocations",
		},
		[]string{"tool", "status"}, // status: success or an error kind
	)

	TranscoderJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_transcoder_job_duration_seconds",
			Help:    "Subprocess wall time in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"tool"},
	)

	TranscoderJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_transcoder_jobs_in_progress",
			Help: "Number of transcoder subprocesses currently running",
		},
	)

	TranscoderQueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_transcoder_queue_wait_seconds",
			Help:    "Time spent waiting for a transcode worker slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)
)

// Compression metrics
var (
	CompressionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_compression_runs_total",
			Help: "Target-size compression runs by outcome",
		},
		[]string{"kind", "strategy", "status"}, // status: accepted, finalized, error
	)

	CompressionIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_compression_iterations",
			Help:    "Encodes performed per compression run",
			Buckets: []float64{1, 2, 3, 4, 5, 6},
		},
		[]string{"kind"},
	)

	CompressionAccuracyRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_compression_accuracy_ratio",
			Help:    "Final output size divided by the requested target size",
			Buckets: []float64{0.5, 0.75, 0.9, 0.95, 1, 1.05, 1.1, 1.25, 1.5, 2},
		},
		[]string{"kind"},
	)

	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_operations_total",
			Help: "Convert and compress operations by outcome",
		},
		[]string{"kind", "operation", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_operation_duration_seconds",
			Help:    "End-to-end convert/compress duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
		[]string{"kind", "operation"},
	)
)

// Upload metrics
var (
	UploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_upload_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10), // 64KiB .. 16GiB
		},
		[]string{"kind"},
	)

	UploadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_uploads_rejected_total",
			Help: "Uploads refused before processing",
		},
		[]string{"reason"}, // too_large, wrong_type, invalid_form, memory
	)
)

// Temp workspace metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_filesystem_operation_duration_seconds",
			Help:    "Duration of temp root filesystem operations",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_operation_errors_total",
			Help: "Failed temp root filesystem operations",
		},
		[]string{"operation"},
	)

	FilesystemStaleRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_stale_retries_total",
			Help: "Retries caused by stale NFS file handles",
		},
		[]string{"operation"},
	)

	TempCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_temp_cleanup_failures_total",
			Help: "Request temp files that could not be deleted",
		},
	)

	TempFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_temp_files",
			Help: "Files currently in the temp root",
		},
	)

	TempBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_temp_bytes",
			Help: "Bytes currently held in the temp root",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the configured limit (0.0-1.0)",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_paused",
			Help: "Whether new work is refused due to memory pressure (1 = refusing)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_memory_gc_pauses_total",
			Help: "Times the memory guard entered the critical state and forced GC",
		},
	)

	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 = unset)",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
