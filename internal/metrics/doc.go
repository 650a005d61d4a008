// Package metrics provides Prometheus instrumentation for media-converter.
//
// All metrics are registered on the default registry through promauto and
// are prefixed with "media_converter_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter by method, path, and status
//   - HTTPRequestDuration: Histogram by method and path
//   - HTTPRequestsInFlight: Gauge of requests being served
//
// ## Transcoder Metrics
//
//   - TranscoderJobsTotal: Counter by tool (ffmpeg/ffprobe) and status
//   - TranscoderJobDuration: Histogram of subprocess wall time by tool
//   - TranscoderJobsInProgress: Gauge of running subprocesses
//   - TranscoderQueueWait: Histogram of time spent waiting for a worker slot
//
// ## Compression Metrics
//
//   - CompressionRunsTotal: Counter by kind, strategy, and outcome
//   - CompressionIterations: Histogram of encodes per run
//   - CompressionAccuracyRatio: Histogram of final size over target size
//   - OperationsTotal / OperationDuration: convert and compress outcomes
//
// ## Upload and Temp Root Metrics
//
//   - UploadBytes, UploadsRejectedTotal
//   - FilesystemOperationDuration, FilesystemOperationErrors, FilesystemStaleRetries
//   - TempCleanupFailures, TempFiles, TempBytes
//
// ## Memory Metrics
//
//   - GoMemLimit, MemoryUsageRatio, MemoryPaused, MemoryGCPauses
//
// # Collector
//
// [Collector] polls a [StatsProvider] for gauges that are cheaper to sample
// than to maintain on every change, such as temp root occupancy:
//
//	collector := metrics.NewCollector(metrics.StatsFunc(sample), time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Compression accuracy (share of runs within 5%):
//
//	sum(rate(media_converter_compression_accuracy_ratio_bucket{le="1.05"}[1h]))
//	- sum(rate(media_converter_compression_accuracy_ratio_bucket{le="0.9"}[1h]))
//
// ffmpeg failure rate by kind:
//
//	sum(rate(media_converter_transcoder_jobs_total{tool="ffmpeg",status!="success"}[5m])) by (status)
//
// Worker saturation:
//
//	histogram_quantile(0.95, sum(rate(media_converter_transcoder_queue_wait_seconds_bucket[5m])) by (le))
package metrics
