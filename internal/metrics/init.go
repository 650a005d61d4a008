package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// series is exported from the first scrape. Call once at startup.
func InitializeMetrics() {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		TranscoderJobDuration.WithLabelValues(tool)
		for _, status := range []string{"success", "tool_missing", "timed_out", "non_zero_exit", "canceled", "bad_output"} {
			TranscoderJobsTotal.WithLabelValues(tool, status)
		}
	}

	for _, kind := range []string{"image", "video"} {
		CompressionIterations.WithLabelValues(kind)
		CompressionAccuracyRatio.WithLabelValues(kind)
		UploadBytes.WithLabelValues(kind)

		for _, op := range []string{"convert", "compress"} {
			OperationDuration.WithLabelValues(kind, op)
			OperationsTotal.WithLabelValues(kind, op, "success")
			OperationsTotal.WithLabelValues(kind, op, "error")
		}
	}

	CompressionRunsTotal.WithLabelValues("image", "quality_search", "accepted")
	CompressionRunsTotal.WithLabelValues("image", "quality_search", "finalized")
	CompressionRunsTotal.WithLabelValues("image", "quality_search", "error")
	for _, strategy := range []string{"oneshot", "feedback"} {
		CompressionRunsTotal.WithLabelValues("video", strategy, "accepted")
		CompressionRunsTotal.WithLabelValues("video", strategy, "error")
	}

	for _, reason := range []string{"too_large", "wrong_type", "invalid_form", "memory"} {
		UploadsRejectedTotal.WithLabelValues(reason)
	}

	for _, op := range []string{"stat", "open", "write", "remove"} {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemStaleRetries.WithLabelValues(op)
	}
}
