package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricNamesArePrefixed(t *testing.T) {
	collectors := []prometheus.Collector{
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		TranscoderJobsTotal, TranscoderJobDuration, TranscoderJobsInProgress, TranscoderQueueWait,
		CompressionRunsTotal, CompressionIterations, CompressionAccuracyRatio,
		OperationsTotal, OperationDuration,
		UploadBytes, UploadsRejectedTotal,
		FilesystemOperationDuration, FilesystemOperationErrors, FilesystemStaleRetries,
		TempCleanupFailures, TempFiles, TempBytes,
		MemoryUsageRatio, MemoryPaused, MemoryGCPauses, GoMemLimit,
		AppInfo,
	}

	InitializeMetrics()
	SetAppInfo("test", "abc123", "go1.25")

	for _, c := range collectors {
		descs := make(chan *prometheus.Desc, 4)
		c.Describe(descs)
		close(descs)
		for d := range descs {
			if !strings.Contains(d.String(), `fqName: "media_converter_`) {
				t.Errorf("Metric not prefixed: %s", d)
			}
		}
	}
}

func TestInitializeMetricsExportsSeries(t *testing.T) {
	InitializeMetrics()

	tests := []struct {
		name      string
		collector prometheus.Collector
		minSeries int
	}{
		{"transcoder jobs", TranscoderJobsTotal, 12},
		{"operations", OperationsTotal, 8},
		{"compression runs", CompressionRunsTotal, 7},
		{"rejections", UploadsRejectedTotal, 4},
		{"filesystem ops", FilesystemOperationErrors, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.CollectAndCount(tt.collector); got < tt.minSeries {
				t.Errorf("Expected at least %d series, got %d", tt.minSeries, got)
			}
		})
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	errsBefore := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("remove"))
	obs.ObserveOperation("remove", 0.01, errors.New("boom"))
	obs.ObserveOperation("remove", 0.01, nil)
	if got := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("remove")); got != errsBefore+1 {
		t.Errorf("Expected one remove error recorded, got %v", got-errsBefore)
	}

	staleBefore := testutil.ToFloat64(FilesystemStaleRetries.WithLabelValues("stat"))
	obs.ObserveStaleRetry("stat")
	if got := testutil.ToFloat64(FilesystemStaleRetries.WithLabelValues("stat")); got != staleBefore+1 {
		t.Errorf("Expected one stale retry, got %v", got-staleBefore)
	}

	cleanupBefore := testutil.ToFloat64(TempCleanupFailures)
	obs.ObserveCleanupFailure()
	if got := testutil.ToFloat64(TempCleanupFailures); got != cleanupBefore+1 {
		t.Errorf("Expected one cleanup failure, got %v", got-cleanupBefore)
	}
}
