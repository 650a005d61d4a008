package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// DefaultMemoryRatio is the share of MEMORY_LIMIT handed to the Go heap.
// The rest covers ffmpeg pipes, goroutine stacks and cgo (libvips).
const DefaultMemoryRatio = 0.85

// ConfigResult reports how GOMEMLIMIT was set.
type ConfigResult struct {
	Configured bool
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv applies the process environment. See Configure.
func ConfigureFromEnv() ConfigResult {
	return Configure(os.LookupEnv)
}

// Configure sets GOMEMLIMIT from MEMORY_LIMIT (bytes) scaled by
// MEMORY_RATIO. An explicit GOMEMLIMIT always wins and is left alone.
func Configure(lookup func(string) (string, bool)) ConfigResult {
	result := configure(lookup)
	metrics.GoMemLimit.Set(float64(result.GoMemLimit))
	return result
}

func configure(lookup func(string) (string, bool)) ConfigResult {
	if v, ok := lookup("GOMEMLIMIT"); ok && v != "" {
		result := ConfigResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	none := ConfigResult{Source: "none"}

	raw, ok := lookup("MEMORY_LIMIT")
	if !ok || raw == "" {
		logging.Debug("MEMORY_LIMIT not set, memory guard disabled")
		return none
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		logging.Warn("Ignoring MEMORY_LIMIT %q: want a positive byte count", raw)
		return none
	}

	ratio := DefaultMemoryRatio
	if r, ok := lookup("MEMORY_RATIO"); ok && r != "" {
		parsed, err := strconv.ParseFloat(r, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using %.2f", r, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0], using %.2f", r, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s)", formatBytes(goLimit), ratio*100, formatBytes(limit))

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: limit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
