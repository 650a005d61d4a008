package estimator

import (
	"math"
	"os"

	"media-converter/internal/media"
)

const (
	bytesPerKB = 1024
	bytesPerMB = 1024 * 1024
)

// Target is the requested output size for a compression job.
type Target struct {
	SizeBytes int64
	Format    string
	// Codec is optional and only meaningful for video.
	Codec string
	// mb is the requested size when it was given in megabytes. Bitrate math
	// uses it instead of the whole-byte SizeBytes.
	mb float64
}

// TargetKB builds an image target from kilobytes.
func TargetKB(kb int64, format string) Target {
	return Target{SizeBytes: kb * bytesPerKB, Format: format}
}

// TargetMB builds a video target from megabytes. SizeBytes drops sub-byte
// remainders but MB keeps the exact value.
func TargetMB(mb float64, format, codec string) Target {
	return Target{SizeBytes: int64(mb * bytesPerMB), Format: format, Codec: codec, mb: mb}
}

// KB returns the target size in kilobytes.
func (t Target) KB() float64 { return float64(t.SizeBytes) / bytesPerKB }

// MB returns the target size in megabytes.
func (t Target) MB() float64 {
	if t.mb > 0 {
		return t.mb
	}
	return float64(t.SizeBytes) / bytesPerMB
}

// Validate rejects non-positive targets.
func (t Target) Validate() error {
	if t.SizeBytes <= 0 {
		return &EstimationError{Reason: ErrInvalidTarget}
	}
	return nil
}

// Status tells the controller what to do after a measurement.
type Status int

const (
	// Accept keeps the artifact just produced.
	Accept Status = iota
	// Continue encodes again with the returned parameter and measures it.
	Continue
	// Finalize encodes once more with the returned parameter and keeps
	// that result without measuring against the target again.
	Finalize
)

func (s Status) String() string {
	switch s {
	case Accept:
		return "accept"
	case Continue:
		return "continue"
	case Finalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// Strategy turns a size target into an encoder parameter and refines it
// from measured output. The parameter is a quality for images and a video
// bitrate in kbps for video. Strategies hold per-job state; create one per
// request.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	// Estimate returns the first parameter to try.
	Estimate(target Target, meta media.Metadata) (int, error)
	// Measure returns the size in bytes of an encoded artifact.
	Measure(path string) (int64, error)
	// Adjust inspects the size produced by param and returns the next step.
	Adjust(param int, observedBytes int64, target Target) (next int, status Status, err error)
}

// MeasureFunc reports the size of a file in bytes.
type MeasureFunc func(path string) (int64, error)

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// sizer is embedded by strategies to share Measure.
type sizer struct {
	measure MeasureFunc
}

func (s sizer) Measure(path string) (int64, error) {
	if s.measure == nil {
		return statSize(path)
	}
	return s.measure(path)
}

// WithinTolerance reports whether observed is within tol (a fraction) of
// target.
func WithinTolerance(observedBytes, targetBytes int64, tol float64) bool {
	if targetBytes <= 0 {
		return false
	}
	ratio := float64(observedBytes) / float64(targetBytes)
	return math.Abs(ratio-1) <= tol
}
