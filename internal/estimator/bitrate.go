package estimator

import (
	"fmt"
	"math"
	"strings"

	"media-converter/internal/media"
)

const (
	// AudioBitrateKbps is the fixed audio track bitrate budgeted out of the
	// target before computing the video bitrate.
	AudioBitrateKbps = 128
	// MinVideoBitrateKbps is the lowest video bitrate worth encoding.
	MinVideoBitrateKbps = 100
	// MaxFeedbackAttempts bounds encodes for the feedback strategy.
	MaxFeedbackAttempts = 3
)

// VideoBitrateKbps computes the video bitrate that fills targetMB over
// durationSeconds once the fixed audio track is accounted for. It is a pure
// function of its inputs.
func VideoBitrateKbps(targetMB, durationSeconds float64) (int, error) {
	if durationSeconds <= 0 || math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return 0, &EstimationError{Reason: ErrNoDuration}
	}
	if targetMB <= 0 {
		return 0, &EstimationError{Reason: ErrInvalidTarget}
	}

	targetBits := targetMB * 8 * 1024 * 1024
	audioBits := float64(AudioBitrateKbps*1000) * durationSeconds
	videoBits := targetBits - audioBits
	kbps := int(math.Floor(videoBits / durationSeconds / 1000))

	if kbps < MinVideoBitrateKbps {
		return 0, estimationErrorf(ErrTargetTooSmall,
			"%.2f MB over %.1fs leaves %d kbps for video, need at least %d", targetMB, durationSeconds, kbps, MinVideoBitrateKbps)
	}
	return kbps, nil
}

func durationOf(meta media.Metadata) (float64, error) {
	d, ok := meta.Duration()
	if !ok {
		return 0, &EstimationError{Reason: ErrNoDuration}
	}
	return d, nil
}

// OneShotStrategy computes the bitrate once and keeps whatever two-pass
// encoding produces.
type OneShotStrategy struct {
	sizer
}

// NewOneShotStrategy returns the single-estimate video strategy.
func NewOneShotStrategy(measure MeasureFunc) *OneShotStrategy {
	return &OneShotStrategy{sizer: sizer{measure: measure}}
}

// Name implements Strategy.
func (s *OneShotStrategy) Name() string { return "oneshot" }

// Estimate implements Strategy.
func (s *OneShotStrategy) Estimate(target Target, meta media.Metadata) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	d, err := durationOf(meta)
	if err != nil {
		return 0, err
	}
	return VideoBitrateKbps(target.MB(), d)
}

// Adjust always accepts the first encode.
func (s *OneShotStrategy) Adjust(param int, _ int64, _ Target) (int, Status, error) {
	return param, Accept, nil
}

// FeedbackStrategy starts from the one-shot bitrate, then rescales the
// video bitrate from the measured output until it lands within tolerance
// or the attempt budget runs out.
type FeedbackStrategy struct {
	sizer
	MaxAttempts int
	Tolerance   float64

	duration float64
	attempt  int
}

// NewFeedbackStrategy returns the bounded-iteration video strategy.
func NewFeedbackStrategy(measure MeasureFunc) *FeedbackStrategy {
	return &FeedbackStrategy{
		sizer:       sizer{measure: measure},
		MaxAttempts: MaxFeedbackAttempts,
		Tolerance:   DefaultTolerance,
	}
}

// Name implements Strategy.
func (s *FeedbackStrategy) Name() string { return "feedback" }

// Estimate implements Strategy.
func (s *FeedbackStrategy) Estimate(target Target, meta media.Metadata) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	d, err := durationOf(meta)
	if err != nil {
		return 0, err
	}
	s.duration = d
	s.attempt = 0
	return VideoBitrateKbps(target.MB(), d)
}

// Adjust scales the video share of the budget by how far the last encode
// missed. The audio share is fixed, so it is subtracted from both sides
// before scaling.
func (s *FeedbackStrategy) Adjust(param int, observedBytes int64, target Target) (int, Status, error) {
	s.attempt++

	if WithinTolerance(observedBytes, target.SizeBytes, s.Tolerance) || s.attempt >= s.MaxAttempts {
		return param, Accept, nil
	}

	audioBits := float64(AudioBitrateKbps*1000) * s.duration
	wantVideo := float64(target.SizeBytes)*8 - audioBits
	gotVideo := float64(observedBytes)*8 - audioBits

	var next int
	if gotVideo > 0 {
		next = int(math.Floor(float64(param) * wantVideo / gotVideo))
	} else {
		next = int(math.Floor(float64(param) * float64(target.SizeBytes) / float64(observedBytes)))
	}

	if next < MinVideoBitrateKbps {
		return 0, Accept, estimationErrorf(ErrTargetTooSmall,
			"encoder overshoots target; corrected bitrate %d kbps is under %d", next, MinVideoBitrateKbps)
	}
	if next == param {
		return param, Accept, nil
	}
	return next, Continue, nil
}

// Strategy names accepted by VIDEO_STRATEGY.
const (
	StrategyOneShot  = "oneshot"
	StrategyFeedback = "feedback"
)

// VideoStrategies lists the accepted VIDEO_STRATEGY values.
func VideoStrategies() []string {
	return []string{StrategyOneShot, StrategyFeedback}
}

// ValidVideoStrategy reports whether name selects a known strategy.
func ValidVideoStrategy(name string) bool {
	switch strings.ToLower(name) {
	case StrategyOneShot, StrategyFeedback:
		return true
	}
	return false
}

// NewVideoStrategy returns a fresh video strategy by name.
func NewVideoStrategy(name string, measure MeasureFunc) (Strategy, error) {
	switch strings.ToLower(name) {
	case StrategyOneShot, "":
		return NewOneShotStrategy(measure), nil
	case StrategyFeedback:
		return NewFeedbackStrategy(measure), nil
	default:
		return nil, fmt.Errorf("unknown video strategy %q (want one of %s)", name, strings.Join(VideoStrategies(), ", "))
	}
}
