package estimator

import (
	"media-converter/internal/media"
)

// Image search bounds. Qualities outside [70, 95] either balloon the output
// or break some encoders.
const (
	MinQuality       = 70
	MaxQuality       = 95
	MaxIterations    = 5
	DefaultTolerance = 0.05
)

// QualityStrategy is a bounded binary search over encoder quality. Each
// measurement halves the remaining range. When the range empties or the
// iteration budget runs out, it finalizes at the lower bound, which favors
// output at or under the target over the closest match seen.
type QualityStrategy struct {
	sizer
	MinQuality    int
	MaxQuality    int
	MaxIterations int
	Tolerance     float64

	low, high int
	iteration int
}

// NewQualityStrategy returns a search over [MinQuality, MaxQuality]. A nil
// measure uses os.Stat.
func NewQualityStrategy(measure MeasureFunc) *QualityStrategy {
	return &QualityStrategy{
		sizer:         sizer{measure: measure},
		MinQuality:    MinQuality,
		MaxQuality:    MaxQuality,
		MaxIterations: MaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Name implements Strategy.
func (s *QualityStrategy) Name() string { return "quality_search" }

// Estimate resets the search and returns the midpoint of the range.
func (s *QualityStrategy) Estimate(target Target, _ media.Metadata) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	s.low, s.high = s.MinQuality, s.MaxQuality
	s.iteration = 0
	return (s.low + s.high) / 2, nil
}

// Adjust narrows the range around param.
func (s *QualityStrategy) Adjust(param int, observedBytes int64, target Target) (int, Status, error) {
	s.iteration++

	if WithinTolerance(observedBytes, target.SizeBytes, s.Tolerance) {
		return param, Accept, nil
	}

	if observedBytes > target.SizeBytes {
		s.high = param - 1
	} else {
		s.low = param + 1
	}

	if s.low > s.high || s.iteration >= s.MaxIterations {
		// low can step one past MaxQuality when every probe undershot.
		return min(s.low, s.MaxQuality), Finalize, nil
	}
	return (s.low + s.high) / 2, Continue, nil
}

// Bounds returns the current search range.
func (s *QualityStrategy) Bounds() (low, high int) {
	return s.low, s.high
}
