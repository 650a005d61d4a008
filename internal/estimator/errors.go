package estimator

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDuration means the source has no usable duration.
	ErrNoDuration = errors.New("cannot determine video duration")
	// ErrTargetTooSmall means the bitrate left for video falls under the floor.
	ErrTargetTooSmall = errors.New("target size too small for video duration")
	// ErrInvalidTarget means the requested size is not positive.
	ErrInvalidTarget = errors.New("target size must be greater than zero")
)

// EstimationError reports that no transcoder parameters can reach the
// target. It is a client error: the request asked for something impossible.
type EstimationError struct {
	Reason error
	Detail string
}

func (e *EstimationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e *EstimationError) Unwrap() error {
	return e.Reason
}

func estimationErrorf(reason error, format string, args ...any) *EstimationError {
	return &EstimationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
