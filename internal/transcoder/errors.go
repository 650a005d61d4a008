package transcoder

import (
	"errors"
	"fmt"
)

// Kind classifies why a transcoder invocation failed.
type Kind int

const (
	// ToolMissing means the binary could not be found or executed.
	ToolMissing Kind = iota + 1
	// TimedOut means the run exceeded its wall-clock limit.
	TimedOut
	// NonZeroExit means the tool ran and reported failure.
	NonZeroExit
	// Canceled means the caller's context ended or the process was killed
	// during shutdown.
	Canceled
	// BadOutput means the tool succeeded but printed something unparseable.
	BadOutput
)

func (k Kind) String() string {
	switch k {
	case ToolMissing:
		return "tool_missing"
	case TimedOut:
		return "timed_out"
	case NonZeroExit:
		return "non_zero_exit"
	case Canceled:
		return "canceled"
	case BadOutput:
		return "bad_output"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type returned by the transcoder. Callers branch
// on Kind instead of matching message text.
type Error struct {
	Kind Kind
	// Tool is "ffmpeg" or "ffprobe".
	Tool string
	// ExitCode is set for NonZeroExit.
	ExitCode int
	// Diagnostic is the tail of the tool's stderr, or a parse error for
	// BadOutput.
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ToolMissing:
		return fmt.Sprintf("%s not found. Please ensure %s is installed", e.Tool, e.Tool)
	case TimedOut:
		return fmt.Sprintf("%s operation timed out", e.Tool)
	case NonZeroExit:
		if e.Diagnostic == "" {
			return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
		}
		return fmt.Sprintf("%s error (exit %d): %s", e.Tool, e.ExitCode, e.Diagnostic)
	case Canceled:
		return fmt.Sprintf("%s operation canceled", e.Tool)
	case BadOutput:
		return fmt.Sprintf("%s returned unreadable output: %s", e.Tool, e.Diagnostic)
	default:
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a transcoder Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}
