package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-converter/internal/estimator"
	"media-converter/internal/logging"
	"media-converter/internal/media"
	"media-converter/internal/metrics"
	"media-converter/internal/transcoder"

	"github.com/getsentry/sentry-go"
)

// writeJSON encodes v as JSON. Encoding failures are logged; the status
// line has already gone out by then.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, v)
}

// writeJSONError writes the {"error": message} envelope.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}

// requestError is a client mistake caught before any conversion runs.
type requestError struct {
	status  int
	message string
	// reason labels UploadsRejectedTotal; empty skips the metric.
	reason string
}

func (e *requestError) Error() string { return e.message }

func badRequest(reason, message string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message, reason: reason}
}

// statusForError maps a conversion failure to an HTTP status and the
// message the client sees.
func statusForError(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status, reqErr.message
	}

	var estErr *estimator.EstimationError
	if errors.As(err, &estErr) {
		return http.StatusBadRequest, estErr.Error()
	}

	var decodeErr *media.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusBadRequest, decodeErr.Error()
	}

	var tErr *transcoder.Error
	if errors.As(err, &tErr) {
		if tErr.Kind == transcoder.Canceled {
			return http.StatusServiceUnavailable, tErr.Error()
		}
		return http.StatusBadRequest, tErr.Error()
	}

	return http.StatusInternalServerError, "Internal error: " + err.Error()
}

// respondError logs err and writes the JSON error response. Internal
// errors are also reported to Sentry.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusForError(err)

	var reqErr *requestError
	if errors.As(err, &reqErr) && reqErr.reason != "" {
		metrics.UploadsRejectedTotal.WithLabelValues(reqErr.reason).Inc()
	}

	switch {
	case status == http.StatusInternalServerError:
		logging.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetRequest(r)
			scope.SetTag("path", r.URL.Path)
			sentry.CaptureException(err)
		})
	case status > http.StatusInternalServerError:
		logging.Warn("%s %s unavailable: %v", r.Method, r.URL.Path, err)
	default:
		logging.Debug("%s %s rejected (%d): %v", r.Method, r.URL.Path, status, err)
	}

	writeJSONError(w, message, status)
}
