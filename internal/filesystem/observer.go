package filesystem

// Observer records filesystem metrics. The metrics package provides the
// implementation so filesystem does not import it.
type Observer interface {
	// ObserveOperation records duration and outcome of a temp-root operation.
	// operation is one of "stat", "open", "write", "remove".
	ObserveOperation(operation string, durationSeconds float64, err error)

	// ObserveStaleRetry counts a retry caused by a stale NFS file handle.
	ObserveStaleRetry(operation string)

	// ObserveCleanupFailure counts a request temp file that could not be
	// deleted.
	ObserveCleanupFailure()
}

// defaultObserver is set once at startup. Nil disables recording.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, float64, error) {}
func (nopObserver) ObserveStaleRetry(string)                {}
func (nopObserver) ObserveCleanupFailure()                  {}

func observe() Observer {
	if defaultObserver == nil {
		return nopObserver{}
	}
	return defaultObserver
}
