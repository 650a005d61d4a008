package media

import "context"

// Metadata describes a probed source file. It is read once per request and
// never modified.
type Metadata struct {
	// ContainerFormat is the probe's format name, e.g. "mov,mp4,m4a,3gp,3g2,mj2".
	ContainerFormat string
	// SizeBytes is the file size reported by the probe.
	SizeBytes int64
	// DurationSeconds is nil when the container has no meaningful duration.
	DurationSeconds *float64
	// Width, Height and Codec come from the first video stream, if any.
	Width  int
	Height int
	Codec  string
}

// Duration returns the duration and whether it is usable (present and > 0).
func (m Metadata) Duration() (float64, bool) {
	if m.DurationSeconds == nil || *m.DurationSeconds <= 0 {
		return 0, false
	}
	return *m.DurationSeconds, true
}

// HasVideoStream reports whether the probe found a video stream.
func (m Metadata) HasVideoStream() bool {
	return m.Codec != "" || m.Width > 0 || m.Height > 0
}

// Prober reads metadata from a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// ImageEncoder writes input re-encoded as format at the given quality
// (1-100) to output, replacing any existing file. Formats without a quality
// knob ignore it.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, input, output, format string, quality int) error
}
