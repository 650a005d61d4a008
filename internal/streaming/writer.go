package streaming

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"media-converter/internal/logging"
)

var (
	// ErrWriteTimeout means a single write stalled past WriteTimeout or the
	// whole transfer ran past MaxDuration.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone means the request context was canceled mid-transfer.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled means the writer was closed before the write.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config bounds how long an artifact download may take.
type Config struct {
	// WriteTimeout bounds each chunk write. Zero disables the deadline.
	WriteTimeout time.Duration
	// MaxDuration bounds the whole transfer. Zero means unlimited.
	MaxDuration time.Duration
	// ChunkSize splits large writes so deadlines and progress apply
	// per chunk.
	ChunkSize int
	// OnProgress is called about once per MiB written.
	OnProgress func(bytesWritten int64, elapsed time.Duration)
}

// DefaultConfig returns the settings used for artifact downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// TimeoutWriter wraps a ResponseWriter so that a stalled or vanished
// client cannot pin a handler goroutine and its temp files.
type TimeoutWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	config Config

	mu           sync.Mutex
	start        time.Time
	bytesWritten int64
	closed       bool
	deadlines    bool
}

// NewTimeoutWriter wraps w. ctx is normally the request context.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config Config) *TimeoutWriter {
	return &TimeoutWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		ctx:       ctx,
		config:    config,
		start:     time.Now(),
		deadlines: config.WriteTimeout > 0,
	}
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	written := 0
	for len(p) > 0 {
		if err := tw.ctx.Err(); err != nil {
			return written, ErrClientGone
		}
		if tw.config.MaxDuration > 0 && time.Since(tw.start) > tw.config.MaxDuration {
			return written, ErrWriteTimeout
		}

		chunk := p
		if tw.config.ChunkSize > 0 && len(chunk) > tw.config.ChunkSize {
			chunk = chunk[:tw.config.ChunkSize]
		}

		n, err := tw.writeChunk(chunk)
		written += n
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

func (tw *TimeoutWriter) writeChunk(chunk []byte) (int, error) {
	if tw.deadlines {
		err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout))
		if errors.Is(err, http.ErrNotSupported) {
			tw.deadlines = false
		}
	}

	n, err := tw.w.Write(chunk)

	tw.mu.Lock()
	before := tw.bytesWritten
	tw.bytesWritten += int64(n)
	after := tw.bytesWritten
	tw.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return n, ErrWriteTimeout
		}
		return n, err
	}

	if tw.config.OnProgress != nil && before>>20 != after>>20 {
		tw.config.OnProgress(after, time.Since(tw.start))
	}
	return n, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Flush sends buffered data to the client.
func (tw *TimeoutWriter) Flush() {
	if err := tw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Debug("Flush failed: %v", err)
	}
}

// Close stops further writes and clears the write deadline. It is safe to
// call more than once.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true

	if tw.deadlines {
		if err := tw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	return nil
}

// Stats returns bytes written and time since creation.
func (tw *TimeoutWriter) Stats() (bytesWritten int64, elapsed time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.start)
}

// Attachment describes a file download.
type Attachment struct {
	Filename    string
	ContentType string
	// Size is sent as Content-Length when positive.
	Size int64
}

// SetHeaders writes the download headers for a.
func (a Attachment) SetHeaders(h http.Header) {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("X-Content-Type-Options", "nosniff")
	if a.Filename != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	}
	if a.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
}

// SendAttachment writes the attachment headers and copies r to w through a
// TimeoutWriter. Extra headers must be set on w before calling. It returns
// the number of body bytes written.
func SendAttachment(ctx context.Context, w http.ResponseWriter, r io.Reader, a Attachment, config Config) (int64, error) {
	a.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close download writer: %v", err)
		}
	}()

	_, err := io.Copy(tw, r)

	n, elapsed := tw.Stats()
	logging.Debug("Sent %s: %d bytes in %v", a.Filename, n, elapsed)
	return n, err
}
