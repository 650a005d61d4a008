package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/workers"
)

const (
	// DefaultTimeout bounds a single ffmpeg or ffprobe run.
	DefaultTimeout = time.Hour

	// maxDiagnosticBytes caps how much stderr is kept for error messages.
	// ffmpeg prints a progress line per frame, and only the end matters.
	maxDiagnosticBytes = 4096
)

var errClosing = errors.New("transcoder is shutting down")

// Config holds transcoder settings resolved at startup.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
	// Workers bounds concurrent ffmpeg processes. 0 is unbounded and
	// workers.Auto sizes from the CPU count.
	Workers int
}

// Transcoder runs ffmpeg and ffprobe as subprocesses. It tracks running
// processes so they can be killed on shutdown.
type Transcoder struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	limiter *workers.Limiter

	processes map[int]*exec.Cmd
	processMu sync.Mutex
	nextID    int
	closing   bool
}

// New creates a Transcoder from cfg, filling in defaults for empty fields.
func New(cfg Config) *Transcoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Transcoder{
		ffmpeg:    cfg.FFmpegPath,
		ffprobe:   cfg.FFprobePath,
		timeout:   cfg.Timeout,
		limiter:   workers.NewLimiter(workers.Resolve(cfg.Workers)),
		processes: make(map[int]*exec.Cmd),
	}
}

// Timeout returns the per-run wall-clock limit.
func (t *Transcoder) Timeout() time.Duration {
	return t.timeout
}

// Slots returns the concurrency bound, 0 when unbounded.
func (t *Transcoder) Slots() int {
	return t.limiter.Size()
}

// CheckTools verifies both binaries resolve on PATH (or at their configured
// absolute paths).
func (t *Transcoder) CheckTools() error {
	for _, bin := range []string{t.ffmpeg, t.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return &Error{Kind: ToolMissing, Tool: toolName(bin), Err: err}
		}
	}
	return nil
}

// Run executes ffmpeg with args and waits for it. It returns nil only when
// ffmpeg exited 0; callers must still check the output file.
func (t *Transcoder) Run(ctx context.Context, args ...string) error {
	waitStart := time.Now()
	if err := t.limiter.Acquire(ctx); err != nil {
		return &Error{Kind: Canceled, Tool: "ffmpeg", Err: err}
	}
	defer t.limiter.Release()
	metrics.TranscoderQueueWait.Observe(time.Since(waitStart).Seconds())

	_, err := t.exec(ctx, t.ffmpeg, args)
	return err
}

// exec runs bin under the configured timeout and classifies failure.
func (t *Transcoder) exec(ctx context.Context, bin string, args []string) ([]byte, error) {
	tool := toolName(bin)
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("Running %s %s", tool, strings.Join(args, " "))

	start := time.Now()
	if t.isClosing() {
		te := &Error{Kind: Canceled, Tool: tool, Err: errClosing}
		recordJob(tool, te, start)
		return nil, te
	}
	if err := cmd.Start(); err != nil {
		te := classifyStart(tool, err)
		recordJob(tool, te, start)
		return nil, te
	}

	id := t.track(cmd)
	metrics.TranscoderJobsInProgress.Inc()
	err := cmd.Wait()
	metrics.TranscoderJobsInProgress.Dec()
	killed := t.untrack(id)

	if err != nil {
		te := classifyWait(ctx, runCtx, tool, err, killed, stderr.Bytes())
		recordJob(tool, te, start)
		if te.Kind == NonZeroExit {
			logging.Warn("%s exited with code %d: %s", tool, te.ExitCode, te.Diagnostic)
		}
		return nil, te
	}

	recordJob(tool, nil, start)
	return stdout.Bytes(), nil
}

func classifyStart(tool string, err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Canceled, Tool: tool, Err: err}
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return &Error{Kind: ToolMissing, Tool: tool, Err: err}
	}
	return &Error{Kind: NonZeroExit, Tool: tool, ExitCode: -1, Diagnostic: err.Error(), Err: err}
}

func classifyWait(parent, runCtx context.Context, tool string, err error, killed bool, stderr []byte) *Error {
	switch {
	case parent.Err() != nil || killed:
		return &Error{Kind: Canceled, Tool: tool, Err: err}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return &Error{Kind: TimedOut, Tool: tool, Err: err}
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &Error{Kind: NonZeroExit, Tool: tool, ExitCode: code, Diagnostic: diagnostic(stderr), Err: err}
}

// diagnostic returns the trimmed tail of stderr.
func diagnostic(stderr []byte) string {
	if len(stderr) > maxDiagnosticBytes {
		stderr = stderr[len(stderr)-maxDiagnosticBytes:]
		if i := bytes.IndexByte(stderr, '\n'); i >= 0 {
			stderr = stderr[i+1:]
		}
	}
	return strings.TrimSpace(string(stderr))
}

func recordJob(tool string, err *Error, start time.Time) {
	status := "success"
	if err != nil {
		status = err.Kind.String()
	}
	metrics.TranscoderJobsTotal.WithLabelValues(tool, status).Inc()
	metrics.TranscoderJobDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}

// toolName strips any directory from a configured binary path for labels.
func toolName(bin string) string {
	if i := strings.LastIndexAny(bin, `/\`); i >= 0 {
		bin = bin[i+1:]
	}
	return strings.TrimSuffix(bin, ".exe")
}

// track registers a started process. A process started after Cleanup is
// killed immediately.
func (t *Transcoder) track(cmd *exec.Cmd) int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	t.nextID++
	t.processes[t.nextID] = cmd
	if t.closing && cmd.Process != nil {
		cmd.Process.Kill()
	}
	return t.nextID
}

func (t *Transcoder) isClosing() bool {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return t.closing
}

// untrack removes a finished process and reports whether shutdown killed it.
func (t *Transcoder) untrack(id int) bool {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	delete(t.processes, id)
	return t.closing
}

// ActiveProcesses returns the number of running subprocesses.
func (t *Transcoder) ActiveProcesses() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup kills every running subprocess. Runs that are killed, and any
// run attempted afterwards, return a Canceled error.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	t.closing = true
	for id, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoding process %d (pid %d)", id, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill transcoding process %d: %v", id, err)
			}
		}
	}
}

// String describes the transcoder for startup logs.
func (t *Transcoder) String() string {
	slots := "unbounded"
	if n := t.Slots(); n > 0 {
		slots = fmt.Sprintf("%d slots", n)
	}
	return fmt.Sprintf("ffmpeg=%s ffprobe=%s timeout=%v concurrency=%s", t.ffmpeg, t.ffprobe, t.timeout, slots)
}
