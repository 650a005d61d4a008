package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-converter/internal/logging"
)

// Workspace owns the temp root where uploads and artifacts are staged.
// Every file gets a random name, so concurrent requests never collide and
// no locking is needed between them.
type Workspace struct {
	root  string
	retry RetryConfig
}

// NewWorkspace resolves root to an absolute path, creates it if needed and
// verifies it is writable.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("temp root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve temp root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root %s: %w", abs, err)
	}

	probe := filepath.Join(abs, ".write-test-"+uuid.NewString())
	f, err := os.Create(probe)
	if err != nil {
		return nil, fmt.Errorf("temp root %s is not writable: %w", abs, err)
	}
	f.Close()
	os.Remove(probe)

	return &Workspace{root: abs, retry: DefaultRetryConfig()}, nil
}

// Root returns the absolute temp root.
func (w *Workspace) Root() string {
	return w.root
}

// NewPath returns a fresh path under the root. ext may be given with or
// without the leading dot; an empty ext yields a bare uuid name. The file is
// not created.
func (w *Workspace) NewPath(ext string) string {
	name := uuid.NewString()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return filepath.Join(w.root, name)
}

// Save copies r into a new file under the root and returns its path and
// size. A partially written file is removed on error.
func (w *Workspace) Save(r io.Reader, ext string) (string, int64, error) {
	path := w.NewPath(ext)
	start := time.Now()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		observe().ObserveOperation("write", time.Since(start).Seconds(), err)
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	observe().ObserveOperation("write", time.Since(start).Seconds(), err)
	if err != nil {
		w.Remove(path)
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	}
	return path, n, nil
}

// Size returns the size of path in bytes.
func (w *Workspace) Size(path string) (int64, error) {
	info, err := StatWithRetry(path, w.retry)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open opens path for reading.
func (w *Workspace) Open(path string) (*os.File, error) {
	return OpenWithRetry(path, w.retry)
}

// Remove deletes path. Missing files are ignored.
func (w *Workspace) Remove(path string) error {
	return RemoveWithRetry(path, w.retry)
}

// Sweep deletes every entry in the root. Used at shutdown to clear files
// left behind by requests that were interrupted.
func (w *Workspace) Sweep() (int, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return 0, fmt.Errorf("read temp root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(w.root, entry.Name())); err != nil {
			logging.Warn("Failed to remove %s during sweep: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Usage reports how many files sit in the root and their total size.
// Entries that vanish mid-walk are skipped.
func (w *Workspace) Usage() (files int, bytes int64, err error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return 0, 0, fmt.Errorf("read temp root: %w", err)
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.IsDir() {
			continue
		}
		files++
		bytes += info.Size()
	}
	return files, bytes, nil
}

// NewScope starts tracking files for one request.
func (w *Workspace) NewScope() *Scope {
	return &Scope{ws: w}
}

// Scope collects the temp files created on behalf of a single request so
// they can all be deleted together, whatever path the request took.
type Scope struct {
	ws    *Workspace
	mu    sync.Mutex
	paths []string
}

// NewPath returns a tracked path under the workspace root.
func (s *Scope) NewPath(ext string) string {
	path := s.ws.NewPath(ext)
	s.Track(path)
	return path
}

// Save persists r as a tracked file.
func (s *Scope) Save(r io.Reader, ext string) (string, int64, error) {
	path, n, err := s.ws.Save(r, ext)
	if err != nil {
		return "", 0, err
	}
	s.Track(path)
	return path, n, nil
}

// Track adds paths created elsewhere to the scope.
func (s *Scope) Track(paths ...string) {
	s.mu.Lock()
	s.paths = append(s.paths, paths...)
	s.mu.Unlock()
}

// Paths returns the tracked paths in creation order.
func (s *Scope) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Cleanup deletes every tracked file. Failures are logged and counted, never
// returned: the response has usually been sent by the time this runs.
func (s *Scope) Cleanup() {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	for _, path := range paths {
		if err := s.ws.Remove(path); err != nil {
			logging.Warn("Failed to clean up temp file %s: %v", path, err)
			observe().ObserveCleanupFailure()
		}
	}
}
