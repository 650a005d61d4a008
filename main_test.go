package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-converter/internal/compressor"
	"media-converter/internal/estimator"
	"media-converter/internal/filesystem"
	"media-converter/internal/handlers"
	"media-converter/internal/media"
	"media-converter/internal/mediatypes"
	"media-converter/internal/startup"
)

type idleConverter struct{}

func (idleConverter) Probe(context.Context, string) (media.Metadata, error) {
	return media.Metadata{}, nil
}

func (idleConverter) ConvertImage(context.Context, string, string, string, int) (compressor.Result, error) {
	return compressor.Result{}, nil
}

func (idleConverter) ConvertVideo(context.Context, string, string, string, string, mediatypes.QualityPreset) (compressor.Result, error) {
	return compressor.Result{}, nil
}

func (idleConverter) CompressImage(context.Context, string, string, estimator.Target) (compressor.Result, error) {
	return compressor.Result{}, nil
}

func (idleConverter) CompressVideo(context.Context, string, string, estimator.Target) (compressor.Result, error) {
	return compressor.Result{}, nil
}

func newTestHandlers(t *testing.T) *handlers.Handlers {
	t.Helper()
	ws, err := filesystem.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return handlers.New(ws, idleConverter{}, handlers.Config{})
}

// refuseAll stands in for the memory guard in its critical state.
func refuseAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
}

func TestSetupRouter(t *testing.T) {
	router := setupRouter(newTestHandlers(t), refuseAll, filepath.Join(t.TempDir(), "missing"))

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodHead, "/livez", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/api/image/formats", http.StatusOK},
		{http.MethodGet, "/api/video/formats", http.StatusOK},
		{http.MethodGet, "/api/video/codecs", http.StatusOK},
		// Upload routes sit behind the guard.
		{http.MethodPost, "/api/image/convert", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/image/compress", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/video/convert", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/video/compress", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/media/info", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/nothing-here", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, http.NoBody))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestSetupRouterServesFrontend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>converter</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	router := setupRouter(newTestHandlers(t), refuseAll, dir)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "converter") {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBuildHandlerCORS(t *testing.T) {
	config := &startup.Config{CORSOrigins: []string{"*"}}
	handler := buildHandler(setupRouter(newTestHandlers(t), refuseAll, t.TempDir()), config)

	req := httptest.NewRequest(http.MethodGet, "/api/image/formats", http.NoBody)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	exposed := rec.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"X-Compression-Quality", "X-Video-Bitrate-Kbps", "Content-Disposition"} {
		if !strings.Contains(exposed, h) {
			t.Errorf("Access-Control-Expose-Headers %q missing %s", exposed, h)
		}
	}
}

func TestNewCORSRestrictsOrigins(t *testing.T) {
	handler := newCORS([]string{"https://app.example.com"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		origin string
		allow  string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.allow {
			t.Errorf("origin %s: Access-Control-Allow-Origin = %q, want %q", tt.origin, got, tt.allow)
		}
	}
}

func TestNewMetricsServer(t *testing.T) {
	srv := newMetricsServer("9191", http.NotFoundHandler())

	if srv.Addr != ":9191" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 || srv.ReadHeaderTimeout <= 0 {
		t.Errorf("metrics server timeouts must be set: %+v", srv)
	}
}

func TestNewImageEngine(t *testing.T) {
	tests := []struct {
		engine string
		native bool
	}{
		{startup.ImageEngineFFmpeg, false},
		{startup.ImageEngineNative, true},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			enc, stop := newImageEngine(tt.engine)
			defer stop()

			_, isNative := enc.(*media.NativeEncoder)
			if isNative != tt.native {
				t.Errorf("engine %T, native = %v", enc, isNative)
			}
		})
	}
}
