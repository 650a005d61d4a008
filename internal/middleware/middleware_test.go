package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"media-converter/internal/metrics"
)

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := newStatusRecorder(w)

	if rec.statusCode != http.StatusOK {
		t.Errorf("Expected default status 200, got %d", rec.statusCode)
	}

	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.statusCode != http.StatusNotFound {
		t.Errorf("Expected first status to stick, got %d", rec.statusCode)
	}

	n, err := rec.Write([]byte("hello"))
	if err != nil || n != 5 || rec.bytesWritten != 5 {
		t.Errorf("Write() = (%d, %v), bytesWritten=%d", n, err, rec.bytesWritten)
	}

	if rec.Unwrap() != w {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"api call", "/api/image/convert", DefaultLoggingConfig(), false},
		{"frontend asset", "/app.js", DefaultLoggingConfig(), true},
		{"frontend asset logged", "/app.js", LoggingConfig{SkipExtensions: []string{".js"}, LogStaticFiles: true}, false},
		{"api path with image extension", "/api/files/photo.jpg", DefaultLoggingConfig(), false},
		{"health logged by default", "/healthz", DefaultLoggingConfig(), false},
		{"health skipped", "/api/health", LoggingConfig{LogHealthChecks: false}, true},
		{"explicit skip", "/metrics", LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkip(tt.path, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLoggerWritesW3CLine(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultLoggingConfig()
	config.Output = log.New(&buf, "", 0)

	handler := Logger(config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/image/compress?x=1", strings.NewReader("12345"))
	req.Header.Set("User-Agent", "curl/8.0 (evil)\nINJECTED")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := strings.TrimSpace(buf.String())
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("Expected exactly one log line, got %q", buf.String())
	}

	fields := strings.Fields(line)
	if len(fields) < 12 {
		t.Fatalf("Expected at least 12 fields, got %d: %q", len(fields), line)
	}
	want := map[int]string{2: "203.0.113.9", 3: "POST", 4: "/api/image/compress", 5: "x=1", 6: "400", 7: "5", 8: "15"}
	for i, v := range want {
		if fields[i] != v {
			t.Errorf("Field %d = %q, want %q (line %q)", i, fields[i], v, line)
		}
	}
	if !strings.Contains(line, `"curl/8.0 (evil) INJECTED"`) {
		t.Errorf("Expected sanitized, quoted user agent in %q", line)
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := map[string]string{
		"plain":          "plain",
		"a\nb\rc":        "a b c",
		"nul\x00byte":    "nulbyte",
		"esc\x1b[31mred": "esc[31mred",
		"tab\tkept":      "tab\tkept",
	}
	for in, want := range tests {
		if got := sanitizeLogField(in); got != want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "4.3.2.1"}, "9.9.9.9:1", "4.3.2.1"},
		{"remote addr", nil, "192.0.2.1:54321", "192.0.2.1"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompressionMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		body              string
		contentType       string
		acceptEncoding    string
		expectCompression bool
	}{
		{"large JSON", strings.Repeat(`{"formats":["jpg"]}`, 200), "application/json", "gzip", true},
		{"small JSON", `{"status":"healthy"}`, "application/json", "gzip", false},
		{"converted image", strings.Repeat("data", 500), "image/webp", "gzip", false},
		{"video artifact", strings.Repeat("data", 500), "video/mp4", "gzip, deflate", false},
		{"client without gzip", strings.Repeat("data", 500), "text/html", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.body))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/image/formats", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			compressed := w.Header().Get("Content-Encoding") == "gzip"
			if compressed != tt.expectCompression {
				t.Fatalf("Expected compression=%v, got %v", tt.expectCompression, compressed)
			}

			body := w.Body.Bytes()
			if compressed {
				gr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatal(err)
				}
				defer gr.Close()
				if body, err = io.ReadAll(gr); err != nil {
					t.Fatal(err)
				}
			}
			if string(body) != tt.body {
				t.Error("Body does not round-trip")
			}
		})
	}
}

func TestCompressionKeepsStatusAndMultipleWrites(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		for i := 0; i < 100; i++ {
			w.Write([]byte(`{"error":"target size too small for video duration"}`))
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/video/compress", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 to survive buffering, got %d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("Expected gzip for a large JSON body")
	}
}

func TestGzipWriterUnwrap(t *testing.T) {
	w := httptest.NewRecorder()
	g := newGzipResponseWriter(w, DefaultCompressionConfig())
	if g.Unwrap() != w {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/api/image/convert", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {})
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/image/convert", "400")
	before := testutil.ToFloat64(counter)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/image/convert", http.NoBody))
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("Expected one recorded request, got %v", got-before)
	}

	static := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "static", "200")
	before = testutil.ToFloat64(static)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/app.3f9a.js", http.NoBody))
	if got := testutil.ToFloat64(static); got != before+1 {
		t.Errorf("Expected frontend assets under one label, got %v", got-before)
	}

	health := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/health", "200")
	before = testutil.ToFloat64(health)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))
	if got := testutil.ToFloat64(health); got != before {
		t.Error("Expected health checks to be skipped")
	}
}

func TestMetricsInFlightReturnsToZero(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Millisecond)
	}))
	before := testutil.ToFloat64(metrics.HTTPRequestsInFlight)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/nope", http.NoBody))
	if got := testutil.ToFloat64(metrics.HTTPRequestsInFlight); got != before {
		t.Errorf("Expected in-flight gauge back at %v, got %v", before, got)
	}
}
