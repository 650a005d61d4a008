package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"media-converter/internal/compressor"
	"media-converter/internal/estimator"
	"media-converter/internal/media"
)

// These tests drive the real compressor with the pure-Go image engine, so
// they need no ffmpeg.

type refusingRunner struct{}

func (refusingRunner) Run(context.Context, ...string) error {
	return errors.New("ffmpeg should not be invoked")
}

type emptyProber struct{}

func (emptyProber) Probe(context.Context, string) (media.Metadata, error) {
	return media.Metadata{}, nil
}

func gradientPNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / size), G: uint8(y * 255 / size), B: uint8((x ^ y) & 0xff), A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newNativeHandlers(t *testing.T) (*Handlers, string) {
	t.Helper()
	comp, err := compressor.New(compressor.Config{
		Runner: refusingRunner{},
		Prober: emptyProber{},
		Images: media.NewNativeEncoder(),
	})
	if err != nil {
		t.Fatalf("compressor.New: %v", err)
	}
	return newTestHandlers(t, comp, Config{})
}

func TestNativeConvertImage(t *testing.T) {
	h, root := newNativeHandlers(t)

	rec := httptest.NewRecorder()
	h.ConvertImage(rec, multipartRequest(t, "/api/image/convert",
		map[string]string{"target_format": "jpg", "quality": "80"}, "gradient.png", gradientPNG(t, 64)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	img, err := jpeg.Decode(rec.Body)
	if err != nil {
		t.Fatalf("response is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("bounds = %v", b)
	}
	assertWorkspaceEmpty(t, root)
}

func TestNativeCompressImage(t *testing.T) {
	h, root := newNativeHandlers(t)

	rec := httptest.NewRecorder()
	h.CompressImage(rec, multipartRequest(t, "/api/image/compress",
		map[string]string{"target_size_kb": "4", "format": "jpg"}, "gradient.png", gradientPNG(t, 128)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	q, err := strconv.Atoi(rec.Header().Get("X-Compression-Quality"))
	if err != nil {
		t.Fatalf("X-Compression-Quality: %v", err)
	}
	if q < estimator.MinQuality || q > estimator.MaxQuality {
		t.Errorf("quality %d outside [%d, %d]", q, estimator.MinQuality, estimator.MaxQuality)
	}
	if _, err := jpeg.Decode(rec.Body); err != nil {
		t.Errorf("response is not a JPEG: %v", err)
	}
	assertWorkspaceEmpty(t, root)
}

func TestNativeTruncatedImage(t *testing.T) {
	// The PNG signature passes the upload sniff but the body cannot decode.
	truncated := gradientPNG(t, 64)[:40]

	tests := []struct {
		name    string
		handler func(*Handlers) http.HandlerFunc
		path    string
		fields  map[string]string
	}{
		{"convert", func(h *Handlers) http.HandlerFunc { return h.ConvertImage }, "/api/image/convert", map[string]string{"target_format": "jpg"}},
		{"compress", func(h *Handlers) http.HandlerFunc { return h.CompressImage }, "/api/image/compress", map[string]string{"target_size_kb": "4", "format": "jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, root := newNativeHandlers(t)

			rec := httptest.NewRecorder()
			tt.handler(h)(rec, multipartRequest(t, tt.path, tt.fields, "broken.png", truncated))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if msg := decodeError(t, rec); !strings.Contains(msg, "decode") {
				t.Errorf("error = %q, want a decode failure", msg)
			}
			assertWorkspaceEmpty(t, root)
		})
	}
}

func TestNativeVideoProbeFailure(t *testing.T) {
	h, root := newNativeHandlers(t)

	// emptyProber reports no duration, so the bitrate cannot be derived.
	rec := httptest.NewRecorder()
	h.CompressVideo(rec, multipartRequest(t, "/api/video/compress",
		map[string]string{"target_size_mb": "1", "format": "mp4"}, "clip.mp4", mp4Bytes))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
	if msg := decodeError(t, rec); msg == "" {
		t.Error("empty error message")
	}
	assertWorkspaceEmpty(t, root)
}
