package media

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestNativeEncoderFormats(t *testing.T) {
	dir := t.TempDir()
	src := writeNoisyJPEG(t, dir, 64, 48)
	enc := NewNativeEncoder()

	tests := []struct {
		format     string
		wantDecode string
	}{
		{"jpg", "jpeg"},
		{"jpeg", "jpeg"},
		{"png", "png"},
		{"gif", "gif"},
		{"bmp", "bmp"},
		{"tiff", "tiff"},
		{"webp", "webp"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out := filepath.Join(dir, "out."+tt.format)
			if err := enc.EncodeImage(context.Background(), src, out, tt.format, 85); err != nil {
				t.Fatalf("EncodeImage(%s): %v", tt.format, err)
			}

			f, err := os.Open(out)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			cfg, name, err := image.DecodeConfig(f)
			if err != nil {
				t.Fatalf("decode output: %v", err)
			}
			if name != tt.wantDecode {
				t.Errorf("Expected %s output, decoded as %s", tt.wantDecode, name)
			}
			if cfg.Width != 64 || cfg.Height != 48 {
				t.Errorf("Expected 64x48, got %dx%d", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestNativeEncoderRejectsAVIF(t *testing.T) {
	dir := t.TempDir()
	src := writeNoisyJPEG(t, dir, 8, 8)

	err := NewNativeEncoder().EncodeImage(context.Background(), src, filepath.Join(dir, "out.avif"), "avif", 80)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNativeEncoderMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := NewNativeEncoder().EncodeImage(context.Background(), filepath.Join(dir, "nope.jpg"), filepath.Join(dir, "out.jpg"), "jpg", 80)
	if err == nil {
		t.Error("Expected error for missing input")
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		t.Errorf("Expected a missing file not to be a DecodeError, got %v", err)
	}
}

func TestNativeEncoderCorruptInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(src, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := NewNativeEncoder().EncodeImage(context.Background(), src, filepath.Join(dir, "out.jpg"), "jpg", 80)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if decodeErr.Engine != "native" {
		t.Errorf("Expected engine native, got %q", decodeErr.Engine)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.jpg")); !os.IsNotExist(statErr) {
		t.Error("Expected no output for an undecodable input")
	}
}

func TestNativeEncoderCanceledContext(t *testing.T) {
	dir := t.TempDir()
	src := writeNoisyJPEG(t, dir, 8, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewNativeEncoder().EncodeImage(ctx, src, filepath.Join(dir, "out.jpg"), "jpg", 80); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// Output size must not shrink as quality rises across the search range.
func TestNativeEncoderQualityIsMonotonic(t *testing.T) {
	dir := t.TempDir()
	src := writeNoisyJPEG(t, dir, 256, 256)
	enc := NewNativeEncoder()

	for _, format := range []string{"jpg", "jpeg"} {
		t.Run(format, func(t *testing.T) {
			var prev int64
			for q := 70; q <= 95; q++ {
				out := filepath.Join(dir, "mono."+format)
				if err := enc.EncodeImage(context.Background(), src, out, format, q); err != nil {
					t.Fatalf("quality %d: %v", q, err)
				}
				info, err := os.Stat(out)
				if err != nil {
					t.Fatal(err)
				}
				if info.Size() < prev {
					t.Errorf("quality %d produced %d bytes, smaller than %d at quality %d", q, info.Size(), prev, q-1)
				}
				prev = info.Size()
			}
		})
	}
}

func TestClampQuality(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 1}, {0, 1}, {1, 1}, {85, 85}, {100, 100}, {150, 100},
	}
	for _, tt := range tests {
		if got := clampQuality(tt.in); got != tt.want {
			t.Errorf("clampQuality(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
