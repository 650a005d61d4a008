package media

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// writeNoisyJPEG writes a deterministic image with enough high-frequency
// detail that encoder quality visibly changes output size.
func writeNoisyJPEG(t *testing.T, dir string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	seed := uint32(2463534242)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			img.Set(x, y, color.RGBA{
				R: uint8(x*255/width) ^ uint8(seed),
				G: uint8(y*255/height) ^ uint8(seed>>8),
				B: uint8(seed >> 16),
				A: 255,
			})
		}
	}

	path := filepath.Join(dir, "source.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("encode source: %v", err)
	}
	return path
}
