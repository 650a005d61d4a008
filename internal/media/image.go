package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"os"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decode support
)

// ErrUnsupportedFormat is returned by an encoder that cannot produce the
// requested output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// DecodeError reports an input the engine could not read as an image. The
// upload itself is at fault, not the engine.
type DecodeError struct {
	Engine string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s engine could not decode the image: %v", e.Engine, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeFailure wraps err as a DecodeError unless the input file itself
// was unreadable.
func decodeFailure(engine string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("failed to open image: %w", err)
	}
	return &DecodeError{Engine: engine, Err: err}
}

// NativeEncoder encodes images in-process with pure Go codecs. It covers the
// common formats without shelling out, which keeps small image jobs off the
// transcoder entirely. AVIF is not supported.
type NativeEncoder struct{}

// NewNativeEncoder returns the in-process image engine.
func NewNativeEncoder() *NativeEncoder {
	return &NativeEncoder{}
}

// Supports reports whether format can be written by the native engine.
func (e *NativeEncoder) Supports(format string) bool {
	switch mediatypes.NormalizeFormat(format) {
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp":
		return true
	default:
		return false
	}
}

// EncodeImage decodes input with EXIF auto-orientation and writes it to
// output in format.
func (e *NativeEncoder) EncodeImage(ctx context.Context, input, output, format string, quality int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format = mediatypes.NormalizeFormat(format)
	if !e.Supports(format) {
		return fmt.Errorf("native engine: %w: %s", ErrUnsupportedFormat, format)
	}

	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return decodeFailure("native", err)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	w := bufio.NewWriter(f)

	err = encodeNative(w, img, format, clampQuality(quality))
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(output)
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}

	logging.Debug("Native engine wrote %s at quality %d", format, quality)
	return nil
}

func encodeNative(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "jpg", "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "png":
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "gif":
		return imaging.Encode(w, img, imaging.GIF)
	case "bmp":
		return imaging.Encode(w, img, imaging.BMP)
	case "tiff":
		return imaging.Encode(w, img, imaging.TIFF)
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	}
	return ErrUnsupportedFormat
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	default:
		return q
	}
}
