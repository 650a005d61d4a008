package media

import (
	"context"
	"fmt"
	"os"
	"sync"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
)

// vipsLogSettings maps the application log level to the lowest libvips
// level worth forwarding.
func vipsLogSettings(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	var minLevel vips.LogLevel
	switch level {
	case logging.LevelDebug:
		minLevel = vips.LogLevelInfo
	case logging.LevelInfo:
		minLevel = vips.LogLevelWarning
	case logging.LevelWarn:
		minLevel = vips.LogLevelError
	default:
		minLevel = vips.LogLevelCritical
	}

	handler := func(domain string, l vips.LogLevel, msg string) {
		switch l {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
	return minLevel, handler
}

// InitVips starts libvips. Safe to call more than once.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	minLevel, handler := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, minLevel)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips. govips cannot restart after shutdown, so
// call this only when the process is exiting.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsInitialized
}

// VipsEncoder encodes images through libvips. Unlike the native engine it
// can write AVIF.
type VipsEncoder struct{}

// NewVipsEncoder initializes libvips and returns the engine.
func NewVipsEncoder() (*VipsEncoder, error) {
	if err := InitVips(); err != nil {
		return nil, err
	}
	return &VipsEncoder{}, nil
}

// Supports reports whether format can be written by libvips.
func (e *VipsEncoder) Supports(format string) bool {
	switch mediatypes.NormalizeFormat(format) {
	case "jpg", "jpeg", "png", "webp", "avif", "tiff", "gif":
		return true
	default:
		return false
	}
}

// EncodeImage loads input with auto-rotation and exports it as format.
func (e *VipsEncoder) EncodeImage(ctx context.Context, input, output, format string, quality int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format = mediatypes.NormalizeFormat(format)
	if !e.Supports(format) {
		return fmt.Errorf("vips engine: %w: %s", ErrUnsupportedFormat, format)
	}

	ref, err := vips.LoadImageFromFile(input, vips.NewImportParams())
	if err != nil {
		return decodeFailure("vips", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return fmt.Errorf("vips auto-rotate failed: %w", err)
	}

	data, err := exportVips(ref, format, clampQuality(quality))
	if err != nil {
		return fmt.Errorf("vips export %s failed: %w", format, err)
	}

	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logging.Debug("Vips engine wrote %s (%d bytes) at quality %d", format, len(data), quality)
	return nil
}

func exportVips(ref *vips.ImageRef, format string, quality int) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case "jpg", "jpeg":
		params := vips.NewJpegExportParams()
		params.Quality = quality
		params.OptimizeCoding = true
		data, _, err = ref.ExportJpeg(params)
	case "png":
		params := vips.NewPngExportParams()
		params.Compression = 6
		data, _, err = ref.ExportPng(params)
	case "webp":
		params := vips.NewWebpExportParams()
		params.Quality = quality
		data, _, err = ref.ExportWebp(params)
	case "avif":
		params := vips.NewAvifExportParams()
		params.Quality = quality
		data, _, err = ref.ExportAvif(params)
	case "tiff":
		params := vips.NewTiffExportParams()
		params.Quality = quality
		data, _, err = ref.ExportTiff(params)
	case "gif":
		params := vips.NewGifExportParams()
		params.Quality = quality
		data, _, err = ref.ExportGIF(params)
	default:
		err = ErrUnsupportedFormat
	}
	return data, err
}
