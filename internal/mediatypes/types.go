package mediatypes

import (
	"path/filepath"
	"slices"
	"strings"
)

// Kind distinguishes the two media families the converter handles.
type Kind string

const (
	// KindImage is a still image.
	KindImage Kind = "image"
	// KindVideo is a video container, possibly with audio.
	KindVideo Kind = "video"
)

// imageFormats lists output formats accepted on the image routes, in the
// order they are reported to clients.
var imageFormats = []string{"jpg", "jpeg", "png", "webp", "avif", "bmp", "tiff", "gif"}

// videoFormats lists output containers accepted on the video routes.
var videoFormats = []string{"mp4", "webm", "avi", "mkv", "mov", "flv"}

// videoCodecs lists encoder names that may be requested explicitly.
var videoCodecs = []string{"libx264", "libx265", "libvpx", "libvpx-vp9", "mpeg4"}

// ImageFormats returns a copy of the supported image output formats.
func ImageFormats() []string { return slices.Clone(imageFormats) }

// VideoFormats returns a copy of the supported video output formats.
func VideoFormats() []string { return slices.Clone(videoFormats) }

// VideoCodecs returns a copy of the supported video codecs.
func VideoCodecs() []string { return slices.Clone(videoCodecs) }

// IsImageFormat reports whether format is a supported image output format.
func IsImageFormat(format string) bool {
	return slices.Contains(imageFormats, NormalizeFormat(format))
}

// IsVideoFormat reports whether format is a supported video container.
func IsVideoFormat(format string) bool {
	return slices.Contains(videoFormats, NormalizeFormat(format))
}

// IsVideoCodec reports whether codec is one of the known encoder names.
func IsVideoCodec(codec string) bool {
	return slices.Contains(videoCodecs, strings.TrimSpace(codec))
}

// NormalizeFormat lowercases a format name and strips a leading dot, so
// ".JPG" and "jpg" compare equal.
func NormalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// Extension returns the lowercase extension of filename without the dot.
func Extension(filename string) string {
	return NormalizeFormat(filepath.Ext(filename))
}

// Stem returns filename without directory or extension. An empty result
// becomes "output" so download names are never blank.
func Stem(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "output"
	}
	return stem
}

// mimeTypes maps output formats to their registered MIME types. Formats not
// listed fall back to "<kind>/<format>".
var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"avif": "image/avif",
	"tiff": "image/tiff",

	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"flv":  "video/x-flv",
}

// ContentType returns the response MIME type for an artifact of the given
// kind and format.
func ContentType(kind Kind, format string) string {
	format = NormalizeFormat(format)
	if mime, ok := mimeTypes[format]; ok && strings.HasPrefix(mime, string(kind)+"/") {
		return mime
	}
	return string(kind) + "/" + format
}

// DefaultConvertCodec returns the video codec used by plain conversion when
// the caller did not pick one. Containers without a default return "" and
// leave codec selection to the transcoder.
func DefaultConvertCodec(format string) string {
	switch NormalizeFormat(format) {
	case "mp4":
		return "libx264"
	case "webm":
		return "libvpx-vp9"
	default:
		return ""
	}
}

// DefaultCompressCodec returns the codec used by target-size compression
// when none was given. Two-pass rate control needs an explicit encoder, so
// every container other than mp4 gets VP9.
func DefaultCompressCodec(format string) string {
	if NormalizeFormat(format) == "mp4" {
		return "libx264"
	}
	return "libvpx-vp9"
}

// QualityPreset names a fixed rate-control level for plain video conversion.
type QualityPreset string

const (
	// PresetLow favors size over fidelity.
	PresetLow QualityPreset = "low"
	// PresetMedium is the default preset.
	PresetMedium QualityPreset = "medium"
	// PresetHigh favors fidelity over size.
	PresetHigh QualityPreset = "high"
)

var presetCRF = map[QualityPreset]int{
	PresetLow:    28,
	PresetMedium: 23,
	PresetHigh:   18,
}

// ParsePreset returns the preset named by s, ignoring case. Empty and
// unknown names give PresetMedium.
func ParsePreset(s string) QualityPreset {
	p := QualityPreset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := presetCRF[p]; ok {
		return p
	}
	return PresetMedium
}

// CRF returns the constant rate factor for the preset. Unknown presets map
// to the medium value.
func (p QualityPreset) CRF() int {
	if crf, ok := presetCRF[QualityPreset(strings.ToLower(string(p)))]; ok {
		return crf
	}
	return presetCRF[PresetMedium]
}
