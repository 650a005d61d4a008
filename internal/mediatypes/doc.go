// Package mediatypes holds the format, codec and preset tables shared by the
// converter's HTTP layer, transcoder and compressor.
//
// It has no dependencies outside the standard library so any package can
// import it without creating cycles.
//
// # Formats
//
// ImageFormats, VideoFormats and VideoCodecs return the lists reported by the
// formats endpoints. Membership checks normalize case and a leading dot:
//
//	mediatypes.IsImageFormat(".JPG") // true
//
// # Codec defaults
//
// Plain conversion and target-size compression pick different defaults when
// no codec is given. See DefaultConvertCodec and DefaultCompressCodec.
//
// # Presets
//
// QualityPreset maps low, medium and high to a CRF value:
//
//	mediatypes.PresetHigh.CRF() // 18
package mediatypes
