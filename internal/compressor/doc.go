// Package compressor turns an uploaded file into a converted or
// size-targeted artifact.
//
// Plain conversions run one encode. Target-size compression drives an
// [estimator.Strategy] through estimate, encode, measure and adjust until
// the strategy accepts the artifact or asks for one final encode:
//
//	images: quality search over [70, 95], each encode overwrites the output
//	video:  probe duration, derive a bitrate, two-pass encode
//
// Two-pass encodes write ffmpeg stats next to the output under
// "<output>_passlog". Those files are removed on every return path. Every
// successful run is checked for a non-empty output; a missing or empty file
// is reported as [ArtifactMissingError].
//
// Image encodes go to the configured [media.ImageEncoder]. When that
// engine cannot write the requested format the ffmpeg mapping is used
// instead.
package compressor
