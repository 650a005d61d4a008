// Command mcompress compresses a local file to a target size using the
// same quality search and bitrate strategies as the media converter
// service.
//
// Usage:
//
//	mcompress <command> [arguments]
//
// Commands:
//
//	image <input> <target_kb> <format> [output]
//	        Search JPEG/WebP quality until the output lands near target_kb.
//
//	video <input> <target_mb> <format> [output]
//	        Two-pass encode at the bitrate that fits target_mb.
//
//	info <input>
//	        Print container, duration and video stream details.
//
// Without an explicit output the result is written next to the input as
// <name>_compressed.<format>.
//
// On a terminal the result is printed as a short report. When stdout is a
// pipe a single tab-separated line is printed instead:
//
//	<output path>	<size bytes>	<quality or kbps>
//
// Environment:
//
//	FFMPEG_PATH, FFPROBE_PATH, TRANSCODE_TIMEOUT, TRANSCODE_WORKERS,
//	VIDEO_STRATEGY and IMAGE_ENGINE are read as the server reads them.
package main
