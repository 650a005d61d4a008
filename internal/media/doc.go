// Package media holds the probed Metadata type and the in-process image
// engines.
//
// Two engines implement ImageEncoder without calling ffmpeg:
//   - NativeEncoder: pure Go (imaging for jpeg/png/gif/bmp/tiff, chai2010/webp
//     for webp). No cgo.
//   - VipsEncoder: libvips via govips, adding AVIF output.
//
// The ffmpeg engine lives in the transcoder package. IMAGE_ENGINE selects
// which one the server uses.
package media
