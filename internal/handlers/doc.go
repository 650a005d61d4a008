// Package handlers provides the HTTP handlers for the media converter API.
//
// It includes handlers for:
//   - Image conversion and target-size compression
//   - Video conversion and target-size compression
//   - Format, codec and media info lookups
//   - Health, readiness and version probes
//
// Uploads are streamed into a per-request [filesystem.Scope] and every
// temp file is removed once the response has been written, whether the
// request succeeded or not.
package handlers
