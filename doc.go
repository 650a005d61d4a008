// Package main provides the entry point for the media converter service.
//
// The service accepts an uploaded image or video, runs it through ffmpeg and
// streams the result back as a download. Two operations are offered per
// media kind: plain format conversion, and compression to a target file
// size.
//
// # Application Lifecycle
//
//  1. Configuration Loading: .env, optional CONFIG_FILE YAML, then the
//     environment
//  2. Memory Configuration: GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
//  3. Temp Workspace: the temp root is created, checked for writability
//     and swept of files left by a previous run
//  4. Component Initialization:
//     - Transcoder: ffmpeg/ffprobe runner with timeout and optional
//     process limit
//     - Image Engine: ffmpeg, pure Go (native) or libvips (vips)
//     - Compressor: quality search for images, bitrate strategies for video
//     - Memory Monitor and Metrics Collector
//  5. HTTP Server Setup: routes, middleware and the optional metrics server
//  6. Graceful Shutdown: SIGINT/SIGTERM kills running ffmpeg processes,
//     drains HTTP and sweeps the temp root
//
// # HTTP Server
//
//  1. Main Server (default port 8080):
//     - POST /api/image/convert, /api/image/compress
//     - POST /api/video/convert, /api/video/compress
//     - POST /api/media/info
//     - GET /api/image/formats, /api/video/formats, /api/video/codecs
//     - GET /api/health, /healthz, /livez, /readyz, /version
//     - Static frontend from STATIC_DIR, when present
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
//   - PORT, METRICS_PORT, METRICS_ENABLED
//   - TEMP_DIR: temp root (default: $TMPDIR/media-converter)
//   - TRANSCODE_TIMEOUT: per-process wall clock limit (default: 1h)
//   - TRANSCODE_WORKERS: concurrent ffmpeg limit; 0 unbounded, "auto" per CPU
//   - MAX_UPLOAD_MB: upload size limit (default: 2048)
//   - FFMPEG_PATH, FFPROBE_PATH
//   - VIDEO_STRATEGY: oneshot or feedback
//   - IMAGE_ENGINE: ffmpeg, native or vips
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - STATIC_DIR, CORS_ORIGINS, SENTRY_DSN
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT
//   - CONFIG_FILE: YAML file supplying defaults for any of the above
//
// # Build Requirements
//
// ffmpeg and ffprobe must be on PATH at runtime. The vips engine needs CGO
// and libvips; the ffmpeg and native engines do not use it at runtime.
//
// # Related Packages
//
//   - [media-converter/internal/compressor]: convert and compress operations
//   - [media-converter/internal/estimator]: quality and bitrate strategies
//   - [media-converter/internal/transcoder]: ffmpeg and ffprobe invocation
//   - [media-converter/internal/handlers]: HTTP request handlers
//   - [media-converter/internal/middleware]: logging, metrics and gzip
//   - [media-converter/internal/startup]: configuration and initialization
package main
