// Package startup loads configuration and prints the startup and shutdown
// log sections.
//
// # Configuration
//
// [LoadConfig] reads a .env file if present (existing environment values
// win), then the YAML file named by CONFIG_FILE, then the environment.
// Environment values override the file. YAML keys are the environment
// names in any case:
//
//	port: 8080
//	transcode_timeout: 30m
//	transcode_workers: auto
//	cors_origins: [https://app.example.com]
//
// Supported keys:
//
//   - PORT (8080), METRICS_PORT (9090), METRICS_ENABLED (true)
//   - TEMP_DIR ($TMPDIR/media-converter): temp root for uploads and outputs
//   - TRANSCODE_TIMEOUT (1h): wall-clock limit per ffmpeg run
//   - TRANSCODE_WORKERS (0): concurrent ffmpeg limit, 0 unbounded, "auto" per CPU
//   - MAX_UPLOAD_MB (2048)
//   - FFMPEG_PATH, FFPROBE_PATH
//   - VIDEO_STRATEGY (oneshot): oneshot or feedback
//   - IMAGE_ENGINE (ffmpeg): ffmpeg, native or vips
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - STATIC_DIR (./frontend), CORS_ORIGINS (*), SENTRY_DSN
//
// MEMORY_LIMIT, MEMORY_RATIO and GOMEMLIMIT are read by the memory package.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags and served by
// /version through [GetBuildInfo].
package startup
