package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"media-converter/internal/estimator"
	"media-converter/internal/logging"
	"media-converter/internal/transcoder"
	"media-converter/internal/workers"
)

// Image engines selectable with IMAGE_ENGINE.
const (
	ImageEngineFFmpeg = "ffmpeg"
	ImageEngineNative = "native"
	ImageEngineVips   = "vips"
)

// Config is the resolved service configuration.
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	// TempDir is the absolute temp root for uploads and artifacts.
	TempDir          string
	TranscodeTimeout time.Duration
	// TranscodeWorkers bounds concurrent ffmpeg processes. 0 is
	// unbounded, workers.Auto sizes from the CPU count.
	TranscodeWorkers int
	MaxUploadBytes   int64
	FFmpegPath       string
	FFprobePath      string
	VideoStrategy    string
	ImageEngine      string

	LogLevel        string
	LogStaticFiles  bool
	LogHealthChecks bool

	StaticDir   string
	CORSOrigins []string
	SentryDSN   string

	// ConfigFile is the YAML file defaults were read from, if any.
	ConfigFile string
}

// LookupFunc reads one configuration key. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadConfig prints the startup banner, loads .env and the optional
// CONFIG_FILE, then resolves the configuration from the environment.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("Failed to read .env: %v", err)
	}

	cfg, err := ParseConfig(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	if cfg.LogLevel != "" {
		if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logging.SetLevel(level)
		}
	}

	cfg.Log()
	return cfg, nil
}

// ParseConfig builds a Config from lookup. Values from the YAML file named
// by CONFIG_FILE fill in keys lookup does not set.
func ParseConfig(lookup LookupFunc) (*Config, error) {
	configFile, _ := lookup("CONFIG_FILE")

	defaults := map[string]string{}
	if configFile != "" {
		var err error
		if defaults, err = readConfigFile(configFile); err != nil {
			return nil, err
		}
	}

	env := layered{lookup: lookup, defaults: defaults}

	tempDir := env.str("TEMP_DIR", filepath.Join(os.TempDir(), "media-converter"))
	tempDir, err := filepath.Abs(tempDir)
	if err != nil {
		return nil, fmt.Errorf("resolve TEMP_DIR: %w", err)
	}

	cfg := &Config{
		Port:             env.str("PORT", "8080"),
		MetricsPort:      env.str("METRICS_PORT", "9090"),
		MetricsEnabled:   env.boolean("METRICS_ENABLED", true),
		TempDir:          tempDir,
		TranscodeTimeout: env.duration("TRANSCODE_TIMEOUT", transcoder.DefaultTimeout),
		FFmpegPath:       env.str("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:      env.str("FFPROBE_PATH", "ffprobe"),
		VideoStrategy:    strings.ToLower(env.str("VIDEO_STRATEGY", estimator.StrategyOneShot)),
		ImageEngine:      strings.ToLower(env.str("IMAGE_ENGINE", ImageEngineFFmpeg)),
		LogLevel:         env.str("LOG_LEVEL", ""),
		LogStaticFiles:   env.boolean("LOG_STATIC_FILES", false),
		LogHealthChecks:  env.boolean("LOG_HEALTH_CHECKS", true),
		StaticDir:        env.str("STATIC_DIR", "./frontend"),
		CORSOrigins:      splitList(env.str("CORS_ORIGINS", "*")),
		SentryDSN:        env.str("SENTRY_DSN", ""),
		ConfigFile:       configFile,
	}

	workersStr := env.str("TRANSCODE_WORKERS", "0")
	if strings.EqualFold(workersStr, "auto") {
		cfg.TranscodeWorkers = workers.Auto
	} else if cfg.TranscodeWorkers, err = strconv.Atoi(workersStr); err != nil || cfg.TranscodeWorkers < workers.Auto {
		return nil, fmt.Errorf("invalid TRANSCODE_WORKERS %q: want a count, 0 for unbounded or auto", workersStr)
	}

	maxUploadMB, err := strconv.ParseInt(env.str("MAX_UPLOAD_MB", "2048"), 10, 64)
	if err != nil || maxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", env.str("MAX_UPLOAD_MB", ""))
	}
	cfg.MaxUploadBytes = maxUploadMB << 20

	if !estimator.ValidVideoStrategy(cfg.VideoStrategy) {
		return nil, fmt.Errorf("invalid VIDEO_STRATEGY %q: want one of %s",
			cfg.VideoStrategy, strings.Join(estimator.VideoStrategies(), ", "))
	}

	switch cfg.ImageEngine {
	case ImageEngineFFmpeg, ImageEngineNative, ImageEngineVips:
	default:
		return nil, fmt.Errorf("invalid IMAGE_ENGINE %q: want ffmpeg, native or vips", cfg.ImageEngine)
	}

	if cfg.TranscodeTimeout <= 0 {
		return nil, fmt.Errorf("TRANSCODE_TIMEOUT must be positive, got %v", cfg.TranscodeTimeout)
	}

	return cfg, nil
}

// readConfigFile loads a flat YAML mapping. Keys are matched to
// environment names case-insensitively, so transcode_timeout sets
// TRANSCODE_TIMEOUT. Sequences are joined with commas.
func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			values[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("config file %s: key %q must be a scalar or list", path, k)
		default:
			values[key] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// layered resolves a key from lookup first, then the file defaults.
type layered struct {
	lookup   LookupFunc
	defaults map[string]string
}

func (l layered) get(key string) (string, bool) {
	if v, ok := l.lookup(key); ok && v != "" {
		return v, true
	}
	v, ok := l.defaults[key]
	return v, ok && v != ""
}

func (l layered) str(key, def string) string {
	if v, ok := l.get(key); ok {
		return v
	}
	return def
}

func (l layered) boolean(key string, def bool) bool {
	v, ok := l.get(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, v, def)
		return def
	}
	return parsed
}

func (l layered) duration(key string, def time.Duration) time.Duration {
	v, ok := l.get(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are seconds.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	logging.Warn("Invalid duration for %s: %q, using default: %v", key, v, def)
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Log prints the resolved configuration. The Sentry DSN is masked.
func (c *Config) Log() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if c.ConfigFile != "" {
		logging.Info("  CONFIG_FILE:         %s", c.ConfigFile)
	}
	logging.Info("  PORT:                %s", c.Port)
	logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", c.MetricsEnabled)
	logging.Info("  TEMP_DIR:            %s", c.TempDir)
	logging.Info("  TRANSCODE_TIMEOUT:   %v", c.TranscodeTimeout)
	logging.Info("  TRANSCODE_WORKERS:   %s", describeWorkers(c.TranscodeWorkers))
	logging.Info("  MAX_UPLOAD_MB:       %d", c.MaxUploadBytes>>20)
	logging.Info("  FFMPEG_PATH:         %s", c.FFmpegPath)
	logging.Info("  FFPROBE_PATH:        %s", c.FFprobePath)
	logging.Info("  VIDEO_STRATEGY:      %s", c.VideoStrategy)
	logging.Info("  IMAGE_ENGINE:        %s", c.ImageEngine)
	logging.Info("  STATIC_DIR:          %s", c.StaticDir)
	logging.Info("  CORS_ORIGINS:        %s", strings.Join(c.CORSOrigins, ", "))
	logging.Info("  SENTRY_DSN:          %s", maskSecret(c.SentryDSN))
	logging.Info("  LOG_STATIC_FILES:    %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if c.TranscodeWorkers == 0 {
		logging.Warn("  ffmpeg concurrency is unbounded; set TRANSCODE_WORKERS to cap it")
	}
	logging.Info("")
}

func describeWorkers(n int) string {
	switch {
	case n == 0:
		return "unbounded"
	case n == workers.Auto:
		return fmt.Sprintf("auto (%d)", workers.Resolve(n))
	default:
		return strconv.Itoa(n)
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}
