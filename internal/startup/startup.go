package startup

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-converter/internal/logging"
	"media-converter/internal/memory"
)

// Build information, set via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo is served by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the build information of the running binary.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func section(title string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          ______                          __
   /  |/  /__  ____/ (_)___ _   / ____/___  ____ _   _____  ____/ /_
  / /|_/ / _ \/ __  / / __ '/  / /   / __ \/ __ \ | / / _ \/ __/ __/
 / /  / /  __/ /_/ / / /_/ /  / /___/ /_/ / / / / |/ /  __/ / / /_
/_/  /_/\___/\__,_/_/\__,_/   \____/\____/_/ /_/|___/\___/_/  \__/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

// LogMemoryConfig reports how GOMEMLIMIT was configured.
func LogMemoryConfig(result memory.ConfigResult) {
	section("MEMORY")
	if !result.Configured {
		logging.Info("  Memory limit: not configured (set MEMORY_LIMIT to enable the memory guard)")
		return
	}
	logging.Info("  Source:      %s", result.Source)
	logging.Info("  GOMEMLIMIT:  %s", FormatBytes(result.GoMemLimit))
	if result.Source == "MEMORY_LIMIT" {
		logging.Info("  Container:   %s (ratio %.2f)", FormatBytes(result.ContainerLimit), result.Ratio)
	}
}

// LogWorkspaceInit reports the temp root and anything swept from it.
func LogWorkspaceInit(root string, swept int) {
	section("TEMP WORKSPACE")
	logging.Info("  Root: %s", root)
	if swept > 0 {
		logging.Info("  Removed %d leftover files from a previous run", swept)
	}
	logging.Info("  [OK] Temp root is writable")
}

// LogTranscoderInit reports tool availability. A failed check is logged,
// not fatal: /readyz reports it instead.
func LogTranscoderInit(check func() error, describe string) bool {
	section("TRANSCODER INITIALIZATION")
	logging.Info("  %s", describe)

	if err := check(); err != nil {
		logging.Warn("  ffmpeg/ffprobe check failed: %v", err)
		logging.Warn("  Conversions will fail until the tools are installed")
		return false
	}
	logging.Info("  [OK] ffmpeg and ffprobe are available")
	return true
}

// LogImageEngine reports which engine encodes stills.
func LogImageEngine(engine string, fallback error) {
	if fallback != nil {
		logging.Warn("  Image engine %s unavailable (%v), using ffmpeg", engine, fallback)
		return
	}
	logging.Info("  Image engine: %s", engine)
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes lists every route registered on router.
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			// Routes built only from matchers have no template.
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: tmpl, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes prints the route table at debug level and the access log
// settings at info level.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			g := routeGroup(route.Path)
			groups[g] = append(groups[g], route)
		}
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, g := range keys {
			logging.Debug("  [%s]", g)
			for _, route := range groups[g] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  Static file logging:  %s", onOff(logStaticFiles))
	logging.Info("  Health check logging: %s", onOff(logHealthChecks))
}

// routeGroup groups /api/<kind>/... routes by kind.
func routeGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "" {
		return "root"
	}
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	return parts[0]
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// ServerConfig is what LogServerStarted prints.
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted prints the listening endpoints.
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Application:     http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated marks the start of graceful shutdown.
func LogShutdownInitiated(signal string) {
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a step before it runs.
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a finished step.
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs the end of shutdown.
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs and exits.
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}

// FormatBytes renders b with binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
