package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-converter/internal/compressor"
	"media-converter/internal/filesystem"
	"media-converter/internal/handlers"
	"media-converter/internal/logging"
	"media-converter/internal/media"
	"media-converter/internal/memory"
	"media-converter/internal/metrics"
	"media-converter/internal/middleware"
	"media-converter/internal/startup"
	"media-converter/internal/transcoder"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const (
	readHeaderTimeout = 15 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 30 * time.Second
	collectInterval   = time.Minute
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogMemoryConfig(memory.ConfigureFromEnv())

	if config.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     config.SentryDSN,
			Release: startup.Version,
		}); err != nil {
			logging.Warn("Sentry disabled: %v", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// Temp workspace
	ws, err := filesystem.NewWorkspace(config.TempDir)
	if err != nil {
		startup.LogFatal("Temp root unusable: %v", err)
	}
	swept, err := ws.Sweep()
	if err != nil {
		logging.Warn("Failed to sweep temp root: %v", err)
	}
	startup.LogWorkspaceInit(ws.Root(), swept)

	// Transcoder
	trans := transcoder.New(transcoder.Config{
		FFmpegPath:  config.FFmpegPath,
		FFprobePath: config.FFprobePath,
		Timeout:     config.TranscodeTimeout,
		Workers:     config.TranscodeWorkers,
	})
	startup.LogTranscoderInit(trans.CheckTools, trans.String())

	images, stopImages := newImageEngine(config.ImageEngine)
	defer stopImages()

	comp, err := compressor.New(compressor.Config{
		Runner:        trans,
		Prober:        trans,
		Images:        images,
		VideoStrategy: config.VideoStrategy,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize compressor: %v", err)
	}

	// Background monitors
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	collector := metrics.NewCollector(metrics.StatsFunc(func() metrics.Stats {
		files, bytes, err := ws.Usage()
		if err != nil {
			logging.Debug("Temp root usage unavailable: %v", err)
		}
		return metrics.Stats{TempFiles: files, TempBytes: bytes}
	}), collectInterval)
	collector.Start()

	h := handlers.New(ws, comp, handlers.Config{
		MaxUploadBytes: config.MaxUploadBytes,
		Ready:          trans.CheckTools,
	})

	router := setupRouter(h, memory.Guard(monitor), config.StaticDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           buildHandler(router, config),
		ReadHeaderTimeout: readHeaderTimeout,
		// Uploads and downloads can be gigabytes; the streaming writer
		// applies its own per-chunk deadlines.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  idleTimeout,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, trans, ws, func() {
			monitor.Stop()
			collector.Stop()
		})
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// newImageEngine picks the still-image encoder. Nil means ffmpeg.
func newImageEngine(engine string) (media.ImageEncoder, func()) {
	switch engine {
	case startup.ImageEngineNative:
		startup.LogImageEngine(engine, nil)
		return media.NewNativeEncoder(), func() {}
	case startup.ImageEngineVips:
		enc, err := media.NewVipsEncoder()
		startup.LogImageEngine(engine, err)
		if err != nil {
			return nil, func() {}
		}
		return enc, media.ShutdownVips
	default:
		startup.LogImageEngine(startup.ImageEngineFFmpeg, nil)
		return nil, func() {}
	}
}

func setupRouter(h *handlers.Handlers, guard mux.MiddlewareFunc, staticDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Format lookups
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/image/formats", h.ImageFormats).Methods("GET")
	api.HandleFunc("/video/formats", h.VideoFormats).Methods("GET")
	api.HandleFunc("/video/codecs", h.VideoCodecs).Methods("GET")

	// Uploads, refused while memory is critical
	work := api.NewRoute().Subrouter()
	work.Use(guard)
	work.HandleFunc("/image/convert", h.ConvertImage).Methods("POST")
	work.HandleFunc("/image/compress", h.CompressImage).Methods("POST")
	work.HandleFunc("/video/convert", h.ConvertVideo).Methods("POST")
	work.HandleFunc("/video/compress", h.CompressVideo).Methods("POST")
	work.HandleFunc("/media/info", h.MediaInfo).Methods("POST")

	// Static files
	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	} else {
		logging.Info("Frontend directory %s not found, serving API only", staticDir)
	}

	return r
}

// buildHandler wraps the router with metrics, access logging, gzip and
// CORS, outermost last.
func buildHandler(router *mux.Router, config *startup.Config) http.Handler {
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(router)

	compressed := middleware.Compression(middleware.DefaultCompressionConfig())(logged)

	return newCORS(config.CORSOrigins).Handler(compressed)
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition", "X-Compression-Quality", "X-Video-Bitrate-Kbps"},
	})
}

func newMetricsServer(port string, handler http.Handler) *http.Server {
	m := http.NewServeMux()
	m.Handle("/metrics", handler)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           m,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       idleTimeout,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, trans *transcoder.Transcoder, ws *filesystem.Workspace, stopBackground func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping background monitors")
	stopBackground()
	startup.LogShutdownStepComplete("Monitors stopped")

	startup.LogShutdownStep("Killing running transcodes")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownStep("Sweeping temp root")
	if n, err := ws.Sweep(); err != nil {
		logging.Warn("Temp sweep failed: %v", err)
	} else {
		startup.LogShutdownStepComplete(fmt.Sprintf("Removed %d temp files", n))
	}

	startup.LogShutdownComplete()
}
