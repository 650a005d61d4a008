package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"media-converter/internal/compressor"
	"media-converter/internal/estimator"
	"media-converter/internal/logging"
	"media-converter/internal/media"
	"media-converter/internal/mediatypes"
	"media-converter/internal/startup"
	"media-converter/internal/transcoder"

	"golang.org/x/term"
)

// converter is the part of the compressor this tool drives.
type converter interface {
	Probe(ctx context.Context, path string) (media.Metadata, error)
	CompressImage(ctx context.Context, input, output string, target estimator.Target) (compressor.Result, error)
	CompressVideo(ctx context.Context, input, output string, target estimator.Target) (compressor.Result, error)
}

type converterFactory func(config *startup.Config) (converter, error)

func main() {
	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping ffmpeg...")
		cancel()
	}()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, interactive, newConverter))
}

func newConverter(config *startup.Config) (converter, error) {
	trans := transcoder.New(transcoder.Config{
		FFmpegPath:  config.FFmpegPath,
		FFprobePath: config.FFprobePath,
		Timeout:     config.TranscodeTimeout,
		Workers:     config.TranscodeWorkers,
	})
	if err := trans.CheckTools(); err != nil {
		return nil, err
	}

	var images media.ImageEncoder
	if config.ImageEngine == startup.ImageEngineNative {
		images = media.NewNativeEncoder()
	}
	return compressor.New(compressor.Config{
		Runner:        trans,
		Prober:        trans,
		Images:        images,
		VideoStrategy: config.VideoStrategy,
	})
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, interactive bool, factory converterFactory) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command := args[0]
	var want int
	switch command {
	case "image", "video":
		want = 4
	case "info":
		want = 2
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(stderr)
		return 2
	}
	if len(args) < want {
		fmt.Fprintf(stderr, "Error: %s needs %d arguments\n\n", command, want-1)
		printUsage(stderr)
		return 2
	}

	if !interactive {
		logging.SetLevel(logging.LevelWarn)
	}

	config, err := startup.ParseConfig(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	conv, err := factory(config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	input := args[1]
	if _, err := os.Stat(input); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	switch command {
	case "info":
		return showInfo(ctx, conv, input, stdout, stderr)
	case "image":
		return compressImage(ctx, conv, args[1:], stdout, stderr, interactive)
	default:
		return compressVideo(ctx, conv, args[1:], stdout, stderr, interactive)
	}
}

func compressImage(ctx context.Context, conv converter, args []string, stdout, stderr io.Writer, interactive bool) int {
	input, format := args[0], mediatypes.NormalizeFormat(args[2])
	kb, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || kb <= 0 {
		fmt.Fprintf(stderr, "Error: target size must be a positive number of kilobytes, got %q\n", args[1])
		return 2
	}
	if !mediatypes.IsImageFormat(format) {
		fmt.Fprintf(stderr, "Error: unsupported image format %q (use one of: %s)\n", format, strings.Join(mediatypes.ImageFormats(), ", "))
		return 2
	}

	output := outputPath(input, format, args[3:])
	res, err := conv.CompressImage(ctx, input, output, estimator.TargetKB(kb, format))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	report(stdout, interactive, res, "quality", estimator.TargetKB(kb, format).SizeBytes)
	return 0
}

func compressVideo(ctx context.Context, conv converter, args []string, stdout, stderr io.Writer, interactive bool) int {
	input, format := args[0], mediatypes.NormalizeFormat(args[2])
	mb, err := strconv.ParseFloat(args[1], 64)
	if err != nil || !(mb > 0) || math.IsInf(mb, 1) {
		fmt.Fprintf(stderr, "Error: target size must be a positive number of megabytes, got %q\n", args[1])
		return 2
	}
	if !mediatypes.IsVideoFormat(format) {
		fmt.Fprintf(stderr, "Error: unsupported video format %q (use one of: %s)\n", format, strings.Join(mediatypes.VideoFormats(), ", "))
		return 2
	}

	target := estimator.TargetMB(mb, format, "")
	output := outputPath(input, format, args[3:])
	res, err := conv.CompressVideo(ctx, input, output, target)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	report(stdout, interactive, res, "video kbps", target.SizeBytes)
	return 0
}

func showInfo(ctx context.Context, conv converter, input string, stdout, stderr io.Writer) int {
	meta, err := conv.Probe(ctx, input)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Format:   %s\n", meta.ContainerFormat)
	fmt.Fprintf(stdout, "Size:     %s\n", startup.FormatBytes(meta.SizeBytes))
	if d, ok := meta.Duration(); ok {
		fmt.Fprintf(stdout, "Duration: %.2fs\n", d)
	}
	if meta.HasVideoStream() {
		fmt.Fprintf(stdout, "Video:    %s %dx%d\n", meta.Codec, meta.Width, meta.Height)
	}
	return 0
}

// outputPath returns the explicit output if one was given, else
// <dir>/<stem>_compressed.<format> next to the input.
func outputPath(input, format string, rest []string) string {
	if len(rest) > 0 && rest[0] != "" {
		return rest[0]
	}
	return filepath.Join(filepath.Dir(input), mediatypes.Stem(input)+"_compressed."+format)
}

// report prints the outcome. Pipes get one tab-separated line.
func report(w io.Writer, interactive bool, res compressor.Result, paramName string, targetBytes int64) {
	if !interactive {
		fmt.Fprintf(w, "%s\t%d\t%d\n", res.Path, res.SizeBytes, res.Parameter)
		return
	}
	fmt.Fprintf(w, "Wrote %s\n", res.Path)
	fmt.Fprintf(w, "  Size:     %s (target %s)\n", startup.FormatBytes(res.SizeBytes), startup.FormatBytes(targetBytes))
	fmt.Fprintf(w, "  %-9s %d\n", paramName+":", res.Parameter)
	fmt.Fprintf(w, "  Encodes:  %d (%s)\n", res.Encodes, res.Strategy)
}

// sanitizeCommand returns a safe representation of a command string for display.
// Anything outside [a-zA-Z0-9_-] becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Converter compression tool")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mcompress image <input> <target_kb> <format> [output]")
	fmt.Fprintln(w, "  mcompress video <input> <target_mb> <format> [output]")
	fmt.Fprintln(w, "  mcompress info <input>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  FFMPEG_PATH, FFPROBE_PATH, TRANSCODE_TIMEOUT, VIDEO_STRATEGY, IMAGE_ENGINE")
}
