package compressor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"media-converter/internal/estimator"
	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/media"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/transcoder"
)

// maxEncodes caps the refine loop in case a strategy never settles.
const maxEncodes = 16

// Runner executes ffmpeg with the given arguments.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// Config wires a Compressor. Runner and Prober are required.
type Config struct {
	Runner Runner
	Prober media.Prober
	// Images encodes stills. Nil encodes through Runner with ffmpeg.
	Images media.ImageEncoder
	// VideoStrategy names the video size strategy; empty means one-shot.
	VideoStrategy string
	// Measure overrides how artifacts are sized. Nil uses os.Stat.
	Measure estimator.MeasureFunc
}

// Compressor turns uploads into converted or size-targeted artifacts.
type Compressor struct {
	runner        Runner
	prober        media.Prober
	images        media.ImageEncoder
	ffmpegImages  media.ImageEncoder
	videoStrategy string
	measure       estimator.MeasureFunc
}

// Result describes a finished artifact.
type Result struct {
	Path      string
	SizeBytes int64
	// Parameter is the quality or video kbps used for the kept encode.
	// Zero for plain conversions.
	Parameter int
	Encodes   int
	Strategy  string
}

// New validates cfg and returns a Compressor.
func New(cfg Config) (*Compressor, error) {
	if cfg.Runner == nil {
		return nil, errors.New("compressor: runner is required")
	}
	if cfg.Prober == nil {
		return nil, errors.New("compressor: prober is required")
	}
	if !estimator.ValidVideoStrategy(cfg.VideoStrategy) && cfg.VideoStrategy != "" {
		return nil, fmt.Errorf("compressor: unknown video strategy %q", cfg.VideoStrategy)
	}

	ffmpegImages := ffmpegImageEncoder{cfg.Runner}
	images := cfg.Images
	if images == nil {
		images = ffmpegImages
	}

	return &Compressor{
		runner:        cfg.Runner,
		prober:        cfg.Prober,
		images:        images,
		ffmpegImages:  ffmpegImages,
		videoStrategy: cfg.VideoStrategy,
		measure:       cfg.Measure,
	}, nil
}

// ffmpegImageEncoder encodes stills with the ffmpeg argument mapping.
type ffmpegImageEncoder struct {
	runner Runner
}

func (e ffmpegImageEncoder) EncodeImage(ctx context.Context, input, output, format string, quality int) error {
	return e.runner.Run(ctx, transcoder.ImageArgs(input, output, format, quality)...)
}

type formatSupporter interface {
	Supports(format string) bool
}

// imageEncoder returns the configured engine, or ffmpeg when the engine
// cannot write format.
func (c *Compressor) imageEncoder(format string) media.ImageEncoder {
	if s, ok := c.images.(formatSupporter); ok && !s.Supports(format) {
		logging.Debug("Image engine cannot write %s, using ffmpeg", format)
		return c.ffmpegImages
	}
	return c.images
}

// Probe reads metadata for path.
func (c *Compressor) Probe(ctx context.Context, path string) (media.Metadata, error) {
	return c.prober.Probe(ctx, path)
}

// ConvertImage re-encodes input as format at quality (1-100).
func (c *Compressor) ConvertImage(ctx context.Context, input, output, format string, quality int) (res Result, err error) {
	defer observe("image", "convert", time.Now(), &err)

	if err := c.imageEncoder(format).EncodeImage(ctx, input, output, format, quality); err != nil {
		return Result{}, err
	}
	size, err := c.verify(output, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Path: output, SizeBytes: size, Encodes: 1}, nil
}

// ConvertVideo runs a single-pass CRF encode.
func (c *Compressor) ConvertVideo(ctx context.Context, input, output, format, codec string, preset mediatypes.QualityPreset) (res Result, err error) {
	defer observe("video", "convert", time.Now(), &err)

	if err := c.runner.Run(ctx, transcoder.ConvertVideoArgs(input, output, format, codec, preset)...); err != nil {
		return Result{}, err
	}
	size, err := c.verify(output, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Path: output, SizeBytes: size, Encodes: 1}, nil
}

// CompressImage searches for the quality whose output lands nearest
// target, overwriting output on every attempt.
func (c *Compressor) CompressImage(ctx context.Context, input, output string, target estimator.Target) (res Result, err error) {
	defer observe("image", "compress", time.Now(), &err)

	enc := c.imageEncoder(target.Format)
	strategy := estimator.NewQualityStrategy(c.measure)

	encode := func(ctx context.Context, quality int) error {
		return enc.EncodeImage(ctx, input, output, target.Format, quality)
	}

	return c.refine(ctx, "image", strategy, target, media.Metadata{}, output, encode)
}

// CompressVideo probes input, derives a video bitrate from its duration
// and runs two-pass encodes until the strategy accepts the output.
func (c *Compressor) CompressVideo(ctx context.Context, input, output string, target estimator.Target) (res Result, err error) {
	defer observe("video", "compress", time.Now(), &err)

	strategy, err := estimator.NewVideoStrategy(c.videoStrategy, c.measure)
	if err != nil {
		return Result{}, err
	}

	meta, err := c.prober.Probe(ctx, input)
	if err != nil {
		return Result{}, err
	}

	codec := target.Codec
	if codec == "" {
		codec = mediatypes.DefaultCompressCodec(target.Format)
	}

	passlog := output + "_passlog"
	defer removePasslogs(passlog)

	encode := func(ctx context.Context, kbps int) error {
		pass1, pass2 := transcoder.TwoPassArgs(input, output, target.Format, codec, kbps, passlog)
		if err := c.runner.Run(ctx, pass1...); err != nil {
			return fmt.Errorf("pass 1: %w", err)
		}
		if err := c.runner.Run(ctx, pass2...); err != nil {
			return fmt.Errorf("pass 2: %w", err)
		}
		return nil
	}

	return c.refine(ctx, "video", strategy, target, meta, output, encode)
}

// refine drives a strategy: estimate, encode, measure, adjust.
func (c *Compressor) refine(ctx context.Context, kind string, s estimator.Strategy, target estimator.Target,
	meta media.Metadata, output string, encode func(context.Context, int) error) (Result, error) {
	param, err := s.Estimate(target, meta)
	if err != nil {
		metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), "error").Inc()
		return Result{}, err
	}

	res := Result{Path: output, Strategy: s.Name()}
	status := estimator.Continue

	for status == estimator.Continue {
		if res.Encodes >= maxEncodes {
			metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), "error").Inc()
			return Result{}, fmt.Errorf("%s did not settle after %d encodes", s.Name(), res.Encodes)
		}

		if err := encode(ctx, param); err != nil {
			metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), "error").Inc()
			return Result{}, err
		}
		res.Encodes++

		size, err := c.verify(output, s)
		if err != nil {
			metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), "error").Inc()
			return Result{}, err
		}
		res.SizeBytes, res.Parameter = size, param

		next, st, err := s.Adjust(param, size, target)
		if err != nil {
			metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), "error").Inc()
			return Result{}, err
		}
		logging.Debug("%s %s encode %d: param=%d size=%d target=%d -> %s",
			kind, s.Name(), res.Encodes, param, size, target.SizeBytes, st)

		status, param = st, next
	}

	outcome := "accepted"
	if status == estimator.Finalize {
		outcome = "finalized"
		if err := encode(ctx, param); err != nil {
			metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), "error").Inc()
			return Result{}, err
		}
		res.Encodes++

		size, err := c.verify(output, s)
		if err != nil {
			metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), "error").Inc()
			return Result{}, err
		}
		res.SizeBytes, res.Parameter = size, param
	}

	metrics.CompressionRunsTotal.WithLabelValues(kind, s.Name(), outcome).Inc()
	metrics.CompressionIterations.WithLabelValues(kind).Observe(float64(res.Encodes))
	metrics.CompressionAccuracyRatio.WithLabelValues(kind).Observe(float64(res.SizeBytes) / float64(target.SizeBytes))

	logging.Info("Compressed %s to %d bytes (target %d) with %s=%d after %d encodes",
		kind, res.SizeBytes, target.SizeBytes, s.Name(), res.Parameter, res.Encodes)
	return res, nil
}

// verify checks that output exists and is non-empty and returns its size.
func (c *Compressor) verify(output string, s estimator.Strategy) (int64, error) {
	var (
		size int64
		err  error
	)
	if s != nil {
		size, err = s.Measure(output)
	} else if c.measure != nil {
		size, err = c.measure(output)
	} else {
		var info fs.FileInfo
		info, err = filesystem.StatWithRetry(output, filesystem.DefaultRetryConfig())
		if err == nil {
			size = info.Size()
		}
	}

	if errors.Is(err, fs.ErrNotExist) || (err == nil && size == 0) {
		return 0, &ArtifactMissingError{Path: output}
	}
	if err != nil {
		return 0, fmt.Errorf("measure output: %w", err)
	}
	return size, nil
}

func removePasslogs(passlog string) {
	for _, path := range transcoder.PasslogFiles(passlog) {
		if err := filesystem.RemoveWithRetry(path, filesystem.DefaultRetryConfig()); err != nil {
			logging.Warn("Failed to remove pass log %s: %v", path, err)
		}
	}
}

func observe(kind, operation string, start time.Time, errp *error) {
	status := "success"
	if *errp != nil {
		status = "error"
	}
	metrics.OperationsTotal.WithLabelValues(kind, operation, status).Inc()
	metrics.OperationDuration.WithLabelValues(kind, operation).Observe(time.Since(start).Seconds())
}
