package handlers

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"media-converter/internal/compressor"
	"media-converter/internal/estimator"
	"media-converter/internal/filesystem"
	"media-converter/internal/media"
	"media-converter/internal/mediatypes"
	"media-converter/internal/streaming"

	"github.com/go-playground/validator/v10"
)

// Converter runs the media operations behind the API. *compressor.Compressor
// satisfies it.
type Converter interface {
	Probe(ctx context.Context, path string) (media.Metadata, error)
	ConvertImage(ctx context.Context, input, output, format string, quality int) (compressor.Result, error)
	ConvertVideo(ctx context.Context, input, output, format, codec string, preset mediatypes.QualityPreset) (compressor.Result, error)
	CompressImage(ctx context.Context, input, output string, target estimator.Target) (compressor.Result, error)
	CompressVideo(ctx context.Context, input, output string, target estimator.Target) (compressor.Result, error)
}

// Config holds what the handlers need beyond their collaborators.
type Config struct {
	MaxUploadBytes int64
	Streaming      streaming.Config
	// Ready reports whether the service can take work. Nil means always
	// ready.
	Ready func() error
}

type Handlers struct {
	workspace *filesystem.Workspace
	converter Converter
	validate  *validator.Validate
	maxUpload int64
	streaming streaming.Config
	ready     func() error
}

func New(ws *filesystem.Workspace, conv Converter, config Config) *Handlers {
	if config.Streaming.ChunkSize == 0 {
		config.Streaming = streaming.DefaultConfig()
	}
	return &Handlers{
		workspace: ws,
		converter: conv,
		validate:  newValidator(),
		maxUpload: config.MaxUploadBytes,
		streaming: config.Streaming,
		ready:     config.Ready,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("image_format", func(fl validator.FieldLevel) bool {
		return mediatypes.IsImageFormat(fl.Field().String())
	})
	_ = v.RegisterValidation("video_format", func(fl validator.FieldLevel) bool {
		return mediatypes.IsVideoFormat(fl.Field().String())
	})
	_ = v.RegisterValidation("video_codec", func(fl validator.FieldLevel) bool {
		return mediatypes.IsVideoCodec(fl.Field().String())
	})
	return v
}

// validationMessage flattens validator errors into one client-facing line.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "image_format":
			msgs = append(msgs, fmt.Sprintf("%s %q is not supported, use one of: %s",
				field, e.Value(), strings.Join(mediatypes.ImageFormats(), ", ")))
		case "video_format":
			msgs = append(msgs, fmt.Sprintf("%s %q is not supported, use one of: %s",
				field, e.Value(), strings.Join(mediatypes.VideoFormats(), ", ")))
		case "video_codec":
			msgs = append(msgs, fmt.Sprintf("%s %q is not supported, use one of: %s",
				field, e.Value(), strings.Join(mediatypes.VideoCodecs(), ", ")))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, e.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
