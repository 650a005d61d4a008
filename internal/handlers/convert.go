package handlers

import (
	"context"
	"net/http"
	"strconv"

	"media-converter/internal/compressor"
	"media-converter/internal/estimator"
	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/streaming"
)

const defaultImageQuality = 85

type imageConvertRequest struct {
	TargetFormat string `form:"target_format" validate:"required,image_format"`
	Quality      int    `form:"quality" validate:"min=1,max=100"`
}

type imageCompressRequest struct {
	TargetSizeKB int    `form:"target_size_kb" validate:"required,gt=0"`
	Format       string `form:"format" validate:"required,image_format"`
}

type videoConvertRequest struct {
	TargetFormat string `form:"target_format" validate:"required,video_format"`
	Codec        string `form:"codec" validate:"omitempty,video_codec"`

	// Unknown presets fall back to medium rather than failing.
	Quality mediatypes.QualityPreset `form:"quality"`
}

type videoCompressRequest struct {
	TargetSizeMB float64 `form:"target_size_mb" validate:"required,gt=0"`
	Format       string  `form:"format" validate:"required,video_format"`
	Codec        string  `form:"codec" validate:"omitempty,video_codec"`
}

// download is a finished artifact ready to stream back.
type download struct {
	result      compressor.Result
	filename    string
	contentType string
	headers     map[string]string
}

type conversion func(ctx context.Context, up *upload, scope *filesystem.Scope) (*download, error)

// serve receives the upload, runs convert and streams its artifact. Every
// file the request created is removed when serve returns.
func (h *Handlers) serve(w http.ResponseWriter, r *http.Request, kind mediatypes.Kind, convert conversion) {
	scope := h.workspace.NewScope()
	defer scope.Cleanup()

	up, err := h.receiveUpload(w, r, scope, kind)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// A disconnecting client does not abort a running encode; shutdown does.
	ctx := context.WithoutCancel(r.Context())

	dl, err := convert(ctx, up, scope)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.sendDownload(w, r, dl)
}

func (h *Handlers) sendDownload(w http.ResponseWriter, r *http.Request, dl *download) {
	f, err := h.workspace.Open(dl.result.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer f.Close()

	for k, v := range dl.headers {
		w.Header().Set(k, v)
	}

	n, err := streaming.SendAttachment(r.Context(), w, f, streaming.Attachment{
		Filename:    dl.filename,
		ContentType: dl.contentType,
		Size:        dl.result.SizeBytes,
	}, h.streaming)
	if err != nil {
		logging.Warn("Download of %s interrupted after %d bytes: %v", dl.filename, n, err)
	}
}

func (h *Handlers) bind(req any) error {
	if err := h.validate.Struct(req); err != nil {
		return badRequest("invalid_form", validationMessage(err))
	}
	return nil
}

// ConvertImage handles POST /api/image/convert.
func (h *Handlers) ConvertImage(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, mediatypes.KindImage, func(ctx context.Context, up *upload, scope *filesystem.Scope) (*download, error) {
		quality, err := up.formInt("quality", defaultImageQuality)
		if err != nil {
			return nil, err
		}
		req := imageConvertRequest{
			TargetFormat: mediatypes.NormalizeFormat(up.Fields.Get("target_format")),
			Quality:      quality,
		}
		if err := h.bind(&req); err != nil {
			return nil, err
		}

		res, err := h.converter.ConvertImage(ctx, up.Path, scope.NewPath(req.TargetFormat), req.TargetFormat, req.Quality)
		if err != nil {
			return nil, err
		}
		return &download{
			result:      res,
			filename:    mediatypes.Stem(up.Filename) + "." + req.TargetFormat,
			contentType: mediatypes.ContentType(mediatypes.KindImage, req.TargetFormat),
		}, nil
	})
}

// CompressImage handles POST /api/image/compress.
func (h *Handlers) CompressImage(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, mediatypes.KindImage, func(ctx context.Context, up *upload, scope *filesystem.Scope) (*download, error) {
		kb, err := up.formInt("target_size_kb", 0)
		if err != nil {
			return nil, err
		}
		req := imageCompressRequest{
			TargetSizeKB: kb,
			Format:       mediatypes.NormalizeFormat(up.Fields.Get("format")),
		}
		if err := h.bind(&req); err != nil {
			return nil, err
		}

		target := estimator.TargetKB(int64(req.TargetSizeKB), req.Format)
		res, err := h.converter.CompressImage(ctx, up.Path, scope.NewPath(req.Format), target)
		if err != nil {
			return nil, err
		}
		return &download{
			result:      res,
			filename:    mediatypes.Stem(up.Filename) + "_compressed." + req.Format,
			contentType: mediatypes.ContentType(mediatypes.KindImage, req.Format),
			headers:     map[string]string{"X-Compression-Quality": strconv.Itoa(res.Parameter)},
		}, nil
	})
}

// ConvertVideo handles POST /api/video/convert.
func (h *Handlers) ConvertVideo(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, mediatypes.KindVideo, func(ctx context.Context, up *upload, scope *filesystem.Scope) (*download, error) {
		req := videoConvertRequest{
			TargetFormat: mediatypes.NormalizeFormat(up.Fields.Get("target_format")),
			Codec:        up.Fields.Get("codec"),
			Quality:      mediatypes.ParsePreset(up.Fields.Get("quality")),
		}
		if err := h.bind(&req); err != nil {
			return nil, err
		}

		res, err := h.converter.ConvertVideo(ctx, up.Path, scope.NewPath(req.TargetFormat), req.TargetFormat,
			req.Codec, req.Quality)
		if err != nil {
			return nil, err
		}
		return &download{
			result:      res,
			filename:    mediatypes.Stem(up.Filename) + "." + req.TargetFormat,
			contentType: mediatypes.ContentType(mediatypes.KindVideo, req.TargetFormat),
		}, nil
	})
}

// CompressVideo handles POST /api/video/compress.
func (h *Handlers) CompressVideo(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, mediatypes.KindVideo, func(ctx context.Context, up *upload, scope *filesystem.Scope) (*download, error) {
		mb, err := up.formFloat("target_size_mb")
		if err != nil {
			return nil, err
		}
		req := videoCompressRequest{
			TargetSizeMB: mb,
			Format:       mediatypes.NormalizeFormat(up.Fields.Get("format")),
			Codec:        up.Fields.Get("codec"),
		}
		if err := h.bind(&req); err != nil {
			return nil, err
		}

		output := scope.NewPath(req.Format)
		res, err := h.converter.CompressVideo(ctx, up.Path, output, estimator.TargetMB(req.TargetSizeMB, req.Format, req.Codec))
		if err != nil {
			return nil, err
		}
		return &download{
			result:      res,
			filename:    mediatypes.Stem(up.Filename) + "_compressed." + req.Format,
			contentType: mediatypes.ContentType(mediatypes.KindVideo, req.Format),
			headers:     map[string]string{"X-Video-Bitrate-Kbps": strconv.Itoa(res.Parameter)},
		}, nil
	})
}
