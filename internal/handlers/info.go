package handlers

import (
	"context"
	"net/http"

	"media-converter/internal/mediatypes"
)

// FormatListResponse lists the accepted output formats.
type FormatListResponse struct {
	Formats []string `json:"formats"`
}

// CodecListResponse lists the accepted video codecs.
type CodecListResponse struct {
	Codecs []string `json:"codecs"`
}

// MediaInfoResponse describes a probed upload. Optional fields are null
// when the probe did not report them.
type MediaInfoResponse struct {
	Format    string   `json:"format"`
	Duration  *float64 `json:"duration"`
	Width     *int     `json:"width"`
	Height    *int     `json:"height"`
	SizeBytes int64    `json:"size_bytes"`
	Codec     *string  `json:"codec"`
}

// ImageFormats handles GET /api/image/formats.
func (h *Handlers) ImageFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, http.StatusOK, FormatListResponse{Formats: mediatypes.ImageFormats()})
}

// VideoFormats handles GET /api/video/formats.
func (h *Handlers) VideoFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, http.StatusOK, FormatListResponse{Formats: mediatypes.VideoFormats()})
}

// VideoCodecs handles GET /api/video/codecs.
func (h *Handlers) VideoCodecs(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, http.StatusOK, CodecListResponse{Codecs: mediatypes.VideoCodecs()})
}

// MediaInfo handles POST /api/media/info.
func (h *Handlers) MediaInfo(w http.ResponseWriter, r *http.Request) {
	scope := h.workspace.NewScope()
	defer scope.Cleanup()

	up, err := h.receiveUpload(w, r, scope, mediatypes.KindImage, mediatypes.KindVideo)
	if err != nil {
		respondError(w, r, err)
		return
	}

	meta, err := h.converter.Probe(context.WithoutCancel(r.Context()), up.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := MediaInfoResponse{
		Format:    meta.ContainerFormat,
		Duration:  meta.DurationSeconds,
		SizeBytes: meta.SizeBytes,
	}
	if resp.SizeBytes == 0 {
		resp.SizeBytes = up.Size
	}
	if meta.HasVideoStream() {
		width, height, codec := meta.Width, meta.Height, meta.Codec
		resp.Width, resp.Height, resp.Codec = &width, &height, &codec
	}
	writeJSONStatus(w, http.StatusOK, resp)
}
