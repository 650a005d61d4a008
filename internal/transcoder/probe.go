package transcoder

import (
	"context"
	"encoding/json"
	"strconv"

	"media-converter/internal/media"
)

// probeOutput is the subset of `ffprobe -print_format json` we read.
// ffprobe prints size and duration as strings.
type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Size       string `json:"size"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe reads container and first-video-stream metadata with ffprobe.
// Probes skip the worker slots: they are short and read-only.
func (t *Transcoder) Probe(ctx context.Context, path string) (media.Metadata, error) {
	out, err := t.exec(ctx, t.ffprobe, []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	})
	if err != nil {
		return media.Metadata{}, err
	}

	meta, perr := parseProbe(out)
	if perr != nil {
		return media.Metadata{}, &Error{Kind: BadOutput, Tool: toolName(t.ffprobe), Diagnostic: perr.Error(), Err: perr}
	}
	return meta, nil
}

func parseProbe(data []byte) (media.Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return media.Metadata{}, err
	}

	meta := media.Metadata{ContainerFormat: out.Format.FormatName}
	if meta.ContainerFormat == "" {
		meta.ContainerFormat = "unknown"
	}
	if size, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
		meta.SizeBytes = size
	}
	// Zero or missing duration means not applicable, e.g. a still image.
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
		meta.DurationSeconds = &d
	}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			meta.Width = s.Width
			meta.Height = s.Height
			meta.Codec = s.CodecName
			break
		}
	}
	return meta, nil
}
