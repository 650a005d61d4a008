package transcoder

import (
	"context"
	"fmt"
	"os"

	"media-converter/internal/mediatypes"
)

// AudioBitrateKbps is the fixed audio bitrate for every video output.
const AudioBitrateKbps = 128

// JPEGQScale maps a 1-100 quality to ffmpeg's mjpeg -q:v scale, where 2 is
// best and 33 worst.
func JPEGQScale(quality int) int {
	return int(float64(100-quality)/100*31 + 2)
}

// ImageArgs builds the ffmpeg arguments for a still-image encode. Formats
// other than jpeg, webp and png get ffmpeg's defaults.
func ImageArgs(input, output, format string, quality int) []string {
	args := []string{"-i", input}

	switch mediatypes.NormalizeFormat(format) {
	case "jpg", "jpeg":
		args = append(args, "-q:v", fmt.Sprint(JPEGQScale(quality)))
	case "webp":
		args = append(args, "-quality", fmt.Sprint(quality))
	case "png":
		args = append(args, "-compression_level", "6")
	}

	return append(args, "-y", output)
}

// ConvertVideoArgs builds a single-pass CRF encode. An empty codec falls
// back to the container default, and containers without one let ffmpeg
// choose.
func ConvertVideoArgs(input, output, format, codec string, preset mediatypes.QualityPreset) []string {
	args := []string{"-i", input}

	if codec == "" {
		codec = mediatypes.DefaultConvertCodec(format)
	}
	if codec != "" {
		args = append(args, "-c:v", codec)
	}

	args = append(args,
		"-crf", fmt.Sprint(preset.CRF()),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", AudioBitrateKbps),
		"-y", output,
	)
	return args
}

// TwoPassArgs builds both passes of a bitrate-targeted encode. Pass 1
// discards its output and only writes the stats log at passlog.
func TwoPassArgs(input, output, format, codec string, videoKbps int, passlog string) (pass1, pass2 []string) {
	bitrate := fmt.Sprintf("%dk", videoKbps)

	pass1 = []string{
		"-i", input,
		"-c:v", codec,
		"-b:v", bitrate,
		"-pass", "1",
		"-passlogfile", passlog,
		"-an",
		"-f", mediatypes.NormalizeFormat(format),
		"-y", os.DevNull,
	}
	pass2 = []string{
		"-i", input,
		"-c:v", codec,
		"-b:v", bitrate,
		"-pass", "2",
		"-passlogfile", passlog,
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", AudioBitrateKbps),
		"-y", output,
	}
	return pass1, pass2
}

// PasslogFiles lists the files ffmpeg may create for a given -passlogfile
// prefix. x264 adds the .mbtree file.
func PasslogFiles(passlog string) []string {
	return []string{passlog, passlog + "-0.log", passlog + "-0.log.mbtree"}
}

// EncodeImage encodes a still image through ffmpeg. It makes the
// Transcoder usable as an image engine.
func (t *Transcoder) EncodeImage(ctx context.Context, input, output, format string, quality int) error {
	return t.Run(ctx, ImageArgs(input, output, format, quality)...)
}
