package transcoder

import (
	"os"
	"reflect"
	"testing"

	"media-converter/internal/mediatypes"
)

func TestJPEGQScale(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{100, 2},
		{95, 3},
		{85, 6},
		{82, 7},
		{70, 11},
		{1, 32},
	}

	for _, tt := range tests {
		if got := JPEGQScale(tt.quality); got != tt.want {
			t.Errorf("JPEGQScale(%d) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

func TestImageArgs(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		quality int
		want    []string
	}{
		{
			name:    "jpg uses qscale",
			format:  "jpg",
			quality: 85,
			want:    []string{"-i", "in.png", "-q:v", "6", "-y", "out"},
		},
		{
			name:    "jpeg uppercase",
			format:  "JPEG",
			quality: 70,
			want:    []string{"-i", "in.png", "-q:v", "11", "-y", "out"},
		},
		{
			name:    "webp uses quality",
			format:  "webp",
			quality: 82,
			want:    []string{"-i", "in.png", "-quality", "82", "-y", "out"},
		},
		{
			name:    "png ignores quality",
			format:  "png",
			quality: 10,
			want:    []string{"-i", "in.png", "-compression_level", "6", "-y", "out"},
		},
		{
			name:    "bmp gets defaults",
			format:  "bmp",
			quality: 85,
			want:    []string{"-i", "in.png", "-y", "out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImageArgs("in.png", "out", tt.format, tt.quality)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ImageArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertVideoArgs(t *testing.T) {
	tests := []struct {
		name   string
		format string
		codec  string
		preset mediatypes.QualityPreset
		want   []string
	}{
		{
			name:   "mp4 default codec",
			format: "mp4",
			preset: mediatypes.PresetMedium,
			want:   []string{"-i", "in", "-c:v", "libx264", "-crf", "23", "-c:a", "aac", "-b:a", "128k", "-y", "out"},
		},
		{
			name:   "webm high",
			format: "webm",
			preset: mediatypes.PresetHigh,
			want:   []string{"-i", "in", "-c:v", "libvpx-vp9", "-crf", "18", "-c:a", "aac", "-b:a", "128k", "-y", "out"},
		},
		{
			name:   "explicit codec wins",
			format: "mp4",
			codec:  "libx265",
			preset: mediatypes.PresetLow,
			want:   []string{"-i", "in", "-c:v", "libx265", "-crf", "28", "-c:a", "aac", "-b:a", "128k", "-y", "out"},
		},
		{
			name:   "mkv leaves codec to ffmpeg",
			format: "mkv",
			preset: "unknown",
			want:   []string{"-i", "in", "-crf", "23", "-c:a", "aac", "-b:a", "128k", "-y", "out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertVideoArgs("in", "out", tt.format, tt.codec, tt.preset)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ConvertVideoArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTwoPassArgs(t *testing.T) {
	pass1, pass2 := TwoPassArgs("in.mov", "out.mp4", "MP4", "libx264", 571, "out.mp4_passlog")

	want1 := []string{
		"-i", "in.mov", "-c:v", "libx264", "-b:v", "571k", "-pass", "1",
		"-passlogfile", "out.mp4_passlog", "-an", "-f", "mp4", "-y", os.DevNull,
	}
	want2 := []string{
		"-i", "in.mov", "-c:v", "libx264", "-b:v", "571k", "-pass", "2",
		"-passlogfile", "out.mp4_passlog", "-c:a", "aac", "-b:a", "128k", "-y", "out.mp4",
	}

	if !reflect.DeepEqual(pass1, want1) {
		t.Errorf("pass1 = %v, want %v", pass1, want1)
	}
	if !reflect.DeepEqual(pass2, want2) {
		t.Errorf("pass2 = %v, want %v", pass2, want2)
	}
}

func TestPasslogFiles(t *testing.T) {
	got := PasslogFiles("/tmp/x_passlog")
	want := []string{"/tmp/x_passlog", "/tmp/x_passlog-0.log", "/tmp/x_passlog-0.log.mbtree"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PasslogFiles() = %v, want %v", got, want)
	}
}
