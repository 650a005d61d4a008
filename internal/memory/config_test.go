package memory

import (
	"math"
	"runtime/debug"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func restoreMemoryLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		configured bool
		source     string
		goLimit    int64
		ratio      float64
	}{
		{
			name:   "nothing set",
			env:    map[string]string{},
			source: "none",
		},
		{
			name:       "limit with default ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000000"},
			configured: true,
			source:     "MEMORY_LIMIT",
			goLimit:    850000,
			ratio:      DefaultMemoryRatio,
		},
		{
			name:       "limit with custom ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "0.5"},
			configured: true,
			source:     "MEMORY_LIMIT",
			goLimit:    500000,
			ratio:      0.5,
		},
		{
			name:       "ratio out of range falls back",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "1.5"},
			configured: true,
			source:     "MEMORY_LIMIT",
			goLimit:    850000,
			ratio:      DefaultMemoryRatio,
		},
		{
			name:       "unparseable ratio falls back",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "lots"},
			configured: true,
			source:     "MEMORY_LIMIT",
			goLimit:    850000,
			ratio:      DefaultMemoryRatio,
		},
		{
			name:   "invalid limit",
			env:    map[string]string{"MEMORY_LIMIT": "2GB"},
			source: "none",
		},
		{
			name:   "negative limit",
			env:    map[string]string{"MEMORY_LIMIT": "-5"},
			source: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)

			got := Configure(lookupFrom(tt.env))
			if got.Configured != tt.configured {
				t.Errorf("Configured = %v, want %v", got.Configured, tt.configured)
			}
			if got.Source != tt.source {
				t.Errorf("Source = %q, want %q", got.Source, tt.source)
			}
			if got.GoMemLimit != tt.goLimit {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.goLimit)
			}
			if tt.configured {
				if got.Ratio != tt.ratio {
					t.Errorf("Ratio = %v, want %v", got.Ratio, tt.ratio)
				}
				if limit := debug.SetMemoryLimit(-1); limit != tt.goLimit {
					t.Errorf("runtime limit = %d, want %d", limit, tt.goLimit)
				}
			}
		})
	}
}

func TestConfigureExplicitGOMEMLIMITWins(t *testing.T) {
	restoreMemoryLimit(t)
	debug.SetMemoryLimit(math.MaxInt64)

	got := Configure(lookupFrom(map[string]string{
		"GOMEMLIMIT":   "512MiB",
		"MEMORY_LIMIT": "1000000",
	}))
	if got.Source != "GOMEMLIMIT" {
		t.Errorf("Source = %q, want GOMEMLIMIT", got.Source)
	}
	if limit := debug.SetMemoryLimit(-1); limit != math.MaxInt64 {
		t.Errorf("runtime limit changed to %d", limit)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	restoreMemoryLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "2000000")
	t.Setenv("MEMORY_RATIO", "0.25")

	got := ConfigureFromEnv()
	if !got.Configured || got.GoMemLimit != 500000 {
		t.Errorf("ConfigureFromEnv() = %+v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
