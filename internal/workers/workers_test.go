package workers

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"one per CPU", 1.0, 0, 1, availableCPU},
		{"two per CPU", 2.0, 0, 1, availableCPU * 2},
		{"capped by limit", 2.0, 2, 1, 2},
		{"tiny multiplier floors at one", 0.01, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected in [%d, %d]", tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		want       int
	}{
		{"zero is unbounded", 0, 0},
		{"explicit size", 3, 3},
		{"other negatives are unbounded", -5, 0},
		{"auto uses CPUs", Auto, ForCPU(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.configured); got != tt.want {
				t.Errorf("Resolve(%d) = %d, want %d", tt.configured, got, tt.want)
			}
		})
	}
}

func TestLimiterUnbounded(t *testing.T) {
	for _, l := range []*Limiter{nil, NewLimiter(0)} {
		for i := 0; i < 100; i++ {
			if err := l.Acquire(context.Background()); err != nil {
				t.Fatalf("Unbounded Acquire returned %v", err)
			}
		}
		if l.Size() != 0 {
			t.Errorf("Expected size 0, got %d", l.Size())
		}
		l.Release()
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	const size = 2
	l := NewLimiter(size)

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer l.Release()

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	if peak.Load() > size {
		t.Errorf("Expected at most %d concurrent holders, saw %d", size, peak.Load())
	}
	if l.InUse() != 0 {
		t.Errorf("Expected all slots released, %d in use", l.InUse())
	}
}

func TestLimiterAcquireHonorsContext(t *testing.T) {
	l := NewLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); err == nil {
		t.Error("Expected Acquire to fail when the only slot is held")
	}
}
