package workers

import (
	"context"
	"runtime"
)

// Auto asks Resolve to size the pool from the available CPUs.
const Auto = -1

// Count returns a worker count of multiplier per available CPU, capped at
// limit (0 means no cap). GOMAXPROCS follows container CPU limits, so the
// result respects cgroup quotas.
func Count(multiplier float64, limit int) int {
	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns one worker per CPU. ffmpeg encodes are CPU-bound.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Resolve turns the configured TRANSCODE_WORKERS value into a concrete
// limit. Zero and other negative values mean unbounded and return 0; Auto
// returns ForCPU(0).
func Resolve(configured int) int {
	switch {
	case configured == Auto:
		return ForCPU(0)
	case configured > 0:
		return configured
	default:
		return 0
	}
}

// Limiter is a counting semaphore bounding concurrent subprocesses. A nil
// Limiter, or one built with size 0, admits everything.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter returns a limiter with size slots. Size 0 yields an unbounded
// limiter.
func NewLimiter(size int) *Limiter {
	if size <= 0 {
		return &Limiter{}
	}
	return &Limiter{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.slots == nil {
		return nil
	}
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	if l == nil || l.slots == nil {
		return
	}
	<-l.slots
}

// Size returns the slot count, 0 when unbounded.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	return cap(l.slots)
}

// InUse returns the number of slots currently held.
func (l *Limiter) InUse() int {
	if l == nil {
		return 0
	}
	return len(l.slots)
}
