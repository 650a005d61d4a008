/*
Package workers sizes and enforces the transcoder's concurrency bound.

Without a bound, every request spawns its own ffmpeg process, and a burst of
uploads can exhaust CPU and memory on the host. TRANSCODE_WORKERS controls
this:

	TRANSCODE_WORKERS=0    unbounded (default)
	TRANSCODE_WORKERS=-1   one slot per available CPU
	TRANSCODE_WORKERS=4    four concurrent subprocesses

Resolve converts the configured value into a slot count and NewLimiter builds
the semaphore:

	limiter := workers.NewLimiter(workers.Resolve(cfg.TranscodeWorkers))
	if err := limiter.Acquire(ctx); err != nil {
		return err
	}
	defer limiter.Release()

CPU counts come from GOMAXPROCS, which Go sets from the container CPU limit,
rather than runtime.NumCPU, which reports host CPUs.
*/
package workers
