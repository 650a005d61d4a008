// Package transcoder runs ffmpeg and ffprobe for the converter.
//
// Every run has a wall-clock limit (one hour by default). Failures come back
// as *Error with a Kind: ToolMissing, TimedOut, NonZeroExit (with exit code
// and the tail of stderr), Canceled or BadOutput.
//
//	err := trans.Run(ctx, transcoder.ImageArgs(in, out, "jpg", 85)...)
//	if transcoder.IsKind(err, transcoder.ToolMissing) {
//	    ...
//	}
//
// Concurrency is unbounded unless Config.Workers is set. Without a bound,
// every in-flight request holds its own ffmpeg process, and a burst of large
// uploads can exhaust the host. Set TRANSCODE_WORKERS in production.
//
// Cleanup kills every running process; the server calls it on shutdown.
package transcoder
