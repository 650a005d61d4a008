// Package memory configures GOMEMLIMIT and guards conversions against
// memory exhaustion.
//
// [Configure] derives GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO when
// GOMEMLIMIT is not already set. [Monitor] samples the heap against that
// limit; once usage crosses the critical mark, [Guard] answers convert and
// compress requests with 503 and Retry-After until usage drops below the
// recover mark. The gap between the two marks keeps the guard from
// flapping.
//
// Uploads are streamed to disk and encodes run in ffmpeg, so heap usage is
// dominated by the native and vips image engines decoding stills.
package memory
