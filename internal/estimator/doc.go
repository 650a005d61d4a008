// Package estimator converts a requested output size into encoder
// parameters.
//
// Every estimator implements Strategy: Estimate picks a first parameter from
// the target and source metadata, Measure reads the size of an encoded
// artifact, and Adjust decides whether to keep it, try again, or finalize
// with one last encode. The compressor package drives the loop.
//
// Images use QualityStrategy, a binary search over quality 70..95 with at
// most five measurements and a 5% tolerance.
//
// Video bitrate is closed-form (see VideoBitrateKbps). With the fixed
// 128 kbps audio track, a 10 MB target over 120 s gives 571 kbps:
//
//	(10*8*1024*1024 - 128000*120) / 120 / 1000 = 571.05
//
// Two video strategies exist. OneShotStrategy trusts two-pass rate control
// and never re-measures. FeedbackStrategy re-encodes with a corrected
// bitrate, up to three encodes in total, when the result misses by more
// than 5%.
//
// Targets that cannot be met return *EstimationError before any encode runs.
package estimator
