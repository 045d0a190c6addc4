// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts recordings between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation on interleaved float32 samples. State carries
// across calls so a long recording can be converted in chunks.
//
// Example:
//
//	r := resample.New(48000, 44100, 1)
//	out := r.Resample(nil, samples)
package resample
