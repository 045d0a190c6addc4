// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-model Output interface with oto and headless engines
// Package output provides realtime audio engines.
//
// An engine owns the pace: it asks a Source for exactly N frames per
// period and the Source must answer without blocking. Oto plays on the
// default device; Clock pulls on a ticker for headless operation.
//
// Example:
//
//	out := output.NewOto(48000, 1024, logger)
//	err := out.Start(renderer)
//	defer out.Close()
package output
