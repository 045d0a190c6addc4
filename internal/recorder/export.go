// ABOUTME: Conversion of a finished recording to another rate or bit depth
// ABOUTME: Reads the WAV back, resamples in chunks and writes a new file
package recorder

import (
	"errors"
	"fmt"

	"github.com/harperreed/esprx/pkg/audio/resample"
)

const exportChunk = 48000

// ExportOptions selects the output format. Zero values keep the source's.
type ExportOptions struct {
	SampleRate int
	BitDepth   int
}

// Export converts the recording at src into dst
func Export(src, dst string, opts ExportOptions) (Info, error) {
	samples, in, err := ReadSamples(src)
	if err != nil {
		return Info{}, err
	}
	if in.Channels != 1 {
		return Info{}, fmt.Errorf("expected a mono recording, got %d channels", in.Channels)
	}

	rate := opts.SampleRate
	if rate == 0 {
		rate = in.SampleRate
	}
	depth := opts.BitDepth
	if depth == 0 {
		depth = in.BitDepth
	}

	sink, err := CreateWAV(dst, rate, depth)
	if err != nil {
		return Info{}, err
	}

	r := resample.New(in.SampleRate, rate, 1)
	var out []float32
	for off := 0; off < len(samples); off += exportChunk {
		end := off + exportChunk
		if end > len(samples) {
			end = len(samples)
		}
		out = r.Resample(out[:0], samples[off:end])
		if err := sink.WriteSamples(out); err != nil {
			return Info{}, errors.Join(err, sink.Close())
		}
	}
	if tail := r.Flush(out[:0]); len(tail) > 0 {
		if err := sink.WriteSamples(tail); err != nil {
			return Info{}, errors.Join(err, sink.Close())
		}
	}
	if err := sink.Close(); err != nil {
		return Info{}, err
	}
	return Inspect(dst)
}
