// ABOUTME: Linear interpolation resampler for float samples
// ABOUTME: Carries the last frame and fractional position across calls so chunked input is seamless
package resample

// Resampler converts interleaved float samples between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	last       []float32 // final frame of the previous call
	primed     bool
}

// New creates a resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels <= 0 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		last:       make([]float32, channels),
	}
}

// Resample appends the converted frames of input to out and returns it.
// A trailing partial frame in input is ignored.
func (r *Resampler) Resample(out, input []float32) []float32 {
	ch := r.channels
	frames := len(input) / ch
	off := 0
	if r.primed {
		off = 1
	}
	total := frames + off
	if frames == 0 {
		return out
	}

	at := func(i, c int) float32 {
		if i < off {
			return r.last[c]
		}
		return input[(i-off)*ch+c]
	}

	for {
		i := int(r.position)
		if i+1 >= total {
			break
		}
		frac := float32(r.position - float64(i))
		for c := 0; c < ch; c++ {
			out = append(out, at(i, c)*(1-frac)+at(i+1, c)*frac)
		}
		r.position += r.ratio
	}

	// Rebase so the kept frame is index 0 of the next call
	for c := 0; c < ch; c++ {
		r.last[c] = at(total-1, c)
	}
	r.position -= float64(total - 1)
	r.primed = true
	return out
}

// Flush appends the held final frame when the read position sits exactly
// on it, so an unchanged rate keeps every frame
func (r *Resampler) Flush(out []float32) []float32 {
	if r.primed && r.position < 1e-9 {
		out = append(out, r.last...)
		r.position += r.ratio
	}
	return out
}

// OutputFrames estimates how many frames n input frames produce
func (r *Resampler) OutputFrames(n int) int {
	return int(float64(n)/r.ratio) + 1
}

// Reset clears carried state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for c := range r.last {
		r.last[c] = 0
	}
}
