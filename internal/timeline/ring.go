// ABOUTME: Fixed-capacity circular sample store keyed by absolute index
// ABOUTME: Each slot carries a value and the sequence tag of its writer
package timeline

// Empty is the tag of a slot holding no data
const Empty int64 = -1

// Ring maps absolute sample indices onto index mod capacity.
//
// Ring has no locking of its own; Timeline guards it. Indices that differ
// by a multiple of the capacity alias the same slot and a later write
// silently replaces older unread data.
type Ring struct {
	samples []float32
	tags    []int64
}

// NewRing allocates a ring with every slot empty
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic("timeline: ring capacity must be positive")
	}
	r := &Ring{
		samples: make([]float32, capacity),
		tags:    make([]int64, capacity),
	}
	for i := range r.tags {
		r.tags[i] = Empty
	}
	return r
}

// Cap returns the number of slots
func (r *Ring) Cap() int {
	return len(r.samples)
}

func (r *Ring) slot(index uint64) int {
	return int(index % uint64(len(r.samples)))
}

// Write stores samples starting at start, splitting at the wrap boundary,
// and stamps every written slot with tag.
func (r *Ring) Write(start uint64, samples []float32, tag int64) {
	pos := r.slot(start)
	for len(samples) > 0 {
		n := copy(r.samples[pos:], samples)
		for i := pos; i < pos+n; i++ {
			r.tags[i] = tag
		}
		samples = samples[n:]
		pos = 0
	}
}

// ReadSlot returns the value and tag at index without modifying it
func (r *Ring) ReadSlot(index uint64) (float32, int64) {
	pos := r.slot(index)
	return r.samples[pos], r.tags[pos]
}

// DrainContiguous copies the run of tagged slots starting at start into
// dst, stopping at the first empty slot or after max samples. Tags are
// left untouched.
func (r *Ring) DrainContiguous(dst []float32, start uint64, max int) []float32 {
	if max > len(r.samples) {
		max = len(r.samples)
	}
	pos := r.slot(start)
	for i := 0; i < max; i++ {
		if r.tags[pos] == Empty {
			break
		}
		dst = append(dst, r.samples[pos])
		pos++
		if pos == len(r.samples) {
			pos = 0
		}
	}
	return dst
}

// ClearRange marks count slots starting at start as empty
func (r *Ring) ClearRange(start uint64, count int) {
	if count > len(r.samples) {
		count = len(r.samples)
	}
	pos := r.slot(start)
	for i := 0; i < count; i++ {
		r.tags[pos] = Empty
		r.samples[pos] = 0
		pos++
		if pos == len(r.samples) {
			pos = 0
		}
	}
}
