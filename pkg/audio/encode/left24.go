// ABOUTME: Encoder for 24-bit PCM left-justified in 32-bit words
// ABOUTME: Inverse of decode.Left24, used by senders and tests
package encode

import (
	"encoding/binary"

	"github.com/harperreed/esprx/pkg/audio"
)

// Left24 writes each sample as a little-endian word with zero padding
type Left24 struct{}

// Encode converts samples to payload bytes
func (Left24) Encode(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], audio.PackLeft24(audio.FloatToInt24(s)))
	}
	return out
}
