// ABOUTME: Decoder for 24-bit PCM left-justified in 32-bit words
// ABOUTME: Arithmetic shift by 8 then scale by 2^23
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/esprx/pkg/audio"
)

// FormatLeft24 is the wire id of 24-in-32 left-justified PCM
const FormatLeft24 uint16 = 1

// Left24 decodes little-endian int32 words whose low 8 bits are padding
type Left24 struct{}

// Decode converts payload bytes to samples
func (Left24) Decode(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of 4", len(data))
	}

	samples := make([]float32, len(data)/4)
	for i := range samples {
		word := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = audio.Int24ToFloat(audio.UnpackLeft24(word))
	}
	return samples, nil
}

// BytesPerSample returns 4
func (Left24) BytesPerSample() int {
	return 4
}
