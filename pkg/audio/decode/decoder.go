// ABOUTME: Decoder interface and format registry
// ABOUTME: Maps wire format ids to sample decoders
package decode

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for format ids with no decoder
var ErrUnsupportedFormat = errors.New("unsupported format id")

// Decoder converts raw payload bytes into normalized samples
type Decoder interface {
	// Decode converts payload bytes to samples in approximately [-1, 1]
	Decode(data []byte) ([]float32, error)

	// BytesPerSample is the container size of one sample on the wire
	BytesPerSample() int
}

// New returns the decoder for a wire format id
func New(formatID uint16) (Decoder, error) {
	switch formatID {
	case FormatLeft24:
		return Left24{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, formatID)
	}
}
