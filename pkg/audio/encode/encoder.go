// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for wire sample encoders
package encode

// Encoder encodes normalized samples to wire bytes
type Encoder interface {
	// Encode converts samples to payload bytes
	Encode(samples []float32) []byte
}
