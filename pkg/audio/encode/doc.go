// ABOUTME: Audio encoder package for wire sample formats
// ABOUTME: Provides Encoder interface and the 24-in-32 PCM encoder
// Package encode converts normalized samples into packet payloads.
//
// Example:
//
//	payload := encode.Left24{}.Encode(samples)
package encode
