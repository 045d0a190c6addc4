// ABOUTME: Durable sinks for the persisted timeline
// ABOUTME: WAV file sink built on go-audio/wav plus file inspection
package recorder

import (
	"errors"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/harperreed/esprx/pkg/audio"
)

// ErrSinkClosed is returned when writing to a closed sink
var ErrSinkClosed = errors.New("sink closed")

// Sink receives the persisted timeline in order
type Sink interface {
	// WriteSamples appends normalized mono samples
	WriteSamples(samples []float32) error

	// Close flushes and releases the sink
	Close() error
}

// WAVSink writes PCM WAV through go-audio/wav
type WAVSink struct {
	path     string
	file     *os.File
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	bitDepth int
	frames   int64
	closed   bool
}

// CreateWAV creates (or truncates) a mono WAV file at path
func CreateWAV(path string, sampleRate, bitDepth int) (*WAVSink, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return &WAVSink{
		path: path,
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, bitDepth, 1, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		bitDepth: bitDepth,
	}, nil
}

// Frames returns the number of frames written so far
func (s *WAVSink) Frames() int64 {
	return s.frames
}

// WriteSamples converts samples to integers and appends them
func (s *WAVSink) WriteSamples(samples []float32) error {
	if s.closed {
		return ErrSinkClosed
	}

	data := s.buf.Data[:0]
	for _, v := range samples {
		i := audio.FloatToInt24(v)
		if s.bitDepth == 16 {
			i >>= 8
		}
		data = append(data, int(i))
	}
	s.buf.Data = data

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("wav write to %s failed: %w", s.path, err)
	}
	s.frames += int64(len(samples))
	return nil
}

// Close finalizes the WAV header and closes the file
func (s *WAVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// The encoder only emits its header on the first write
	if s.frames == 0 {
		s.buf.Data = s.buf.Data[:0]
		if err := s.enc.Write(s.buf); err != nil {
			s.file.Close()
			return fmt.Errorf("wav header write failed: %w", err)
		}
	}

	if err := s.enc.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("wav finalize failed: %w", err)
	}
	return s.file.Close()
}

// Info describes a persisted WAV file
type Info struct {
	Path       string
	SampleRate int
	BitDepth   int
	Channels   int
	Frames     int
	Duration   time.Duration
}

// Inspect reads a WAV file and returns its format and length
func Inspect(path string) (Info, error) {
	info, _, err := readWAV(path)
	return info, err
}

// ReadSamples reads a mono WAV file back as normalized samples
func ReadSamples(path string) ([]float32, Info, error) {
	info, buf, err := readWAV(path)
	if err != nil {
		return nil, info, err
	}

	if info.BitDepth < 8 || info.BitDepth > 32 {
		return nil, info, fmt.Errorf("unsupported bit depth: %d", info.BitDepth)
	}

	scale := float32(int64(1) << (info.BitDepth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out, info, nil
}

func readWAV(path string) (Info, *goaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Info{}, nil, fmt.Errorf("failed to read pcm data: %w", err)
	}

	info := Info{
		Path:       path,
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Channels:   int(d.NumChans),
	}
	if info.Channels > 0 {
		info.Frames = len(buf.Data) / info.Channels
	}
	if info.SampleRate > 0 {
		info.Duration = time.Duration(info.Frames) * time.Second / time.Duration(info.SampleRate)
	}
	return info, buf, nil
}
