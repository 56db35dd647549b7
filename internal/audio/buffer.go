// Package audio holds decoded sample buffers and the decode capability
// handed to the file resolver.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned when the bytes are not in a format the decoder understands.
var ErrUnsupported = errors.New("unsupported audio format")

// Buffer is a decoded, playable sample. Data is interleaved and normalized to [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Data       []float32
}

// Frames returns the number of sample frames (one sample per channel).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Decoder turns encoded bytes into a playable buffer.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*Buffer, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(ctx context.Context, data []byte) (*Buffer, error)

// Decode calls f(ctx, data).
func (f DecoderFunc) Decode(ctx context.Context, data []byte) (*Buffer, error) {
	return f(ctx, data)
}
