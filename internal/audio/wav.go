package audio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-audio/wav"
)

// WAVDecoder decodes RIFF/WAVE PCM data.
type WAVDecoder struct{}

// Decode reads the whole PCM payload and normalizes it to float32.
func (WAVDecoder) Decode(ctx context.Context, data []byte) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, ErrUnsupported
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("missing format chunk: %w", ErrUnsupported)
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(d.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("bit depth %d: %w", bitDepth, ErrUnsupported)
	}

	scale := float32(int64(1) << (bitDepth - 1))
	out := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		out[i] = float32(v) / scale
	}

	return &Buffer{
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
		BitDepth:   bitDepth,
		Data:       out,
	}, nil
}
