// ABOUTME: PCM16 byte-to-sample converter
// ABOUTME: Pairs little-endian bytes into signed 16-bit samples
package decode

import (
	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/stream"
)

// PCM16Converter turns little-endian byte pairs into int16 samples.
// A trailing unpaired byte is left for a later call.
type PCM16Converter struct{}

// NewPCM16 creates a PCM16 converter
func NewPCM16() *PCM16Converter {
	return &PCM16Converter{}
}

// Convert consumes every complete byte pair of data starting at from.
// It returns the samples and the offset just past the last consumed pair.
func (c *PCM16Converter) Convert(data []byte, from int) (audio.SampleBlock, int) {
	if from < 0 {
		from = 0
	}
	if from >= len(data) {
		return audio.SampleBlock{}, from
	}

	numSamples := (len(data) - from) / audio.BytesPerSample
	samples := make(audio.SampleBlock, numSamples)
	for i := 0; i < numSamples; i++ {
		lo := data[from+i*2]
		hi := data[from+i*2+1]
		samples[i] = int16(uint16(hi)<<8 | uint16(lo))
	}

	return samples, from + numSamples*audio.BytesPerSample
}

// ConvertBuffer converts the unconsumed part of buf and advances its cursor
func (c *PCM16Converter) ConvertBuffer(buf *stream.Buffer) audio.SampleBlock {
	samples, next := c.Convert(buf.Bytes(), buf.ConsumedOffset())
	buf.Advance(next - buf.ConsumedOffset())
	return samples
}
