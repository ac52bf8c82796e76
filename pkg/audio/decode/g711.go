// ABOUTME: G.711 companded audio decoding
// ABOUTME: Expands A-law and mu-law bytes to PCM16 samples
package decode

import (
	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/zaf/g711"
)

// DecodeALaw expands one A-law byte per sample
func DecodeALaw(data []byte) audio.SampleBlock {
	samples := make(audio.SampleBlock, len(data))
	for i, b := range data {
		samples[i] = g711.DecodeAlawFrame(b)
	}
	return samples
}

// DecodeULaw expands one mu-law byte per sample
func DecodeULaw(data []byte) audio.SampleBlock {
	samples := make(audio.SampleBlock, len(data))
	for i, b := range data {
		samples[i] = g711.DecodeUlawFrame(b)
	}
	return samples
}
