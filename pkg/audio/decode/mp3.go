// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes whole MP3 clips to mono PCM16 for local speech sources
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// mp3Channels is fixed by go-mp3, which always emits 16-bit stereo
const mp3Channels = 2

// DecodeMP3 reads r to the end and returns mono samples at the clip's
// native sample rate
func DecodeMP3(r io.Reader) (audio.SampleBlock, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := len(pcm) / audio.BytesPerSample
	stereo := make([]int16, numSamples)
	for i := 0; i < numSamples; i++ {
		stereo[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	return Downmix(stereo, mp3Channels), decoder.SampleRate(), nil
}

// Downmix averages interleaved frames into one channel. Incomplete
// trailing frames are dropped.
func Downmix(interleaved []int16, channels int) audio.SampleBlock {
	if channels <= 1 {
		return append(audio.SampleBlock(nil), interleaved...)
	}

	frames := len(interleaved) / channels
	mono := make(audio.SampleBlock, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(interleaved[i*channels+ch])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}
