// ABOUTME: Test tone generator for audio source
// ABOUTME: Generates a sine wave wrapped in a WAV container
package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

// Tone produces a sine wave as a WAV stream
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Format    audio.Format
	Pacing    Pacing
}

// NewTone creates a tone source at the default format
func NewTone(frequency float64, duration time.Duration, pacing Pacing) *Tone {
	return &Tone{
		Frequency: frequency,
		Duration:  duration,
		Format:    audio.DefaultFormat(),
		Pacing:    pacing,
	}
}

// Name identifies the source
func (t *Tone) Name() string {
	return fmt.Sprintf("tone %.0fHz", t.Frequency)
}

// Samples generates the mono tone at half volume
func (t *Tone) Samples() []int16 {
	n := int(math.Round(t.Duration.Seconds() * float64(t.Format.SampleRate)))
	samples := make([]int16, n)

	for i := range samples {
		ts := float64(i) / float64(t.Format.SampleRate)
		samples[i] = audio.SampleFromFloat(0.5 * math.Sin(2*math.Pi*t.Frequency*ts))
	}

	return samples
}

// Bytes returns the complete WAV stream
func (t *Tone) Bytes() []byte {
	return audio.EncodeWAV(audio.EncodePCM16(t.Samples()), t.Format)
}

// Stream emits the WAV stream in paced chunks
func (t *Tone) Stream(ctx context.Context, onChunk func([]byte) error) error {
	return t.Pacing.Emit(ctx, t.Bytes(), onChunk)
}
