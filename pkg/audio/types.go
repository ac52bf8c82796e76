// ABOUTME: Audio type definitions
// ABOUTME: Defines the stream format, sample blocks and sample conversions
package audio

const (
	// DefaultSampleRate matches the rate speech is synthesized at upstream
	DefaultSampleRate = 48000

	// BytesPerSample is the width of one PCM16 sample
	BytesPerSample = 2

	// RIFFMarker identifies a container header at stream start
	RIFFMarker = "RIFF"

	// HeaderProbeSize is how many leading bytes are searched for RIFFMarker
	HeaderProbeSize = 12

	// WAVHeaderSize is the fixed container header length that gets skipped
	WAVHeaderSize = 44
)

// Format describes the PCM stream played by the engine
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns mono 16-bit PCM at DefaultSampleRate
func DefaultFormat() Format {
	return Format{
		SampleRate: DefaultSampleRate,
		Channels:   1,
		BitDepth:   16,
	}
}

// BytesPerSecond returns the byte rate of the format
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// SampleBlock is a contiguous run of decoded samples ready for playback.
// A block must not be modified after it has been enqueued.
type SampleBlock []int16

// Duration returns the block length in seconds at the given sample rate
func (b SampleBlock) Duration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(b)) / float64(sampleRate)
}

// SampleToFloat converts an int16 sample to the [-1, 1) range
func SampleToFloat(sample int16) float64 {
	return float64(sample) / 32768.0
}

// SampleFromFloat converts a float sample to int16 with clipping
func SampleFromFloat(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767.0)
}
