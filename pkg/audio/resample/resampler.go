// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Brings local source material to the player's sample rate
package resample

import "github.com/Resonate-Protocol/speechplayer/pkg/audio"

// Resampler performs linear interpolation to convert mono audio between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts input at inputRate into output at outputRate and
// returns how many output samples were written
func (r *Resampler) Resample(input []int16, output []int16) int {
	if len(input) == 0 {
		return 0
	}

	position := 0.0
	outIdx := 0

	for outIdx < len(output) {
		inputIdx := int(position)

		// The last input sample has no right-hand neighbour to blend with
		if inputIdx >= len(input)-1 {
			break
		}

		// Linear interpolation factor
		frac := position - float64(inputIdx)

		interpolated := float64(input[inputIdx])*(1.0-frac) + float64(input[inputIdx+1])*frac
		output[outIdx] = int16(interpolated)

		outIdx++
		position += r.ratio
	}

	return outIdx
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	return int(float64(inputSamples)/r.ratio) + 1
}

// Convert resamples a whole clip. Equal rates return a copy.
func Convert(input audio.SampleBlock, inputRate, outputRate int) audio.SampleBlock {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 {
		return append(audio.SampleBlock(nil), input...)
	}

	r := New(inputRate, outputRate)
	output := make(audio.SampleBlock, r.OutputSamplesNeeded(len(input)))
	n := r.Resample(input, output)
	return output[:n]
}
