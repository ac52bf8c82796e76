// ABOUTME: Visualization frame type and the perceptual boost curve
// ABOUTME: Turns raw analyser decibels into a bounded display spectrum
package visualize

import "math"

const (
	// BinCount is the number of frequency bins in a frame
	BinCount = 128

	// SilenceDecibels marks the terminating frame of a visualization run
	SilenceDecibels = -100

	// QuietDecibels fills frames that carry no audible energy
	QuietDecibels = -90

	// AudibleDecibels is the level a bin must exceed for a frame to be audible
	AudibleDecibels = -70

	// DisplayFloor and DisplayCeiling bound the boosted display range
	DisplayFloor   = -60
	DisplayCeiling = 0

	normalizeOffset = 90
	normalizeRange  = 60

	voiceBandLow  = 0.02
	voiceBandHigh = 0.3
	voiceBoost    = 2.0
)

// Frame is one spectrum snapshot in decibels, between -100 and 0
type Frame [BinCount]float32

// SilenceFrame returns a frame with every bin at SilenceDecibels
func SilenceFrame() Frame {
	return filled(SilenceDecibels)
}

// QuietFrame returns a frame with every bin at QuietDecibels
func QuietFrame() Frame {
	return filled(QuietDecibels)
}

func filled(db float32) Frame {
	var f Frame
	for i := range f {
		f[i] = db
	}
	return f
}

// Audible reports whether any bin of spectrum rises above AudibleDecibels
func Audible(spectrum []float32) bool {
	for _, v := range spectrum {
		if v > AudibleDecibels {
			return true
		}
	}
	return false
}

// Enhance maps an analyser spectrum onto the display range. Inaudible
// spectra become a QuietFrame. Bins in the low voice band get a 2x boost
// before the square-root curve.
//
// Unlike the plain display = -60 + sqrt(boosted)*60 curve, a boosted bin
// is clamped at DisplayCeiling, so a loud voice band reads 0 dB instead of
// overshooting to about +25 dB. Every value of a Frame stays inside
// [DisplayFloor, DisplayCeiling].
func Enhance(spectrum []float32) Frame {
	if !Audible(spectrum) {
		return QuietFrame()
	}

	n := len(spectrum)
	if n > BinCount {
		n = BinCount
	}

	var f Frame
	for i := 0; i < BinCount; i++ {
		if i >= n {
			f[i] = DisplayFloor
			continue
		}

		normalized := (float64(spectrum[i]) + normalizeOffset) / normalizeRange
		normalized = math.Min(math.Max(normalized, 0), 1)

		position := float64(i) / float64(len(spectrum))
		boost := 1.0
		if position > voiceBandLow && position < voiceBandHigh {
			boost = voiceBoost
		}

		// boosted bins saturate at the ceiling
		scaled := math.Min(math.Sqrt(normalized*boost), 1)
		f[i] = float32(DisplayFloor + scaled*(DisplayCeiling-DisplayFloor))
	}
	return f
}

// Levels maps the frame onto [0, 1] for drawing, with DisplayFloor at 0
func (f Frame) Levels() []float64 {
	levels := make([]float64, len(f))
	for i, db := range f {
		v := (float64(db) - DisplayFloor) / (DisplayCeiling - DisplayFloor)
		levels[i] = math.Min(math.Max(v, 0), 1)
	}
	return levels
}

// Peak returns the loudest bin of the frame
func (f Frame) Peak() float32 {
	peak := float32(SilenceDecibels)
	for _, db := range f {
		if db > peak {
			peak = db
		}
	}
	return peak
}

// IsSilence reports whether every bin is at SilenceDecibels
func (f Frame) IsSilence() bool {
	for _, db := range f {
		if db != SilenceDecibels {
			return false
		}
	}
	return true
}
