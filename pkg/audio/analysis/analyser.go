// ABOUTME: Frequency-domain analyser for the live output
// ABOUTME: Windowed FFT with exponential smoothing, reported in decibels
package analysis

import (
	"math"
	"sync"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// DefaultFFTSize is the analysis window in samples
	DefaultFFTSize = 256

	// DefaultSmoothing blends each spectrum with the previous one
	DefaultSmoothing = 0.8

	// FloorDecibels is reported for bins with no energy
	FloorDecibels = -200.0
)

// Analyser taps the samples sent to the device and reports their spectrum.
// Write is called from the realtime context; FloatFrequencyData from any
// other goroutine.
type Analyser struct {
	fftSize   int
	smoothing float64

	ring *Ring

	mu       sync.Mutex
	fft      *fourier.FFT
	window   []float64
	input    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyser creates an analyser with the given window size and smoothing
// time constant. Invalid values fall back to the defaults.
func NewAnalyser(fftSize int, smoothing float64) *Analyser {
	if fftSize < 32 || fftSize&(fftSize-1) != 0 {
		fftSize = DefaultFFTSize
	}
	if smoothing < 0 || smoothing >= 1 {
		smoothing = DefaultSmoothing
	}

	return &Analyser{
		fftSize:   fftSize,
		smoothing: smoothing,
		ring:      NewRing(fftSize),
		fft:       fourier.NewFFT(fftSize),
		window:    blackman(fftSize),
		input:     make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		smoothed:  make([]float64, fftSize/2),
	}
}

// FFTSize returns the analysis window size
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// FrequencyBinCount returns the number of spectrum bins (half the window)
func (a *Analyser) FrequencyBinCount() int {
	return a.fftSize / 2
}

// Write feeds played samples into the tap
func (a *Analyser) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}
	// only the last window matters
	if len(samples) > a.fftSize {
		samples = samples[len(samples)-a.fftSize:]
	}
	var buf [DefaultFFTSize * 4]float64
	scratch := buf[:0]
	if len(samples) > len(buf) {
		scratch = make([]float64, 0, len(samples))
	}
	for _, s := range samples {
		scratch = append(scratch, audio.SampleToFloat(s))
	}
	a.ring.Write(scratch)
}

// FloatFrequencyData writes the current smoothed spectrum in decibels into
// dst, up to FrequencyBinCount values.
func (a *Analyser) FloatFrequencyData(dst []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring.Latest(a.input)
	for i := range a.input {
		a.input[i] *= a.window[i]
	}

	coeffs := a.fft.Coefficients(a.coeffs, a.input)
	scale := 1.0 / float64(a.fftSize)

	for k := range a.smoothed {
		c := coeffs[k]
		mag := math.Hypot(real(c), imag(c)) * scale
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if k < len(dst) {
			dst[k] = float32(toDecibels(a.smoothed[k]))
		}
	}
}

// Reset clears the tap and smoothing history
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring.Reset()
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

func toDecibels(mag float64) float64 {
	if mag <= 0 {
		return FloorDecibels
	}
	db := 20 * math.Log10(mag)
	if db < FloorDecibels {
		return FloorDecibels
	}
	return db
}

// blackman returns the classic Blackman window of length n
func blackman(n int) []float64 {
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}
