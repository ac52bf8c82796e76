// ABOUTME: Spectrum analysis package for the output tap
// ABOUTME: Provides the Analyser fed by the realtime render path
// Package analysis measures the frequency-domain energy of the audio being
// played, in the manner of a browser AnalyserNode: a Blackman-windowed FFT
// over the latest window of samples, exponentially smoothed between reads
// and reported in decibels.
//
// Example:
//
//	an := analysis.NewAnalyser(256, 0.8)
//	an.Write(playedSamples) // from the render callback
//	spectrum := make([]float32, an.FrequencyBinCount())
//	an.FloatFrequencyData(spectrum)
package analysis
