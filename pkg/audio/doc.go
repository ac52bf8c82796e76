// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, SampleBlock and PCM16/WAV helpers
// Package audio provides the fundamental types shared by the speech playback
// packages.
//
// This package defines:
//   - Format: sample rate, channel count and bit depth of the played stream
//   - SampleBlock: an immutable run of signed 16-bit samples
//
// It also provides helpers for building PCM16 byte streams and WAV headers,
// which upstream producers commonly prepend to the first chunk of a stream.
//
// Example:
//
//	format := audio.DefaultFormat() // 48kHz mono 16-bit
//	pcm := audio.EncodePCM16([]int16{0, 1000, -1000})
//	wav := audio.EncodeWAV(pcm, format)
package audio
