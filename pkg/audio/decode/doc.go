// ABOUTME: PCM16 conversion package
// ABOUTME: Converts buffered speech bytes into sample blocks
// Package decode converts raw PCM16 bytes into audio.SampleBlock values.
//
// Upstream producers deliver raw little-endian 16-bit PCM, optionally
// behind a WAV header that the stream package removes first. DecodeMP3
// exists for local sources that transcode files before streaming them.
//
// Example:
//
//	conv := decode.NewPCM16()
//	block := conv.ConvertBuffer(buf) // advances buf's consumed offset
package decode
