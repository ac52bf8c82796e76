// ABOUTME: Stream buffer package for incoming speech bytes
// ABOUTME: Accumulates raw chunks and strips a leading container header
// Package stream accumulates raw bytes of a synthesized speech stream.
//
// Chunks arrive with no alignment guarantee relative to sample boundaries.
// Buffer keeps every byte of the current utterance together with a consumed
// cursor that the PCM16 converter advances in whole-sample steps.
//
// Example:
//
//	buf := stream.NewBuffer()
//	buf.Append(firstChunk) // a leading 44-byte RIFF header is dropped
//	buf.Append(nextChunk)
//	pending := buf.Pending()
package stream
