// ABOUTME: Container header detection
// ABOUTME: Drops a fixed-size RIFF header from the first chunk of a stream
package stream

import (
	"bytes"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

// HasHeader reports whether the RIFF marker appears in the leading bytes
func HasHeader(chunk []byte) bool {
	probe := chunk
	if len(probe) > audio.HeaderProbeSize {
		probe = probe[:audio.HeaderProbeSize]
	}
	return bytes.Contains(probe, []byte(audio.RIFFMarker))
}

// StripHeader removes the first WAVHeaderSize bytes of a chunk carrying a
// RIFF marker. A chunk shorter than the header yields an empty slice.
// Chunks without the marker are returned unchanged.
func StripHeader(chunk []byte) []byte {
	if !HasHeader(chunk) {
		return chunk
	}
	if len(chunk) <= audio.WAVHeaderSize {
		return chunk[:0]
	}
	return chunk[audio.WAVHeaderSize:]
}
