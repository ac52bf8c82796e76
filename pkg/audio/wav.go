// ABOUTME: WAV container header encoding
// ABOUTME: Builds the 44-byte RIFF header that upstream producers may prepend
package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps PCM bytes in a canonical 44-byte WAV header
func EncodeWAV(pcm []byte, format Format) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(WAVHeaderSize + len(pcm))

	blockAlign := format.Channels * format.BitDepth / 8

	buf.WriteString(RIFFMarker)
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(format.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(format.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(format.BytesPerSecond()))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(format.BitDepth))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// EncodePCM16 serializes samples as little-endian byte pairs
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
