// ABOUTME: Append-only byte buffer with a consumed-offset cursor
// ABOUTME: Tracks how many buffered bytes were already converted to samples
package stream

import (
	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

// Buffer accumulates the raw bytes of one utterance.
//
// The consumed offset only moves forward in whole-sample steps and never
// passes the buffered length. Only Reset clears the buffer.
type Buffer struct {
	data     []byte
	consumed int
	started  bool
	stripped bool
}

// NewBuffer creates an empty stream buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append copies a chunk into the buffer. The first chunk of a session is
// inspected for a container header, later chunks are taken as-is.
// It returns the number of bytes actually buffered.
func (b *Buffer) Append(chunk []byte) int {
	payload := chunk
	if !b.started {
		b.started = true
		payload = StripHeader(chunk)
		b.stripped = len(payload) != len(chunk)
	}
	b.data = append(b.data, payload...)
	return len(payload)
}

// Bytes returns the buffered bytes. The slice must not be modified.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	return len(b.data)
}

// ConsumedOffset returns how many bytes were converted into samples
func (b *Buffer) ConsumedOffset() int {
	return b.consumed
}

// Pending returns the number of bytes not yet converted
func (b *Buffer) Pending() int {
	return len(b.data) - b.consumed
}

// Unconsumed returns the bytes from the consumed offset to the end
func (b *Buffer) Unconsumed() []byte {
	return b.data[b.consumed:]
}

// Advance moves the consumed offset forward by n bytes, rounded down to a
// whole number of samples and clamped to the buffered length.
func (b *Buffer) Advance(n int) int {
	if n <= 0 {
		return b.consumed
	}
	n -= n % audio.BytesPerSample
	if b.consumed+n > len(b.data) {
		avail := len(b.data) - b.consumed
		n = avail - avail%audio.BytesPerSample
	}
	b.consumed += n
	return b.consumed
}

// Started reports whether any chunk was appended since the last reset
func (b *Buffer) Started() bool {
	return b.started
}

// HeaderStripped reports whether the first chunk carried a container header
func (b *Buffer) HeaderStripped() bool {
	return b.stripped
}

// Reset empties the buffer and rewinds the consumed offset
func (b *Buffer) Reset() {
	b.data = nil
	b.consumed = 0
	b.started = false
	b.stripped = false
}
