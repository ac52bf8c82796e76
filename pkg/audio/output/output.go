// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for pull-based realtime playback backends
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

// RenderFunc fills out with the next mono samples to play.
// It runs on the realtime audio context and must not block.
type RenderFunc func(out []int16)

// Output represents an audio output device
type Output interface {
	// Open starts the device; render is called at hardware rate until Close
	Open(format audio.Format, render RenderFunc) error

	// Close stops the device and releases its resources
	Close() error

	// Name identifies the backend
	Name() string
}

// Backend names accepted by New
const (
	BackendMalgo = "malgo"
	BackendOto   = "oto"
	BackendNull  = "null"
)

// New creates an output backend by name
func New(name string) (Output, error) {
	switch name {
	case BackendMalgo, "":
		return NewMalgo(), nil
	case BackendOto:
		return NewOto(), nil
	case BackendNull:
		return NewNull(0), nil
	default:
		return nil, fmt.Errorf("unsupported output backend: %s (supported: malgo, oto, null)", name)
	}
}

// interleave renders mono samples and writes them as little-endian PCM16
// frames with the mono sample copied to every channel.
func interleave(dst []byte, mono []int16, channels int) {
	for i, sample := range mono {
		for ch := 0; ch < channels; ch++ {
			idx := (i*channels + ch) * 2
			dst[idx] = byte(sample)
			dst[idx+1] = byte(sample >> 8)
		}
	}
}
