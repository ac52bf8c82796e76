// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds a persistent oto player from the realtime render function
package output

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto only allows one context per process, so every Oto output shares it
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat audio.Format
	otoErr    error
)

// Oto output implementation using oto library
type Oto struct {
	player *oto.Player
	reader *renderReader
	mu     sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Name identifies the backend
func (o *Oto) Name() string {
	return BackendOto
}

// Open initializes the shared context and starts a player pulling samples
func (o *Oto) Open(format audio.Format, render RenderFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("output already open")
	}
	if format.BitDepth != 16 {
		log.Printf("Warning: oto only supports 16-bit output, ignoring requested bitDepth=%d", format.BitDepth)
	}

	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   20 * time.Millisecond,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan

		otoCtx = ctx
		otoFormat = format
	})
	if otoErr != nil {
		return otoErr
	}

	// A format change cannot reinitialize oto; keep using the existing context
	if otoFormat != format {
		log.Printf("Warning: format change detected (%dHz %dch -> %dHz %dch) but oto doesn't support reinitialization. Continuing with existing context.",
			otoFormat.SampleRate, otoFormat.Channels, format.SampleRate, format.Channels)
	}

	if err := otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	o.reader = &renderReader{render: render, channels: otoFormat.Channels}
	o.player = otoCtx.NewPlayer(o.reader)
	o.player.SetBufferSize(otoFormat.BytesPerSecond() / 50)
	o.player.Play()

	log.Printf("Audio output initialized: %dHz, %d channels (oto)", otoFormat.SampleRate, otoFormat.Channels)

	return nil
}

// Close stops the player; the shared context stays alive for the next Open
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	o.reader.close()
	o.player = nil
	o.reader = nil
	return nil
}

// renderReader adapts a RenderFunc to the io.Reader oto pulls from
type renderReader struct {
	render   RenderFunc
	channels int
	scratch  []int16
	closed   atomic.Bool
}

func (r *renderReader) close() {
	r.closed.Store(true)
}

func (r *renderReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}
	frameBytes := 2 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	if cap(r.scratch) < frames {
		r.scratch = make([]int16, frames)
	}
	mono := r.scratch[:frames]

	r.render(mono)
	interleave(p, mono, r.channels)
	return frames * frameBytes, nil
}
