// ABOUTME: Buffer coordinator between the chunk producer and the playback engine
// ABOUTME: Decides when buffered speech starts playing and recycles the session on reset
package ttsbuffer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/decode"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/output"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/stream"
	"github.com/Resonate-Protocol/speechplayer/pkg/metrics"
	"github.com/Resonate-Protocol/speechplayer/pkg/playback"
	"github.com/Resonate-Protocol/speechplayer/pkg/visualize"
)

// DefaultStartThreshold is how many bytes must be buffered before the first
// block of an utterance is played
const DefaultStartThreshold = 64000

// Config holds buffer configuration
type Config struct {
	// Format of the incoming PCM (default: 48kHz mono 16-bit)
	Format audio.Format

	// StartThreshold in bytes (default: 64000)
	StartThreshold int

	// Backend names the output device (default: malgo)
	Backend string

	// NewOutput overrides Backend with a custom device factory. It is called
	// once per session since every reset opens a fresh device.
	NewOutput func() (output.Output, error)

	// FPS of the visualization feed (default: 60)
	FPS int

	// TrackID tags every block (default: playback.DefaultTrackID)
	TrackID string

	// OnAudioEnded is called once per completed or reset utterance. It runs
	// while the buffer is locked and must not call back into it.
	OnAudioEnded func()

	// OnAudioData receives visualization frames while audio plays. The same
	// restriction as OnAudioEnded applies.
	OnAudioData func(visualize.Frame)

	// Metrics receives pipeline counters (default: unregistered set)
	Metrics *metrics.Metrics
}

// Buffer turns a stream of raw speech chunks into timed playback
type Buffer struct {
	config    Config
	metrics   *metrics.Metrics
	converter *decode.PCM16Converter

	mu           sync.Mutex
	data         *stream.Buffer
	engine       *playback.Engine
	connected    bool
	interrupted  bool
	firstChunkAt time.Time

	started atomic.Bool
	playing atomic.Bool

	cbMu        sync.Mutex
	onAudioData func(visualize.Frame)

	vizCancel context.CancelFunc
	vizDone   chan struct{}
}

// New creates a buffer. ConnectAudioContext must be called before audio
// can be heard.
func New(config Config) *Buffer {
	if config.Format.SampleRate == 0 {
		config.Format = audio.DefaultFormat()
	}
	if config.StartThreshold <= 0 {
		config.StartThreshold = DefaultStartThreshold
	}
	if config.FPS <= 0 {
		config.FPS = visualize.DefaultFPS
	}
	if config.TrackID == "" {
		config.TrackID = playback.DefaultTrackID
	}
	if config.NewOutput == nil {
		backend := config.Backend
		config.NewOutput = func() (output.Output, error) {
			return output.New(backend)
		}
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New(nil)
	}

	b := &Buffer{
		config:      config,
		metrics:     config.Metrics,
		converter:   decode.NewPCM16(),
		data:        stream.NewBuffer(),
		onAudioData: config.OnAudioData,
	}
	b.engine = b.newEngine()
	return b
}

// newEngine creates the playback session. A factory error is reported by
// Connect, not here.
func (b *Buffer) newEngine() *playback.Engine {
	out, err := b.config.NewOutput()
	if err != nil {
		out = &failedOutput{err: err}
	}

	engine := playback.NewEngine(playback.Config{
		Format: b.config.Format,
		Output: out,
	})
	engine.SetOnEnded(func() { b.handleEnded(engine) })
	return engine
}

// ConnectAudioContext opens the output device. It must follow a user
// interaction on platforms that gate audio on one.
func (b *Buffer) ConnectAudioContext(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.engine.Connect(ctx); err != nil {
		return err
	}
	b.connected = true
	return nil
}

// AddChunk buffers a raw chunk and plays it once enough data is available.
// Reaching the threshold before ConnectAudioContext returns
// playback.ErrNotConnected and keeps the bytes buffered. Chunks arriving
// after Interrupt are dropped until the next Reset.
func (b *Buffer) AddChunk(chunk []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.interrupted {
		b.metrics.RecordChunk(len(chunk), false)
		b.metrics.RecordBlock(len(chunk)/audio.BytesPerSample, true)
		return nil
	}

	first := !b.data.Started()
	if first {
		b.firstChunkAt = time.Now()
	}
	b.data.Append(chunk)
	b.metrics.RecordChunk(len(chunk), first && b.data.HeaderStripped())

	if b.started.Load() || b.data.Pending() >= b.config.StartThreshold {
		return b.processLocked()
	}
	return nil
}

// FlushBufferedData plays whatever is buffered regardless of the threshold
func (b *Buffer) FlushBufferedData() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.interrupted {
		return nil
	}
	return b.processLocked()
}

// processLocked converts the unconsumed bytes and hands them to the engine.
// Nothing is consumed while disconnected. Caller must hold b.mu.
func (b *Buffer) processLocked() error {
	if b.data.Pending() < audio.BytesPerSample {
		return nil
	}
	if !b.connected {
		return playback.ErrNotConnected
	}

	block := b.converter.ConvertBuffer(b.data)
	if len(block) == 0 {
		return nil
	}

	accepted, err := b.engine.Enqueue(block, b.config.TrackID)
	if err != nil {
		return fmt.Errorf("enqueue %d samples: %w", len(block), err)
	}
	b.metrics.RecordBlock(len(block), accepted == nil)
	if accepted == nil {
		return nil
	}

	if !b.started.Load() {
		b.metrics.RecordStart(time.Since(b.firstChunkAt).Seconds())
		log.Printf("Playback started after %d bytes", b.data.ConsumedOffset())
	}
	b.started.Store(true)
	b.setPlaying(true)
	b.startVisualizationLocked()
	return nil
}

// startVisualizationLocked starts the sampler if a callback is registered
// and none is running. Caller must hold b.mu.
func (b *Buffer) startVisualizationLocked() {
	if b.callback() == nil {
		return
	}
	if b.vizDone != nil {
		select {
		case <-b.vizDone:
		default:
			return
		}
	}

	engine := b.engine
	sampler := visualize.NewSampler(visualize.Config{
		FPS:     b.config.FPS,
		Deliver: b.deliver,
		Source: func() visualize.Spectrum {
			if a := engine.Analyser(); a != nil {
				return a
			}
			return nil
		},
		Started: b.started.Load,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.vizCancel = cancel
	b.vizDone = done

	go func() {
		defer close(done)
		sampler.Run(ctx)
	}()
}

// stopVisualizationLocked stops the sampler and waits for its final frame.
// It reports whether a sampler was running. Caller must hold b.mu.
func (b *Buffer) stopVisualizationLocked() bool {
	if b.vizCancel == nil {
		return false
	}
	b.vizCancel()
	<-b.vizDone
	b.vizCancel = nil
	b.vizDone = nil
	return true
}

func (b *Buffer) deliver(f visualize.Frame) {
	if cb := b.callback(); cb != nil {
		cb(f)
		b.metrics.RecordFrame()
	}
}

func (b *Buffer) callback() func(visualize.Frame) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	return b.onAudioData
}

// UpdateAudioDataCallback replaces the visualization callback. nil stops
// frame delivery.
func (b *Buffer) UpdateAudioDataCallback(fn func(visualize.Frame)) {
	b.cbMu.Lock()
	b.onAudioData = fn
	b.cbMu.Unlock()
}

// IsPlaying reports whether audio was handed to the engine and has not
// ended yet
func (b *Buffer) IsPlaying() bool {
	return b.playing.Load()
}

func (b *Buffer) setPlaying(playing bool) {
	b.playing.Store(playing)
	b.metrics.SetPlaying(playing)
}

// handleEnded resets the buffer when the active engine drains naturally.
// Signals from engines replaced by an earlier reset are ignored.
func (b *Buffer) handleEnded(engine *playback.Engine) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.engine != engine {
		return
	}

	b.metrics.RecordStreamEnded()
	b.setPlaying(false)
	b.resetLocked(context.Background())
}

// Reset silences playback and prepares a fresh session for the next
// utterance. It also lifts an earlier Interrupt. It is safe to call at any
// time, including before anything played, and never fails: problems are
// logged.
func (b *Buffer) Reset(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetLocked(ctx)
	b.interrupted = false
}

func (b *Buffer) resetLocked(ctx context.Context) {
	// the sampler ends on a silence frame; without one the reset sends it
	if !b.stopVisualizationLocked() && b.callback() != nil && b.engine.Analyser() != nil {
		b.deliver(visualize.SilenceFrame())
	}

	b.data.Reset()
	b.started.Store(false)
	b.setPlaying(false)
	b.metrics.RecordReset()

	old := b.engine
	if off, err := old.Interrupt(ctx); err != nil {
		if !errors.Is(err, playback.ErrNotConnected) && !errors.Is(err, playback.ErrClosed) {
			log.Printf("Reset: interrupt failed: %v", err)
		}
	} else if off != nil {
		log.Printf("Reset: interrupted track %q at %v", off.TrackID, off.CurrentTime)
	}

	if b.config.OnAudioEnded != nil {
		b.config.OnAudioEnded()
	}

	if err := old.Close(); err != nil {
		log.Printf("Reset: closing engine: %v", err)
	}

	b.engine = b.newEngine()
	if b.connected {
		if err := b.engine.Connect(ctx); err != nil {
			log.Printf("Reset: reconnect failed: %v", err)
			b.connected = false
		}
	}
}

// Interrupt stops the current utterance where it is and returns the play
// position. Chunks that keep arriving for it are dropped until Reset, even
// after the stopped session has been recycled.
func (b *Buffer) Interrupt(ctx context.Context) (*playback.TrackOffset, error) {
	b.mu.Lock()
	engine := b.engine
	b.interrupted = true
	b.mu.Unlock()

	b.metrics.RecordInterrupt()
	off, err := engine.Interrupt(ctx)
	if err == nil && off == nil {
		err = playback.ErrNotStreaming
	}
	if err != nil {
		b.mu.Lock()
		b.interrupted = false
		b.mu.Unlock()
		return nil, err
	}
	return off, nil
}

// Offset returns the play position of the current utterance, or nil when
// nothing is playing
func (b *Buffer) Offset(ctx context.Context) (*playback.TrackOffset, error) {
	b.mu.Lock()
	engine := b.engine
	b.mu.Unlock()

	b.metrics.RecordOffsetQuery()
	return engine.QueryOffset(ctx, false)
}

// Stats is a snapshot of the buffer for display
type Stats struct {
	Buffered int
	Consumed int
	Started  bool
	Playing  bool
	State    playback.State

	// Interrupted is set from Interrupt until the next Reset
	Interrupted bool
}

// Stats returns the current buffer state
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Buffered:    b.data.Len(),
		Consumed:    b.data.ConsumedOffset(),
		Started:     b.started.Load(),
		Playing:     b.playing.Load(),
		State:       b.engine.State(),
		Interrupted: b.interrupted,
	}
}

// Close stops visualization and releases the output device
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopVisualizationLocked()
	b.connected = false
	b.setPlaying(false)
	return b.engine.Close()
}

// failedOutput defers an output factory error to Connect
type failedOutput struct {
	err error
}

func (f *failedOutput) Open(audio.Format, output.RenderFunc) error { return f.err }
func (f *failedOutput) Close() error                               { return nil }
func (f *failedOutput) Name() string                               { return "unavailable" }
