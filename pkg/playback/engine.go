// ABOUTME: Playback engine owning the realtime output path
// ABOUTME: Queues track-tagged sample blocks and answers offset and interrupt queries
package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/analysis"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/decode"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/output"
	"github.com/google/uuid"
)

// DefaultTrackID is used when the caller does not name a track
const DefaultTrackID = "default"

// State is the engine lifecycle state
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateStreaming
	StateInterrupted
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateInterrupted:
		return "interrupted"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Config holds engine configuration
type Config struct {
	// Format of the samples handed to Enqueue (default: 48kHz mono 16-bit)
	Format audio.Format

	// Output is the realtime device (default: output.NewMalgo())
	Output output.Output

	// FFTSize of the analysis tap (default: 256)
	FFTSize int

	// Smoothing of the analysis tap (default: 0.8)
	Smoothing float64

	// OnEnded is called once each time a stream stops emitting
	OnEnded func()
}

// stream is one run of the realtime processor, from the first enqueue after
// connect or stop until the processor reports stop
type stream struct {
	proc         *Processor
	done         chan struct{}
	interrupting atomic.Bool
}

// Engine plays track-tagged sample blocks through a realtime output
type Engine struct {
	config    Config
	analyser  *analysis.Analyser
	offsets   *OffsetTracker
	converter *decode.PCM16Converter

	mu          sync.Mutex
	state       State
	connected   bool
	closed      bool
	interrupted map[string]bool
	onEnded     func()

	active atomic.Pointer[stream]
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a disconnected engine
func NewEngine(config Config) *Engine {
	if config.Format.SampleRate == 0 {
		config.Format = audio.DefaultFormat()
	}
	if config.Output == nil {
		config.Output = output.NewMalgo()
	}
	if config.FFTSize == 0 {
		config.FFTSize = analysis.DefaultFFTSize
	}
	if config.Smoothing == 0 {
		config.Smoothing = analysis.DefaultSmoothing
	}

	return &Engine{
		config:      config,
		offsets:     NewOffsetTracker(),
		converter:   decode.NewPCM16(),
		interrupted: make(map[string]bool),
		onEnded:     config.OnEnded,
	}
}

// Connect installs the realtime output path
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.connected {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &ConnectionError{Backend: e.config.Output.Name(), Cause: err}
	}

	analyser := analysis.NewAnalyser(e.config.FFTSize, e.config.Smoothing)
	e.analyser = analyser

	if err := e.config.Output.Open(e.config.Format, e.render); err != nil {
		e.analyser = nil
		return &ConnectionError{Backend: e.config.Output.Name(), Cause: err}
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.connected = true
	e.state = StateConnected

	log.Printf("Playback engine connected: %s, %dHz", e.config.Output.Name(), e.config.Format.SampleRate)
	return nil
}

// render runs on the realtime audio context
func (e *Engine) render(out []int16) {
	s := e.active.Load()
	if s == nil {
		clear(out)
		return
	}
	s.proc.Process(out)
}

// Enqueue queues a sample block for the track and returns it. Blocks for an
// interrupted track are dropped and nil is returned without error. An empty
// block is returned as is and does not start a stream.
func (e *Engine) Enqueue(block audio.SampleBlock, trackID string) (audio.SampleBlock, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: empty track id", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		if e.closed {
			return nil, ErrClosed
		}
		if !e.connected {
			return nil, ErrNotConnected
		}
		if e.interrupted[trackID] {
			return nil, nil
		}
		if len(block) == 0 {
			return block, nil
		}

		s := e.active.Load()
		if s != nil && s.proc.Write(block, trackID) {
			break
		}
		if s != nil && s.interrupting.Load() {
			// the stopped stream has not yet said which track it interrupted
			e.mu.Unlock()
			<-s.done
			e.mu.Lock()
			continue
		}

		s = e.startStream()
		s.proc.Write(block, trackID)
		break
	}
	e.state = StateStreaming

	return block, nil
}

// EnqueueBytes converts raw little-endian PCM16 bytes and enqueues them
func (e *Engine) EnqueueBytes(raw []byte, trackID string) (audio.SampleBlock, error) {
	if len(raw)%audio.BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of samples", ErrInvalidArgument, len(raw))
	}

	block, _ := e.converter.Convert(raw, 0)
	return e.Enqueue(block, trackID)
}

// startStream creates a new processor and makes it the active one.
// Caller must hold e.mu.
func (e *Engine) startStream() *stream {
	// a new stream starts from a clean spectrum
	e.analyser.Reset()

	s := &stream{
		proc: NewProcessor(e.analyser),
		done: make(chan struct{}),
	}
	e.active.Store(s)

	e.wg.Add(1)
	go e.pump(s)

	log.Printf("Playback stream started")
	return s
}

// pump moves events from the processor to the engine until the stream stops
func (e *Engine) pump(s *stream) {
	defer e.wg.Done()
	defer close(s.done)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-s.proc.Notify():
		}

		for _, ev := range s.proc.Events() {
			switch ev.Kind {
			case EventOffset:
				if ev.Interrupt && ev.TrackID != "" {
					e.markInterrupted(ev.TrackID, ev.Offset)
				}
				e.offsets.Record(TrackOffset{
					RequestID:   ev.RequestID,
					TrackID:     ev.TrackID,
					Offset:      ev.Offset,
					CurrentTime: samplesToDuration(ev.Offset, e.config.Format.SampleRate),
				})
			case EventStop:
				e.finishStream(s)
				return
			}
		}
	}
}

func (e *Engine) markInterrupted(trackID string, offset int64) {
	e.mu.Lock()
	e.interrupted[trackID] = true
	e.mu.Unlock()
	log.Printf("Track %q interrupted at sample %d", trackID, offset)
}

func (e *Engine) finishStream(s *stream) {
	e.mu.Lock()
	if !e.active.CompareAndSwap(s, nil) {
		e.mu.Unlock()
		return
	}
	if s.interrupting.Load() {
		e.state = StateInterrupted
	} else {
		e.state = StateEnded
	}
	onEnded := e.onEnded
	e.mu.Unlock()

	log.Printf("Playback stream stopped")

	if onEnded != nil {
		go onEnded()
	}
}

// QueryOffset asks the realtime path for the play position of the most
// recently written track. It returns nil when no stream is running. With
// interrupt set the track is marked interrupted and the stream stops.
//
// The wait is bounded only by ctx.
func (e *Engine) QueryOffset(ctx context.Context, interrupt bool) (*TrackOffset, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if !e.connected {
		e.mu.Unlock()
		return nil, ErrNotConnected
	}
	s := e.active.Load()
	e.mu.Unlock()

	if s == nil {
		return nil, nil
	}

	id := uuid.New().String()
	e.offsets.Expect(id)
	if interrupt {
		s.interrupting.Store(true)
	}
	if !s.proc.RequestOffset(id, interrupt) {
		// stream stopped before the request could land
		e.offsets.forget(id)
		return nil, nil
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	off, err := e.offsets.Await(waitCtx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for offset: %w", ctx.Err())
		}
		// stream went away without answering
		return nil, nil
	}

	return &off, nil
}

// Interrupt stops the active track and returns where it stopped
func (e *Engine) Interrupt(ctx context.Context) (*TrackOffset, error) {
	return e.QueryOffset(ctx, true)
}

// IsInterrupted reports whether blocks for trackID are being dropped
func (e *Engine) IsInterrupted(trackID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interrupted[trackID]
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Streaming reports whether a realtime stream is running
func (e *Engine) Streaming() bool {
	return e.active.Load() != nil
}

// Analyser returns the analysis tap, or nil before Connect
func (e *Engine) Analyser() *analysis.Analyser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyser
}

// SetOnEnded replaces the ended callback
func (e *Engine) SetOnEnded(fn func()) {
	e.mu.Lock()
	e.onEnded = fn
	e.mu.Unlock()
}

// Format returns the sample format the engine plays
func (e *Engine) Format() audio.Format {
	return e.config.Format
}

// Close tears down the realtime path. Pending offset queries are released
// and the engine cannot be connected again.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	if !e.connected {
		e.mu.Unlock()
		return nil
	}
	e.connected = false
	e.state = StateDisconnected
	e.active.Store(nil)
	e.onEnded = nil
	cancel := e.cancel
	e.mu.Unlock()

	err := e.config.Output.Close()
	cancel()
	e.wg.Wait()

	log.Printf("Playback engine closed")
	if err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

func samplesToDuration(samples int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// IsConnectionError reports whether err came from a failed Connect
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
