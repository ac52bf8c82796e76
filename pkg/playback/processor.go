// ABOUTME: Realtime-side stream processor
// ABOUTME: Owns the queued sample blocks and answers offset requests by message
package playback

import (
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

// BlockSize is the largest block the processor queues at once
const BlockSize = 128

type commandKind int

const (
	cmdWrite commandKind = iota
	cmdOffset
	cmdInterrupt
)

type command struct {
	kind      commandKind
	samples   audio.SampleBlock
	trackID   string
	requestID string
}

// EventKind identifies a message leaving the realtime context
type EventKind int

const (
	// EventOffset answers an offset or interrupt request
	EventOffset EventKind = iota
	// EventStop is sent once when the stream stops emitting audio
	EventStop
)

// Event is a message posted by the processor to the engine
type Event struct {
	Kind      EventKind
	RequestID string
	TrackID   string
	Offset    int64

	// Interrupt is set when the answered request also stopped the track
	Interrupt bool
}

type queuedBlock struct {
	samples audio.SampleBlock
	trackID string
}

// Tap receives every sample the processor emits
type Tap interface {
	Write(samples []int16)
}

// Processor is the realtime half of the playback path. The engine talks to
// it only through Write, RequestOffset and the events it emits; Process is
// the only method that runs on the audio thread.
type Processor struct {
	// mailbox: written by Write and RequestOffset, drained by Process.
	// closed is set under inMu so no command lands after the final drain.
	inMu   sync.Mutex
	inbox  []command
	spare  []command
	closed bool

	// outbox: written by Process, drained by the engine
	outMu  sync.Mutex
	outbox []Event
	notify chan struct{}

	// realtime state, only touched from Process
	queue       []queuedBlock
	current     queuedBlock
	pos         int
	lastTrackID string
	offsets     map[string]int64
	started     bool
	interrupted bool
	stopped     atomic.Bool

	tap Tap
}

// NewProcessor creates an idle processor. tap may be nil.
func NewProcessor(tap Tap) *Processor {
	return &Processor{
		notify:  make(chan struct{}, 1),
		offsets: make(map[string]int64),
		tap:     tap,
	}
}

// post queues a command for the next render quantum. It reports false
// once the processor has stopped and will never read the command.
func (p *Processor) post(cmd command) bool {
	p.inMu.Lock()
	defer p.inMu.Unlock()

	if p.closed {
		return false
	}
	p.inbox = append(p.inbox, cmd)
	return true
}

// Write posts a sample block for the given track. It reports false when
// the processor has already stopped.
func (p *Processor) Write(samples audio.SampleBlock, trackID string) bool {
	return p.post(command{kind: cmdWrite, samples: samples, trackID: trackID})
}

// RequestOffset asks for the play position of the most recently written
// track. With interrupt set the stream also stops emitting.
func (p *Processor) RequestOffset(requestID string, interrupt bool) bool {
	kind := cmdOffset
	if interrupt {
		kind = cmdInterrupt
	}
	return p.post(command{kind: kind, requestID: requestID})
}

// Stopped reports whether the stream has emitted its stop event
func (p *Processor) Stopped() bool {
	return p.stopped.Load()
}

// Notify is signalled whenever events are waiting in the outbox
func (p *Processor) Notify() <-chan struct{} {
	return p.notify
}

// Events drains the outbox
func (p *Processor) Events() []Event {
	p.outMu.Lock()
	defer p.outMu.Unlock()

	events := p.outbox
	p.outbox = nil
	return events
}

func (p *Processor) emit(ev Event) {
	p.outMu.Lock()
	p.outbox = append(p.outbox, ev)
	p.outMu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Process fills out with the next samples. It reports false once the stream
// has stopped, after which it only produces silence.
func (p *Processor) Process(out []int16) bool {
	if p.stopped.Load() {
		clear(out)
		return false
	}

	p.drainInbox()

	if p.interrupted {
		clear(out)
		p.stop()
		return false
	}

	if !p.hasQueued() {
		clear(out)
		if p.started && p.closeIfIdle() {
			p.stop()
			return false
		}
		return true
	}

	p.started = true
	n := 0
	for n < len(out) && p.nextBlock() {
		copied := copy(out[n:], p.current.samples[p.pos:])
		if p.current.trackID != "" {
			p.offsets[p.current.trackID] += int64(copied)
		}
		p.pos += copied
		n += copied
	}
	clear(out[n:])

	if p.tap != nil {
		p.tap.Write(out[:n])
	}
	return true
}

// closeIfIdle closes the mailbox when nothing new arrived since the last
// drain. A write that raced in keeps the stream alive for another quantum.
func (p *Processor) closeIfIdle() bool {
	p.inMu.Lock()
	defer p.inMu.Unlock()

	if len(p.inbox) > 0 {
		return false
	}
	p.closed = true
	return true
}

func (p *Processor) stop() {
	p.inMu.Lock()
	p.closed = true
	pending := p.inbox
	p.inbox = nil
	p.inMu.Unlock()

	// requests that arrived alongside the interrupt still get an answer
	for _, cmd := range pending {
		if cmd.kind != cmdWrite {
			p.answer(cmd.requestID, cmd.kind == cmdInterrupt)
		}
	}

	p.stopped.Store(true)
	p.queue = nil
	p.current = queuedBlock{}
	p.pos = 0
	p.emit(Event{Kind: EventStop})
}

// hasQueued reports whether any unplayed sample is waiting
func (p *Processor) hasQueued() bool {
	return p.pos < len(p.current.samples) || len(p.queue) > 0
}

// nextBlock makes sure current has unplayed samples, pulling from the queue
func (p *Processor) nextBlock() bool {
	for p.pos >= len(p.current.samples) {
		if len(p.queue) == 0 {
			return false
		}
		p.current = p.queue[0]
		p.queue[0] = queuedBlock{}
		p.queue = p.queue[1:]
		p.pos = 0
	}
	return true
}

func (p *Processor) drainInbox() {
	p.inMu.Lock()
	cmds := p.inbox
	p.inbox = p.spare[:0]
	p.inMu.Unlock()

	for _, cmd := range cmds {
		switch cmd.kind {
		case cmdWrite:
			p.enqueue(cmd.samples, cmd.trackID)
		case cmdOffset, cmdInterrupt:
			p.answer(cmd.requestID, cmd.kind == cmdInterrupt)
			if cmd.kind == cmdInterrupt {
				p.interrupted = true
			}
		}
	}

	clear(cmds)
	p.inMu.Lock()
	p.spare = cmds[:0]
	p.inMu.Unlock()
}

func (p *Processor) answer(requestID string, interrupt bool) {
	trackID := p.lastTrackID
	p.emit(Event{
		Kind:      EventOffset,
		RequestID: requestID,
		TrackID:   trackID,
		Offset:    p.offsets[trackID],
		Interrupt: interrupt,
	})
}

// enqueue splits a block into BlockSize pieces tagged with the track
func (p *Processor) enqueue(samples audio.SampleBlock, trackID string) {
	p.lastTrackID = trackID
	for start := 0; start < len(samples); start += BlockSize {
		end := start + BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		p.queue = append(p.queue, queuedBlock{samples: samples[start:end], trackID: trackID})
	}
}
