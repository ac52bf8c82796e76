// ABOUTME: Correlates offset requests with answers from the realtime path
// ABOUTME: Each request id is written at most once and read at most once
package playback

import (
	"context"
	"sync"
	"time"
)

// TrackOffset is the play position of a track at the moment a request was
// answered by the realtime path
type TrackOffset struct {
	RequestID   string
	TrackID     string
	Offset      int64
	CurrentTime time.Duration
}

// OffsetTracker hands answers from the realtime path to waiting callers
type OffsetTracker struct {
	mu      sync.Mutex
	entries map[string]chan TrackOffset
}

// NewOffsetTracker creates an empty tracker
func NewOffsetTracker() *OffsetTracker {
	return &OffsetTracker{
		entries: make(map[string]chan TrackOffset),
	}
}

func (t *OffsetTracker) entry(id string) chan TrackOffset {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.entries[id]
	if !ok {
		ch = make(chan TrackOffset, 1)
		t.entries[id] = ch
	}
	return ch
}

// Expect registers a request id before it is posted
func (t *OffsetTracker) Expect(id string) {
	t.entry(id)
}

// Record stores the answer for off.RequestID. Answers for ids nobody
// expects, such as a caller that gave up waiting, are discarded, and so is
// a second answer for the same id.
func (t *OffsetTracker) Record(off TrackOffset) {
	t.mu.Lock()
	ch, ok := t.entries[off.RequestID]
	t.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- off:
	default:
	}
}

// Await blocks until the answer for id arrives or ctx is done. The entry is
// removed either way.
func (t *OffsetTracker) Await(ctx context.Context, id string) (TrackOffset, error) {
	ch := t.entry(id)
	defer t.forget(id)

	select {
	case off := <-ch:
		return off, nil
	case <-ctx.Done():
		// an answer that arrived together with cancellation still wins
		select {
		case off := <-ch:
			return off, nil
		default:
		}
		return TrackOffset{}, ctx.Err()
	}
}

// Pending returns the number of ids with no reader yet
func (t *OffsetTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *OffsetTracker) forget(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}
