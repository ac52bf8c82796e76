// ABOUTME: Overwriting sample ring for the analysis tap
// ABOUTME: Keeps the most recent played samples for spectrum analysis
package analysis

import "sync"

// Ring provides a thread-safe circular buffer that overwrites its oldest
// samples when full
type Ring struct {
	buffer []float64
	pos    int
	size   int
	count  int
	mu     sync.Mutex
}

// NewRing creates a ring buffer with given capacity (in samples)
func NewRing(capacity int) *Ring {
	return &Ring{
		buffer: make([]float64, capacity),
		size:   capacity,
	}
}

// Write appends samples, dropping the oldest ones past capacity
func (r *Ring) Write(samples []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range samples {
		r.buffer[r.pos] = s
		r.pos = (r.pos + 1) % r.size
	}
	r.count += len(samples)
	if r.count > r.size {
		r.count = r.size
	}
}

// Latest copies the most recent len(dst) samples into dst in
// chronological order. Missing history is zero-filled at the front.
func (r *Ring) Latest(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	avail := r.count
	if avail > len(dst) {
		avail = len(dst)
	}
	missing := len(dst) - avail
	for i := 0; i < missing; i++ {
		dst[i] = 0
	}

	start := (r.pos - avail + r.size) % r.size
	for i := 0; i < avail; i++ {
		dst[missing+i] = r.buffer[(start+i)%r.size]
	}
}

// Reset discards every held sample
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.buffer {
		r.buffer[i] = 0
	}
	r.pos = 0
	r.count = 0
}
