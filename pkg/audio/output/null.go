// ABOUTME: Clock-paced output without an audio device
// ABOUTME: Renders quanta on a ticker and discards them, for headless use and tests
package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

// DefaultQuantum is the number of frames rendered per tick
const DefaultQuantum = 128

// Null renders samples at a steady pace and throws them away
type Null struct {
	period  time.Duration
	quantum int

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	rendered int64
}

// NewNull creates a headless output. A zero period paces rendering at the
// real sample rate; a smaller period runs faster than realtime.
func NewNull(period time.Duration) *Null {
	return &Null{
		period:  period,
		quantum: DefaultQuantum,
	}
}

// Name identifies the backend
func (n *Null) Name() string {
	return BackendNull
}

// Open starts the render loop
func (n *Null) Open(format audio.Format, render RenderFunc) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		return fmt.Errorf("output already open")
	}
	if format.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", format.SampleRate)
	}

	period := n.period
	if period <= 0 {
		period = time.Duration(n.quantum) * time.Second / time.Duration(format.SampleRate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})

	go n.run(ctx, period, render)

	return nil
}

func (n *Null) run(ctx context.Context, period time.Duration, render RenderFunc) {
	defer close(n.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]int16, n.quantum)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			render(buf)
			n.mu.Lock()
			n.rendered += int64(len(buf))
			n.mu.Unlock()
		}
	}
}

// Rendered returns the number of frames rendered so far
func (n *Null) Rendered() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rendered
}

// Close stops the render loop and waits for it to exit
func (n *Null) Close() error {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel = nil
	n.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
