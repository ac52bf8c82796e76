// ABOUTME: Upstream producers of raw speech chunks
// ABOUTME: Defines the Source interface and the chunk pacing shared by local sources
package source

import (
	"context"
	"time"
)

// Source produces raw speech bytes in arbitrary chunks
type Source interface {
	// Stream calls onChunk for every chunk until the source is exhausted,
	// onChunk fails or ctx is done
	Stream(ctx context.Context, onChunk func([]byte) error) error

	// Name identifies the source in logs
	Name() string
}

// Pacing controls how a local source cuts and times its chunks
type Pacing struct {
	// ChunkSize is the nominal chunk size in bytes (default: 4096)
	ChunkSize int

	// Interval is the pause between chunks
	Interval time.Duration

	// Irregular varies chunk sizes and makes most of them odd, the way
	// network reads split a stream
	Irregular bool
}

// DefaultChunkSize is used when Pacing.ChunkSize is unset
const DefaultChunkSize = 4096

// irregularFactors scale the nominal chunk size in turn
var irregularFactors = []float64{1, 0.5, 1.5, 0.25, 0.75}

// Emit cuts data into chunks and hands them to onChunk at the pacing
// interval. Chunks are copies, so callers may keep them.
func (p Pacing) Emit(ctx context.Context, data []byte, onChunk func([]byte) error) error {
	size := p.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	var ticker *time.Ticker
	if p.Interval > 0 {
		ticker = time.NewTicker(p.Interval)
		defer ticker.Stop()
	}

	for i := 0; len(data) > 0; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := p.chunkSize(size, i)
		if n > len(data) {
			n = len(data)
		}

		chunk := make([]byte, n)
		copy(chunk, data[:n])
		data = data[n:]

		if err := onChunk(chunk); err != nil {
			return err
		}

		if ticker != nil && len(data) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	return nil
}

func (p Pacing) chunkSize(size, i int) int {
	if !p.Irregular {
		return size
	}
	n := int(float64(size) * irregularFactors[i%len(irregularFactors)])
	if n%2 == 0 {
		n++
	}
	return n
}
