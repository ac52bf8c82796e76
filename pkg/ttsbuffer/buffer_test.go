package ttsbuffer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/output"
	"github.com/Resonate-Protocol/speechplayer/pkg/metrics"
	"github.com/Resonate-Protocol/speechplayer/pkg/playback"
	"github.com/Resonate-Protocol/speechplayer/pkg/visualize"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heldOutput never renders on its own; tests tick it by hand
type heldOutput struct {
	mu     sync.Mutex
	render output.RenderFunc
}

func (h *heldOutput) Open(format audio.Format, render output.RenderFunc) error {
	h.mu.Lock()
	h.render = render
	h.mu.Unlock()
	return nil
}

func (h *heldOutput) Close() error { return nil }

func (h *heldOutput) Name() string { return "held" }

func (h *heldOutput) tick() {
	h.mu.Lock()
	render := h.render
	h.mu.Unlock()
	if render != nil {
		render(make([]int16, playback.BlockSize))
	}
}

func counter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func sine(samples int) []byte {
	block := make([]int16, samples)
	for i := range block {
		block[i] = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/audio.DefaultSampleRate))
	}
	return audio.EncodePCM16(block)
}

func newHeldBuffer(t *testing.T, config Config) (*Buffer, *heldOutput) {
	t.Helper()
	held := &heldOutput{}
	config.NewOutput = func() (output.Output, error) { return held, nil }
	if config.Metrics == nil {
		config.Metrics = metrics.New(nil)
	}

	b := New(config)
	require.NoError(t, b.ConnectAudioContext(context.Background()))
	t.Cleanup(func() { b.Close() })
	return b, held
}

func TestThresholdStartsPlayback(t *testing.T) {
	b, _ := newHeldBuffer(t, Config{})
	m := b.config.Metrics

	for i := 0; i < 63; i++ {
		b.AddChunk(make([]byte, 1000))
	}
	b.AddChunk(make([]byte, 999))

	stats := b.Stats()
	assert.Equal(t, 63999, stats.Buffered)
	assert.Equal(t, 0, stats.Consumed)
	assert.False(t, b.IsPlaying())
	assert.Equal(t, 0.0, counter(t, m.BlocksEnqueued))

	b.AddChunk([]byte{0})

	stats = b.Stats()
	assert.Equal(t, 64000, stats.Consumed)
	assert.True(t, stats.Started)
	assert.True(t, b.IsPlaying())
	assert.Equal(t, 1.0, counter(t, m.BlocksEnqueued))
	assert.Equal(t, 32000.0, counter(t, m.SamplesEnqueued))
	assert.Equal(t, playback.StateStreaming, stats.State)
}

func TestChunksPlayImmediatelyOnceStarted(t *testing.T) {
	b, _ := newHeldBuffer(t, Config{StartThreshold: 100})
	m := b.config.Metrics

	b.AddChunk(make([]byte, 100))
	require.Equal(t, 1.0, counter(t, m.BlocksEnqueued))

	b.AddChunk(make([]byte, 3))
	assert.Equal(t, 2.0, counter(t, m.BlocksEnqueued))
	// the unpaired byte waits for its partner
	assert.Equal(t, 102, b.Stats().Consumed)

	b.AddChunk([]byte{0})
	assert.Equal(t, 3.0, counter(t, m.BlocksEnqueued))
	assert.Equal(t, 104, b.Stats().Consumed)
}

func TestHeaderScenarios(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		usable   int
		enqueued float64
	}{
		{name: "header plus samples", size: 50, usable: 6, enqueued: 3},
		{name: "header longer than chunk", size: 40, usable: 0, enqueued: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newHeldBuffer(t, Config{})
			m := b.config.Metrics

			chunk := make([]byte, tt.size)
			copy(chunk, "RIFF")
			b.AddChunk(chunk)
			b.FlushBufferedData()

			assert.Equal(t, tt.usable, b.Stats().Buffered)
			assert.Equal(t, tt.usable, b.Stats().Consumed)
			assert.Equal(t, tt.enqueued, counter(t, m.SamplesEnqueued))
			assert.Equal(t, 1.0, counter(t, m.HeadersRemoved))
		})
	}
}

func TestOnlyFirstChunkIsInspected(t *testing.T) {
	b, _ := newHeldBuffer(t, Config{})

	b.AddChunk(make([]byte, 10))
	second := make([]byte, 60)
	copy(second, "RIFF")
	b.AddChunk(second)

	assert.Equal(t, 70, b.Stats().Buffered)
}

func TestChunksBeforeConnectStayBuffered(t *testing.T) {
	b := New(Config{NewOutput: func() (output.Output, error) { return &heldOutput{}, nil }})
	defer b.Close()
	m := b.config.Metrics

	require.NoError(t, b.AddChunk(make([]byte, 1000)))
	assert.ErrorIs(t, b.AddChunk(make([]byte, 69000)), playback.ErrNotConnected)
	assert.ErrorIs(t, b.FlushBufferedData(), playback.ErrNotConnected)

	stats := b.Stats()
	assert.Equal(t, 70000, stats.Buffered)
	assert.Equal(t, 0, stats.Consumed)
	assert.False(t, stats.Started)
	assert.False(t, b.IsPlaying())

	require.NoError(t, b.ConnectAudioContext(context.Background()))
	require.NoError(t, b.FlushBufferedData())

	stats = b.Stats()
	assert.Equal(t, 70000, stats.Consumed)
	assert.True(t, stats.Started)
	assert.Equal(t, 35000.0, counter(t, m.SamplesEnqueued))
	assert.Equal(t, 1.0, counter(t, m.BlocksEnqueued))

	// later chunks follow the started utterance
	require.NoError(t, b.AddChunk(make([]byte, 10)))
	assert.Equal(t, 35005.0, counter(t, m.SamplesEnqueued))
}

func TestConnectFailure(t *testing.T) {
	cause := errors.New("no audio device")
	b := New(Config{NewOutput: func() (output.Output, error) { return nil, cause }})
	defer b.Close()

	err := b.ConnectAudioContext(context.Background())
	assert.ErrorIs(t, err, playback.ErrConnection)
	assert.ErrorIs(t, err, cause)
}

func TestResetIsIdempotent(t *testing.T) {
	var ended int
	var mu sync.Mutex
	b, _ := newHeldBuffer(t, Config{
		StartThreshold: 100,
		OnAudioEnded: func() {
			mu.Lock()
			ended++
			mu.Unlock()
		},
	})

	b.AddChunk(make([]byte, 50))
	b.Reset(context.Background())
	first := b.Stats()

	b.Reset(context.Background())
	second := b.Stats()

	assert.Equal(t, first, second)
	assert.Equal(t, 0, second.Buffered)
	assert.False(t, second.Started)
	assert.False(t, b.IsPlaying())
	assert.Equal(t, playback.StateConnected, second.State)

	mu.Lock()
	assert.Equal(t, 2, ended)
	mu.Unlock()
}

func TestResetBeforeAnyPlayback(t *testing.T) {
	b := New(Config{NewOutput: func() (output.Output, error) { return &heldOutput{}, nil }})
	defer b.Close()

	b.Reset(context.Background())
	assert.False(t, b.IsPlaying())
	assert.Equal(t, playback.StateDisconnected, b.Stats().State)
}

func TestInterruptDropsLaterChunks(t *testing.T) {
	b, held := newHeldBuffer(t, Config{StartThreshold: 100})
	m := b.config.Metrics

	b.AddChunk(sine(48000))
	held.tick()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				held.tick()
			}
		}
	}()

	off, err := b.Interrupt(context.Background())
	close(stop)
	require.NoError(t, err)
	require.NotNil(t, off)
	assert.Equal(t, playback.DefaultTrackID, off.TrackID)
	assert.GreaterOrEqual(t, off.Offset, int64(playback.BlockSize))
	enqueued := counter(t, m.SamplesEnqueued)

	// the producer keeps sending while and after the session is recycled
	for i := 0; i < 5; i++ {
		require.NoError(t, b.AddChunk(sine(1000)))
	}
	require.Eventually(t, func() bool { return counter(t, m.Resets) >= 1 }, 2*time.Second, 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.AddChunk(sine(1000)))
	}
	require.NoError(t, b.FlushBufferedData())

	stats := b.Stats()
	assert.True(t, stats.Interrupted)
	assert.False(t, stats.Playing)
	assert.False(t, stats.Started)
	assert.Equal(t, 0, stats.Buffered)
	assert.NotEqual(t, playback.StateStreaming, stats.State)
	assert.Equal(t, enqueued, counter(t, m.SamplesEnqueued))
	assert.GreaterOrEqual(t, counter(t, m.BlocksDropped), 10.0)
	assert.Equal(t, 1.0, counter(t, m.Interrupts))

	// an explicit reset starts the next utterance
	b.Reset(context.Background())
	assert.False(t, b.Stats().Interrupted)
	require.NoError(t, b.AddChunk(sine(1000)))
	assert.True(t, b.IsPlaying())
	assert.Equal(t, enqueued+1000, counter(t, m.SamplesEnqueued))
}

func TestOffsetFollowsPlayback(t *testing.T) {
	b, held := newHeldBuffer(t, Config{StartThreshold: 100})
	m := b.config.Metrics

	off, err := b.Offset(context.Background())
	require.NoError(t, err)
	assert.Nil(t, off, "nothing is playing yet")

	require.NoError(t, b.AddChunk(sine(48000)))
	held.tick()
	held.tick()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				held.tick()
			}
		}
	}()

	off, err = b.Offset(context.Background())
	require.NoError(t, err)
	require.NotNil(t, off)
	assert.Equal(t, playback.DefaultTrackID, off.TrackID)
	assert.GreaterOrEqual(t, off.Offset, int64(2*playback.BlockSize))
	assert.Equal(t, time.Duration(off.Offset)*time.Second/audio.DefaultSampleRate, off.CurrentTime)
	assert.True(t, b.IsPlaying(), "an offset query does not stop playback")
	assert.Equal(t, 2.0, counter(t, m.OffsetQueries))
}

func TestInterruptWithoutPlayback(t *testing.T) {
	b, _ := newHeldBuffer(t, Config{})

	_, err := b.Interrupt(context.Background())
	assert.ErrorIs(t, err, playback.ErrNotStreaming)
}

func TestNaturalDrainResetsAndNotifies(t *testing.T) {
	ended := make(chan struct{}, 4)

	var mu sync.Mutex
	var frames []visualize.Frame

	b := New(Config{
		StartThreshold: 256,
		FPS:            250,
		NewOutput: func() (output.Output, error) {
			return output.NewNull(time.Millisecond), nil
		},
		OnAudioEnded: func() { ended <- struct{}{} },
		OnAudioData: func(f visualize.Frame) {
			mu.Lock()
			frames = append(frames, f)
			mu.Unlock()
		},
	})
	defer b.Close()
	require.NoError(t, b.ConnectAudioContext(context.Background()))

	b.AddChunk(sine(8 * 1024))
	b.FlushBufferedData()
	assert.True(t, b.IsPlaying())

	select {
	case <-ended:
	case <-time.After(3 * time.Second):
		t.Fatal("expected OnAudioEnded after the utterance drained")
	}

	assert.False(t, b.IsPlaying())
	stats := b.Stats()
	assert.Equal(t, 0, stats.Buffered)
	assert.False(t, stats.Started)
	assert.Equal(t, playback.StateConnected, stats.State)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, frames)
	assert.True(t, frames[len(frames)-1].IsSilence())
	if len(frames) > 1 {
		assert.False(t, frames[len(frames)-2].IsSilence())
	}

	select {
	case <-ended:
		t.Error("OnAudioEnded fired twice for one utterance")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestUpdateAudioDataCallback(t *testing.T) {
	b, _ := newHeldBuffer(t, Config{})

	var got []visualize.Frame
	b.UpdateAudioDataCallback(func(f visualize.Frame) { got = append(got, f) })

	// connected with an analyser but no sampler: reset sends the terminator
	b.Reset(context.Background())
	require.Len(t, got, 1)
	assert.True(t, got[0].IsSilence())

	b.UpdateAudioDataCallback(nil)
	b.Reset(context.Background())
	assert.Len(t, got, 1)
}
