// ABOUTME: Prometheus metrics for the speech playback pipeline
// ABOUTME: Counts chunks, sample blocks, resets and visualization frames
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for one playback buffer
type Metrics struct {
	// Ingestion metrics
	ChunksReceived prometheus.Counter
	BytesReceived  prometheus.Counter
	HeadersRemoved prometheus.Counter
	ChunkSize      prometheus.Histogram

	// Playback metrics
	BlocksEnqueued  prometheus.Counter
	BlocksDropped   prometheus.Counter
	SamplesEnqueued prometheus.Counter
	Playing         prometheus.Gauge
	StartLatency    prometheus.Histogram

	// Lifecycle metrics
	Resets        prometheus.Counter
	Interrupts    prometheus.Counter
	OffsetQueries prometheus.Counter
	StreamsEnded  prometheus.Counter

	// Visualization metrics
	FramesDelivered prometheus.Counter
}

// New creates the metrics and registers them with reg. A nil reg leaves
// them unregistered, which keeps tests and multiple buffers independent.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_chunks_received_total",
			Help: "Total number of raw chunks received from the producer",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_bytes_received_total",
			Help: "Total number of raw bytes received from the producer",
		}),
		HeadersRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_headers_removed_total",
			Help: "Total number of container headers stripped from first chunks",
		}),
		ChunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "speechplayer_chunk_size_bytes",
			Help:    "Size of received chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 2, 12), // 64B to 128KB
		}),

		BlocksEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_blocks_enqueued_total",
			Help: "Total number of sample blocks handed to the engine",
		}),
		BlocksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_blocks_dropped_total",
			Help: "Total number of sample blocks dropped for interrupted tracks",
		}),
		SamplesEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_samples_enqueued_total",
			Help: "Total number of samples handed to the engine",
		}),
		Playing: factory.NewGauge(prometheus.GaugeOpts{
			Name: "speechplayer_playing",
			Help: "1 while speech is playing, 0 otherwise",
		}),
		StartLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "speechplayer_start_latency_seconds",
			Help:    "Time from the first chunk to the first enqueued block",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		}),

		Resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_resets_total",
			Help: "Total number of buffer resets",
		}),
		Interrupts: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_interrupts_total",
			Help: "Total number of interrupt requests",
		}),
		OffsetQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_offset_queries_total",
			Help: "Total number of offset queries sent to the realtime path",
		}),
		StreamsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_streams_ended_total",
			Help: "Total number of streams that stopped emitting audio",
		}),

		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "speechplayer_frames_delivered_total",
			Help: "Total number of visualization frames delivered",
		}),
	}
}

// RecordChunk records an incoming chunk and whether its header was stripped
func (m *Metrics) RecordChunk(size int, headerRemoved bool) {
	m.ChunksReceived.Inc()
	m.BytesReceived.Add(float64(size))
	m.ChunkSize.Observe(float64(size))
	if headerRemoved {
		m.HeadersRemoved.Inc()
	}
}

// RecordBlock records a sample block passed to the engine
func (m *Metrics) RecordBlock(samples int, dropped bool) {
	if dropped {
		m.BlocksDropped.Inc()
		return
	}
	m.BlocksEnqueued.Inc()
	m.SamplesEnqueued.Add(float64(samples))
}

// RecordStart records the delay between first chunk and first playback
func (m *Metrics) RecordStart(latencySeconds float64) {
	m.StartLatency.Observe(latencySeconds)
}

// SetPlaying updates the playing gauge
func (m *Metrics) SetPlaying(playing bool) {
	if playing {
		m.Playing.Set(1)
	} else {
		m.Playing.Set(0)
	}
}

// RecordReset increments the reset counter
func (m *Metrics) RecordReset() {
	m.Resets.Inc()
}

// RecordInterrupt increments the interrupt counter
func (m *Metrics) RecordInterrupt() {
	m.Interrupts.Inc()
}

// RecordOffsetQuery increments the offset query counter
func (m *Metrics) RecordOffsetQuery() {
	m.OffsetQueries.Inc()
}

// RecordStreamEnded increments the ended stream counter
func (m *Metrics) RecordStreamEnded() {
	m.StreamsEnded.Inc()
}

// RecordFrame increments the visualization frame counter
func (m *Metrics) RecordFrame() {
	m.FramesDelivered.Inc()
}
