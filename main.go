// ABOUTME: Entry point for the speech player
// ABOUTME: Streams speech chunks from a source into the playback buffer
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/speechplayer/internal/config"
	"github.com/Resonate-Protocol/speechplayer/internal/discovery"
	"github.com/Resonate-Protocol/speechplayer/internal/source"
	"github.com/Resonate-Protocol/speechplayer/internal/ui"
	"github.com/Resonate-Protocol/speechplayer/internal/version"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/Resonate-Protocol/speechplayer/pkg/metrics"
	"github.com/Resonate-Protocol/speechplayer/pkg/ttsbuffer"
	"github.com/Resonate-Protocol/speechplayer/pkg/visualize"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configPath  = flag.String("config", "", "YAML config file (optional)")
	url         = flag.String("url", "", "TTS websocket endpoint")
	text        = flag.String("text", "", "Text to synthesize (with -url)")
	voice       = flag.String("voice", "", "Voice to request (with -url)")
	file        = flag.String("file", "", "Raw PCM or WAV file to play as a chunk stream")
	tone        = flag.Float64("tone", 0, "Play a generated tone of this frequency in Hz")
	backend     = flag.String("backend", "", "Output backend: malgo, oto or null")
	threshold   = flag.Int("threshold", 0, "Bytes buffered before playback starts")
	irregular   = flag.Bool("irregular", false, "Cut local sources into irregular, odd-sized chunks")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	logFile     = flag.String("log-file", "", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	discover    = flag.Bool("discover", false, "Find a chunk server via mDNS when no source is given")
)

func main() {
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s %s", version.Product, version.Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics
	m := metrics.New(nil)
	if cfg.Metrics.Address != "" {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		go serveMetrics(cfg.Metrics.Address, reg)
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	// Helper to update TUI
	updateTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	src, err := buildSource(cfg)
	if err != nil {
		log.Fatalf("Failed to create source: %v", err)
	}

	format := audio.DefaultFormat()
	format.SampleRate = cfg.Audio.SampleRate

	if fs, ok := src.(*source.File); ok {
		if err := fs.Conform(format); err != nil {
			log.Fatalf("Cannot play %s: %v", fs.Name(), err)
		}
	}

	// Buffer callbacks run under the buffer lock, so hand their work off
	ended := make(chan struct{}, 1)
	frames := make(chan visualize.Frame, 4)

	bufConfig := ttsbuffer.Config{
		Format:         format,
		StartThreshold: cfg.Audio.StartThresholdBytes,
		Backend:        cfg.Audio.Backend,
		FPS:            cfg.Visualization.FPS,
		Metrics:        m,
		OnAudioEnded: func() {
			select {
			case ended <- struct{}{}:
			default:
			}
		},
	}
	if cfg.Visualization.Enabled && tuiProg != nil {
		bufConfig.OnAudioData = func(frame visualize.Frame) {
			select {
			case frames <- frame:
			default:
				// TUI is behind, drop the frame
			}
		}
	}

	buf := ttsbuffer.New(bufConfig)
	defer func() {
		if err := buf.Close(); err != nil {
			log.Printf("Error closing buffer: %v", err)
		}
	}()

	if err := buf.ConnectAudioContext(ctx); err != nil {
		log.Fatalf("Failed to open audio output: %v", err)
	}

	connected := true
	updateTUI(ui.StatusMsg{
		Connected:  &connected,
		Backend:    cfg.Audio.Backend,
		SampleRate: format.SampleRate,
		Source:     src.Name(),
	})
	log.Printf("Audio output %s connected at %dHz", cfg.Audio.Backend, format.SampleRate)

	var chunks, bytes atomic.Int64

	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()

	if tuiProg != nil {
		go forwardFrames(ctx, frames, updateTUI)
		go statsUpdateLoop(ctx, buf, &chunks, &bytes, updateTUI)
	}
	if controls != nil {
		go handleControls(ctx, buf, controls, stopStream, cancel)
	}

	// Stream the source into the buffer
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- src.Stream(streamCtx, func(chunk []byte) error {
			chunks.Add(1)
			bytes.Add(int64(len(chunk)))
			return buf.AddChunk(chunk)
		})
	}()

	select {
	case err := <-streamErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Source error: %v", err)
			updateTUI(ui.StatusMsg{Error: err.Error()})
		}
	case <-ctx.Done():
	}

	// Whatever stayed below the start threshold still gets played
	if err := buf.FlushBufferedData(); err != nil {
		log.Printf("Flush: %v", err)
	}
	log.Printf("Source finished after %d chunks (%d bytes)", chunks.Load(), bytes.Load())

	waitForPlayback(ctx, buf, ended, updateTUI)

	if controls != nil {
		log.Printf("Playback finished, press q to quit")
		select {
		case <-controls.Quit:
			log.Printf("Received quit signal from TUI")
		case <-ctx.Done():
			log.Printf("Shutdown signal received")
		}
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}

	log.Printf("Player stopped")
}

// loadConfig layers defaults, the config file, the environment and flags
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	// Only flags given on the command line override earlier layers
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "url":
			cfg.Source.URL = *url
		case "text":
			cfg.Source.Text = *text
		case "voice":
			cfg.Source.Voice = *voice
		case "file":
			cfg.Source.File = *file
		case "tone":
			cfg.Source.Tone = *tone
		case "backend":
			cfg.Audio.Backend = *backend
		case "threshold":
			cfg.Audio.StartThresholdBytes = *threshold
		case "metrics-addr":
			cfg.Metrics.Address = *metricsAddr
		case "log-file":
			cfg.Logging.File = *logFile
		}
	})

	if *discover && cfg.Source.URL == "" && cfg.Source.File == "" && cfg.Source.Tone == 0 {
		endpoint, err := discoverServer(10 * time.Second)
		if err != nil {
			return nil, err
		}
		cfg.Source.URL = endpoint
		if cfg.Source.Text == "" {
			cfg.Source.Text = "Hello from " + version.Product
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// discoverServer browses mDNS for the first chunk server
func discoverServer(timeout time.Duration) (string, error) {
	log.Printf("Starting server discovery...")
	disc := discovery.NewManager(discovery.Config{ServiceName: version.Product})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		return "", fmt.Errorf("discovery: %w", err)
	}

	select {
	case server := <-disc.Servers():
		log.Printf("Discovered server at %s", server.URL())
		return server.URL(), nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no chunk server found after %v", timeout)
	}
}

// buildSource creates the chunk producer selected by cfg
func buildSource(cfg *config.Config) (source.Source, error) {
	pacing := source.Pacing{
		ChunkSize: cfg.Source.ChunkSize,
		Interval:  cfg.Source.GetChunkInterval(),
		Irregular: *irregular,
	}

	switch {
	case cfg.Source.URL != "":
		return source.NewWebSocket(cfg.Source.URL, cfg.Source.APIKey, cfg.Source.Text, cfg.Source.Voice), nil
	case cfg.Source.File != "":
		return source.OpenFile(cfg.Source.File, pacing)
	default:
		return source.NewTone(cfg.Source.Tone, cfg.Source.GetToneDuration(), pacing), nil
	}
}

// waitForPlayback blocks until the buffer has played everything it holds
func waitForPlayback(ctx context.Context, buf *ttsbuffer.Buffer, ended <-chan struct{}, updateTUI func(tea.Msg)) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for buf.IsPlaying() {
		select {
		case <-ended:
			updateTUI(ui.StatusMsg{Ended: true})
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}

	// Pick up an end that raced the last check
	select {
	case <-ended:
		updateTUI(ui.StatusMsg{Ended: true})
	default:
	}
}

// handleControls processes interrupt and quit requests from the TUI
func handleControls(ctx context.Context, buf *ttsbuffer.Buffer, controls *ui.Controls, stopStream, quit context.CancelFunc) {
	for {
		select {
		case <-controls.Interrupt:
			// Stop the producer first so the next chunk does not start a new utterance
			stopStream()
			off, err := buf.Interrupt(ctx)
			if err != nil {
				log.Printf("Interrupt: %v", err)
				continue
			}
			log.Printf("Interrupted track %s at sample %d (%s)", off.TrackID, off.Offset, off.CurrentTime)
		case <-controls.Quit:
			quit()
			return
		case <-ctx.Done():
			return
		}
	}
}

// forwardFrames relays visualization frames to the TUI
func forwardFrames(ctx context.Context, frames <-chan visualize.Frame, updateTUI func(tea.Msg)) {
	for {
		select {
		case frame := <-frames:
			updateTUI(ui.FrameMsg{Frame: frame})
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically updates TUI with buffer statistics
func statsUpdateLoop(ctx context.Context, buf *ttsbuffer.Buffer, chunks, bytes *atomic.Int64, updateTUI func(tea.Msg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := buf.Stats()
			playing := stats.Playing
			buffered := stats.Buffered
			msg := ui.StatusMsg{
				Playing:  &playing,
				State:    stats.State.String(),
				Chunks:   chunks.Load(),
				Bytes:    bytes.Load(),
				Buffered: &buffered,
				Consumed: stats.Consumed,
			}
			if playing {
				msg.Position = playPosition(ctx, buf)
			}
			updateTUI(msg)
		case <-ctx.Done():
			return
		}
	}
}

// playPosition asks the engine where the current utterance is. A slow
// answer is skipped rather than stalling the stats loop.
func playPosition(ctx context.Context, buf *ttsbuffer.Buffer) *time.Duration {
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	off, err := buf.Offset(ctx)
	if err != nil || off == nil {
		return nil
	}
	return &off.CurrentTime
}

// serveMetrics exposes reg for Prometheus scraping
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.Printf("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Metrics server error: %v", err)
	}
}
