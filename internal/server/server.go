// ABOUTME: WebSocket chunk server imitating a streaming TTS backend
// ABOUTME: Answers each synthesis request with a WAV stream cut into irregular binary frames
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/speechplayer/internal/source"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPath is where the synthesis endpoint is mounted
	DefaultPath = "/tts"

	// durationPerRune sets how long the tone for a request lasts
	durationPerRune = 60 * time.Millisecond
	minToneDuration = time.Second
)

// Config holds server configuration
type Config struct {
	Port int
	Path string

	// AudioFile is streamed for every request. Empty = test tone
	AudioFile string

	// ToneFrequency of the test tone in Hz (default: 440)
	ToneFrequency float64

	Pacing source.Pacing
}

// Server streams speech-like audio over websockets
type Server struct {
	config   Config
	serverID string
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server

	wg         sync.WaitGroup
	shutdownMu sync.RWMutex
	isShutdown bool
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.ToneFrequency == 0 {
		config.ToneFrequency = 440
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// local test producer, any origin is fine
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the synthesis endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured port until Stop is called
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Chunk server %s listening on %s%s", s.serverID, addr, s.config.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop rejects new requests and waits for running streams to finish
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")
	return nil
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.shutdownMu.RUnlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(r.Context(), conn)
}

// handleConnection serves one synthesis request
func (s *Server) handleConnection(ctx context.Context, conn *websocket.Conn) {
	var req source.SynthesisRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Printf("Error reading synthesis request: %v", err)
		return
	}

	if req.Text == "" {
		s.sendError(conn, "text is required")
		return
	}

	src, err := s.sourceFor(req)
	if err != nil {
		log.Printf("Failed to prepare audio: %v", err)
		s.sendError(conn, "audio unavailable")
		return
	}

	start := time.Now()
	chunks, bytes := 0, 0
	err = src.Stream(ctx, func(chunk []byte) error {
		chunks++
		bytes += len(chunk)
		return conn.WriteMessage(websocket.BinaryMessage, chunk)
	})
	if err != nil {
		log.Printf("Streaming %s failed after %d chunks: %v", src.Name(), chunks, err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(source.EndOfStream)); err != nil {
		log.Printf("Error sending end of stream: %v", err)
		return
	}

	log.Printf("Streamed %s: %d chunks, %d bytes in %v", src.Name(), chunks, bytes, time.Since(start))
}

// sourceFor picks the audio that answers req
func (s *Server) sourceFor(req source.SynthesisRequest) (source.Source, error) {
	if s.config.AudioFile != "" {
		f, err := source.OpenFile(s.config.AudioFile, s.config.Pacing)
		if err != nil {
			return nil, err
		}
		// Producers send what the player expects
		if err := f.Conform(audio.DefaultFormat()); err != nil {
			return nil, err
		}
		return f, nil
	}

	duration := time.Duration(len([]rune(req.Text))) * durationPerRune
	if duration < minToneDuration {
		duration = minToneDuration
	}
	return source.NewTone(s.config.ToneFrequency, duration, s.config.Pacing), nil
}

func (s *Server) sendError(conn *websocket.Conn, msg string) {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(source.ErrorPrefix+" "+msg)); err != nil {
		log.Printf("Error sending error message: %v", err)
	}
}
