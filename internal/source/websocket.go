// ABOUTME: WebSocket client for streaming speech synthesis
// ABOUTME: Sends one synthesis request and forwards binary frames as chunks until EOS
package source

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	// EndOfStream is the text frame that ends a synthesis stream
	EndOfStream = "EOS"

	// ErrorPrefix starts a text frame reporting a synthesis failure
	ErrorPrefix = "ERR:"

	maxMessageSize = 10 * 1024 * 1024
)

// SynthesisRequest is the JSON message that starts a synthesis stream
type SynthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// WebSocket streams synthesized speech from a TTS server
type WebSocket struct {
	URL     string
	APIKey  string
	Request SynthesisRequest

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocket creates a websocket source for one utterance
func NewWebSocket(url, apiKey, text, voice string) *WebSocket {
	return &WebSocket{
		URL:     url,
		APIKey:  apiKey,
		Request: SynthesisRequest{Text: text, Voice: voice},
	}
}

// Name identifies the source
func (w *WebSocket) Name() string {
	return w.URL
}

// Stream dials the server, sends the request and forwards audio frames
func (w *WebSocket) Stream(ctx context.Context, onChunk func([]byte) error) error {
	header := http.Header{}
	if w.APIKey != "" {
		header.Set("Authorization", "Bearer "+w.APIKey)
	}

	log.Printf("Connecting to %s", w.URL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.URL, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	defer w.Close()

	// unblock the read loop when ctx ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			w.Abort()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(w.Request); err != nil {
		return fmt.Errorf("failed to send synthesis request: %w", err)
	}

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read from server: %w", err)
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := onChunk(payload); err != nil {
				return err
			}
		case websocket.TextMessage:
			msg := string(payload)
			if msg == EndOfStream {
				return nil
			}
			if strings.HasPrefix(msg, ErrorPrefix) {
				return fmt.Errorf("synthesis error: %s", strings.TrimSpace(strings.TrimPrefix(msg, ErrorPrefix)))
			}
			log.Printf("Ignoring text message: %s", msg)
		}
	}
}

// Close ends the connection normally
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return nil
	}
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := w.conn.Close()
	w.conn = nil
	return err
}

// Abort drops the connection so a blocked read returns immediately
func (w *WebSocket) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
