// Package server implements a websocket chunk server that stands in for a
// streaming TTS backend during development.
package server
