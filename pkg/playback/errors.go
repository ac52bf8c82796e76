package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection matches every *ConnectionError via errors.Is
	ErrConnection = errors.New("realtime output could not be installed")

	// ErrNotConnected is returned when an operation needs Connect first
	ErrNotConnected = errors.New("not connected, call Connect first")

	// ErrInvalidArgument is returned for a malformed track id or sample buffer
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotStreaming is returned when there is no running stream to act on
	ErrNotStreaming = errors.New("no stream is playing")

	// ErrClosed is returned after the engine has been closed
	ErrClosed = errors.New("engine closed")
)

// ConnectionError reports why the realtime output path failed to start
type ConnectionError struct {
	Backend string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not install realtime output (%s): %v", e.Backend, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrConnection) match any ConnectionError
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}
