package server

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/speechplayer/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, config Config) string {
	t.Helper()
	s := New(config)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath
}

func stream(t *testing.T, url, text string) ([]byte, int, error) {
	t.Helper()
	var data []byte
	chunks := 0
	err := source.NewWebSocket(url, "", text, "").Stream(context.Background(), func(chunk []byte) error {
		data = append(data, chunk...)
		chunks++
		return nil
	})
	return data, chunks, err
}

func TestServerStreamsTone(t *testing.T) {
	url := startServer(t, Config{Pacing: source.Pacing{ChunkSize: 2000, Irregular: true}})

	data, chunks, err := stream(t, url, "hi")
	require.NoError(t, err)

	expected := source.NewTone(440, time.Second, source.Pacing{}).Bytes()
	assert.Equal(t, expected, data)
	assert.Greater(t, chunks, 1)
}

func TestServerToneLengthFollowsText(t *testing.T) {
	url := startServer(t, Config{Pacing: source.Pacing{ChunkSize: 8192}})

	short, _, err := stream(t, url, "a")
	require.NoError(t, err)
	long, _, err := stream(t, url, strings.Repeat("a", 50))
	require.NoError(t, err)

	assert.Greater(t, len(long), len(short))
}

func TestServerStreamsFile(t *testing.T) {
	content := []byte("not really audio but streamed as-is")
	path := filepath.Join(t.TempDir(), "speech.pcm")
	require.NoError(t, os.WriteFile(path, content, 0644))

	url := startServer(t, Config{AudioFile: path, Pacing: source.Pacing{ChunkSize: 5}})

	data, chunks, err := stream(t, url, "anything")
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, 7, chunks)
}

func TestServerRejectsEmptyText(t *testing.T) {
	url := startServer(t, Config{})

	_, _, err := stream(t, url, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text is required")
}

func TestServerMissingFile(t *testing.T) {
	url := startServer(t, Config{AudioFile: filepath.Join(t.TempDir(), "gone.wav")})

	_, _, err := stream(t, url, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio unavailable")
}

func TestStopRejectsNewStreams(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath
	_, _, err := stream(t, url, "hello")
	assert.Error(t, err)
}
