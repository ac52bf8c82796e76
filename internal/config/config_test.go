package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	c := Default()
	c.Source.Tone = 440
	return c
}

func TestDefaultValues(t *testing.T) {
	c := Default()

	if c.Audio.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.StartThresholdBytes != 64000 {
		t.Errorf("expected threshold 64000, got %d", c.Audio.StartThresholdBytes)
	}
	if c.Visualization.FPS != 60 {
		t.Errorf("expected 60 fps, got %d", c.Visualization.FPS)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "sample rate too low",
			mutate:      func(c *Config) { c.Audio.SampleRate = 4000 },
			expectError: true,
			errorMsg:    "sample_rate",
		},
		{
			name:        "unknown backend",
			mutate:      func(c *Config) { c.Audio.Backend = "alsa" },
			expectError: true,
			errorMsg:    "backend",
		},
		{
			name:        "fps out of range",
			mutate:      func(c *Config) { c.Visualization.FPS = 0 },
			expectError: true,
			errorMsg:    "fps",
		},
		{
			name: "fps ignored when disabled",
			mutate: func(c *Config) {
				c.Visualization.Enabled = false
				c.Visualization.FPS = 0
			},
			expectError: false,
		},
		{
			name:        "no source",
			mutate:      func(c *Config) { c.Source.Tone = 0 },
			expectError: true,
			errorMsg:    "exactly one",
		},
		{
			name:        "two sources",
			mutate:      func(c *Config) { c.Source.File = "speech.wav" },
			expectError: true,
			errorMsg:    "exactly one",
		},
		{
			name: "url without text",
			mutate: func(c *Config) {
				c.Source.Tone = 0
				c.Source.URL = "ws://localhost:8080/tts"
			},
			expectError: true,
			errorMsg:    "text",
		},
		{
			name:        "zero chunk size",
			mutate:      func(c *Config) { c.Source.ChunkSize = 0 },
			expectError: true,
			errorMsg:    "chunk_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	content := `
audio:
  backend: oto
  start_threshold_bytes: 32000
visualization:
  enabled: false
source:
  url: ws://localhost:9000/tts
  text: hello there
  chunk_interval_ms: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if c.Audio.Backend != "oto" {
		t.Errorf("expected backend oto, got %s", c.Audio.Backend)
	}
	if c.Audio.StartThresholdBytes != 32000 {
		t.Errorf("expected threshold 32000, got %d", c.Audio.StartThresholdBytes)
	}
	// untouched fields keep their defaults
	if c.Audio.SampleRate != 48000 {
		t.Errorf("expected default sample rate, got %d", c.Audio.SampleRate)
	}
	if c.Source.GetChunkInterval() != 5*time.Millisecond {
		t.Errorf("expected 5ms interval, got %v", c.Source.GetChunkInterval())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("audio: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPEECHPLAYER_BACKEND", "null")
	t.Setenv("SPEECHPLAYER_START_THRESHOLD", "1000")
	t.Setenv("SPEECHPLAYER_VOICE", "narrator")

	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Audio.Backend != "null" {
		t.Errorf("expected backend null, got %s", c.Audio.Backend)
	}
	if c.Audio.StartThresholdBytes != 1000 {
		t.Errorf("expected threshold 1000, got %d", c.Audio.StartThresholdBytes)
	}
	if c.Source.Voice != "narrator" {
		t.Errorf("expected voice narrator, got %s", c.Source.Voice)
	}
}

func TestApplyEnvRejectsBadNumber(t *testing.T) {
	t.Setenv("SPEECHPLAYER_FPS", "fast")

	if err := Default().ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric fps")
	}
}
