package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete player configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Visualization VisualizationConfig `yaml:"visualization"`
	Source        SourceConfig        `yaml:"source"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig contains playback parameters
type AudioConfig struct {
	SampleRate          int    `yaml:"sample_rate"`
	StartThresholdBytes int    `yaml:"start_threshold_bytes"`
	Backend             string `yaml:"backend"`
}

// VisualizationConfig contains spectrum feed parameters
type VisualizationConfig struct {
	Enabled bool `yaml:"enabled"`
	FPS     int  `yaml:"fps"`
}

// SourceConfig selects where speech chunks come from
type SourceConfig struct {
	URL             string  `yaml:"url"`
	APIKey          string  `yaml:"api_key"`
	File            string  `yaml:"file"`
	Text            string  `yaml:"text"`
	Voice           string  `yaml:"voice"`
	Tone            float64 `yaml:"tone"`             // Hz, 0 disables
	ToneSeconds     float64 `yaml:"tone_seconds"`
	ChunkSize       int     `yaml:"chunk_size"`       // bytes
	ChunkIntervalMs int     `yaml:"chunk_interval_ms"`
}

// MetricsConfig contains the Prometheus endpoint configuration
type MetricsConfig struct {
	Address string `yaml:"address"` // empty disables
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	File string `yaml:"file"`
}

// Default returns a configuration that plays through the default device
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:          48000,
			StartThresholdBytes: 64000,
			Backend:             "malgo",
		},
		Visualization: VisualizationConfig{
			Enabled: true,
			FPS:     60,
		},
		Source: SourceConfig{
			Voice:           "default",
			ToneSeconds:     3,
			ChunkSize:       4096,
			ChunkIntervalMs: 20,
		},
		Logging: LoggingConfig{
			File: "speechplayer.log",
		},
	}
}

// Load reads a configuration file on top of the defaults
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// ApplyEnv overrides fields from SPEECHPLAYER_* environment variables
func (c *Config) ApplyEnv() error {
	stringVars := map[string]*string{
		"SPEECHPLAYER_BACKEND":      &c.Audio.Backend,
		"SPEECHPLAYER_URL":          &c.Source.URL,
		"SPEECHPLAYER_API_KEY":      &c.Source.APIKey,
		"SPEECHPLAYER_VOICE":        &c.Source.Voice,
		"SPEECHPLAYER_METRICS_ADDR": &c.Metrics.Address,
		"SPEECHPLAYER_LOG_FILE":     &c.Logging.File,
	}
	for key, field := range stringVars {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"SPEECHPLAYER_SAMPLE_RATE":     &c.Audio.SampleRate,
		"SPEECHPLAYER_START_THRESHOLD": &c.Audio.StartThresholdBytes,
		"SPEECHPLAYER_FPS":             &c.Visualization.FPS,
	}
	for key, field := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field = n
	}

	return nil
}

// Validate performs validation of the whole configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Visualization.Validate(); err != nil {
		return fmt.Errorf("visualization config: %w", err)
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", a.SampleRate)
	}

	if a.StartThresholdBytes < 0 {
		return fmt.Errorf("start_threshold_bytes cannot be negative, got %d", a.StartThresholdBytes)
	}

	validBackends := map[string]bool{"malgo": true, "oto": true, "null": true}
	if !validBackends[a.Backend] {
		return fmt.Errorf("backend must be one of [malgo, oto, null], got '%s'", a.Backend)
	}

	return nil
}

// Validate validates visualization configuration
func (v *VisualizationConfig) Validate() error {
	if v.Enabled && (v.FPS < 1 || v.FPS > 240) {
		return fmt.Errorf("fps must be between 1 and 240, got %d", v.FPS)
	}
	return nil
}

// Validate validates source configuration
func (s *SourceConfig) Validate() error {
	selected := 0
	if s.URL != "" {
		selected++
	}
	if s.File != "" {
		selected++
	}
	if s.Tone > 0 {
		selected++
	}
	if selected != 1 {
		return fmt.Errorf("exactly one of url, file or tone must be set, got %d", selected)
	}

	if s.URL != "" && s.Text == "" {
		return fmt.Errorf("text cannot be empty when url is set")
	}

	if s.Tone < 0 {
		return fmt.Errorf("tone cannot be negative, got %f", s.Tone)
	}

	if s.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1 byte, got %d", s.ChunkSize)
	}

	if s.ChunkIntervalMs < 0 {
		return fmt.Errorf("chunk_interval_ms cannot be negative, got %d", s.ChunkIntervalMs)
	}

	return nil
}

// GetChunkInterval returns the pause between file chunks as a time.Duration
func (s *SourceConfig) GetChunkInterval() time.Duration {
	return time.Duration(s.ChunkIntervalMs) * time.Millisecond
}

// GetToneDuration returns the tone length as a time.Duration
func (s *SourceConfig) GetToneDuration() time.Duration {
	return time.Duration(s.ToneSeconds * float64(time.Second))
}
