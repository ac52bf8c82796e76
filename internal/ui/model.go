// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state, the spectrum view and key handling
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/speechplayer/pkg/visualize"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// 128 bins folded into 32 columns, 8 rows tall
	spectrumColumns = 32
	spectrumRows    = 8
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	playingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	lowBar  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	midBar  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	highBar = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected bool
	source    string
	backend   string

	// Stream
	sampleRate int
	state      string
	playing    bool
	position   time.Duration

	// Stats
	chunks     int64
	bytes      int64
	buffered   int
	consumed   int
	interrupts int
	utterances int

	// Spectrum
	levels []float64
	peak   float32
	frames int64

	lastError string

	// Debug
	showDebug bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case FrameMsg:
		m.applyFrame(msg.Frame)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderSpectrum(),
		m.renderStats(),
	}
	if m.showDebug {
		sections = append(sections, m.renderDebug())
	}
	sections = append(sections, m.renderHelp())

	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...)) + "\n"
}

// renderHeader renders connection and playback status
func (m Model) renderHeader() string {
	conn := "Disconnected"
	if m.connected {
		conn = fmt.Sprintf("Connected (%s, %dHz)", m.backend, m.sampleRate)
	}

	status := idleStyle.Render("idle")
	if m.playing {
		status = playingStyle.Render("▶ speaking")
	}

	lines := []string{
		titleStyle.Render("Speech Player"),
		labelStyle.Render("Output: ") + conn,
		labelStyle.Render("Source: ") + truncate(m.source, 40),
		labelStyle.Render("Status: ") + status,
	}
	if m.lastError != "" {
		lines = append(lines, errorStyle.Render("Error:  "+truncate(m.lastError, 40)))
	}
	return strings.Join(lines, "\n")
}

// renderSpectrum draws the latest frame as vertical bars
func (m Model) renderSpectrum() string {
	columns := foldLevels(m.levels, spectrumColumns)

	rows := make([]string, 0, spectrumRows)
	for row := spectrumRows; row >= 1; row-- {
		var b strings.Builder
		threshold := float64(row) / spectrumRows
		for _, level := range columns {
			cell := " "
			if level >= threshold-0.5/spectrumRows {
				cell = barStyle(threshold).Render("█")
			}
			b.WriteString(cell)
		}
		rows = append(rows, b.String())
	}

	return "\n" + strings.Join(rows, "\n") + "\n"
}

// renderStats renders buffer and playback statistics
func (m Model) renderStats() string {
	return fmt.Sprintf("%s %d chunks, %s\n%s %s / %s\n%s %s\n%s %d utterances, %d interrupts",
		labelStyle.Render("Received:"), m.chunks, formatBytes(m.bytes),
		labelStyle.Render("Buffer:  "), formatBytes(int64(m.consumed)), formatBytes(int64(m.buffered)),
		labelStyle.Render("Position:"), m.position.Truncate(100*time.Millisecond),
		labelStyle.Render("Played:  "), m.utterances, m.interrupts)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return labelStyle.Render("i:Interrupt  d:Debug  q:Quit")
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf("DEBUG: state=%s frames=%d peak=%.1fdB", m.state, m.frames, m.peak)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			m.controls.quit()
		}
		return m, tea.Quit
	case "i":
		if m.controls != nil && m.controls.interrupt() {
			m.interrupts++
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.Playing != nil {
		m.playing = *msg.Playing
	}
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Chunks != 0 {
		m.chunks = msg.Chunks
		m.bytes = msg.Bytes
	}
	if msg.Buffered != nil {
		m.buffered = *msg.Buffered
		m.consumed = msg.Consumed
	}
	if msg.Position != nil {
		m.position = *msg.Position
	}
	if msg.Ended {
		m.utterances++
		m.playing = false
		m.position = 0
	}
	if msg.Error != "" {
		m.lastError = msg.Error
	}
}

// applyFrame stores a visualization frame for the next render
func (m *Model) applyFrame(f visualize.Frame) {
	m.levels = f.Levels()
	m.peak = f.Peak()
	m.frames++
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Connected  *bool
	Playing    *bool
	Source     string
	Backend    string
	SampleRate int
	State      string
	Chunks     int64
	Bytes      int64
	Buffered   *int
	Consumed   int
	Position   *time.Duration
	Ended      bool
	Error      string
}

// FrameMsg carries one visualization frame
type FrameMsg struct {
	Frame visualize.Frame
}

// foldLevels averages levels down to n columns
func foldLevels(levels []float64, n int) []float64 {
	columns := make([]float64, n)
	if len(levels) == 0 {
		return columns
	}

	per := len(levels) / n
	if per == 0 {
		per = 1
	}
	for c := 0; c < n; c++ {
		sum, count := 0.0, 0
		for i := c * per; i < (c+1)*per && i < len(levels); i++ {
			sum += levels[i]
			count++
		}
		if count > 0 {
			columns[c] = sum / float64(count)
		}
	}
	return columns
}

func barStyle(height float64) lipgloss.Style {
	switch {
	case height > 0.8:
		return highBar
	case height > 0.5:
		return midBar
	default:
		return lowBar
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
