// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for player UI
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Controls carries user actions from the TUI to the player
type Controls struct {
	Interrupt chan struct{}
	Quit      chan struct{}

	quitOnce sync.Once
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Interrupt: make(chan struct{}, 1),
		Quit:      make(chan struct{}),
	}
}

// interrupt requests an interrupt. It reports false if one is already pending.
func (c *Controls) interrupt() bool {
	select {
	case c.Interrupt <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Controls) quit() {
	c.quitOnce.Do(func() { close(c.Quit) })
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		state:    "disconnected",
		levels:   make([]float64, 0),
		controls: controls,
	}
}

// Run creates the TUI program
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
