// ABOUTME: Version information for the speech player
// ABOUTME: Single source of truth for product identity
package version

const (
	// Version is the current release
	Version = "0.3.0"

	// Product is the name reported in logs and the TUI
	Product = "speechplayer"

	// Manufacturer identifies who ships the binary
	Manufacturer = "Resonate Protocol"
)
