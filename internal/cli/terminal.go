package cli

import (
	"golang.org/x/term"
)

// TerminalDetector reports whether a file descriptor is an interactive
// terminal. Injected so tests can force either answer.
type TerminalDetector interface {
	IsTerminal(fd uintptr) bool
}

// RealTerminalDetector uses golang.org/x/term
type RealTerminalDetector struct{}

// IsTerminal checks if the file descriptor is a terminal
func (d *RealTerminalDetector) IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// FixedTerminalDetector always returns a fixed answer (tests)
type FixedTerminalDetector struct {
	Terminal bool
}

// IsTerminal returns the fixed answer
func (d *FixedTerminalDetector) IsTerminal(fd uintptr) bool {
	return d.Terminal
}
