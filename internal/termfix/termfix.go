// ABOUTME: Fixes lipgloss terminal detection before any popup style exists
// ABOUTME: Import it (with _) ahead of bubbletea so no OSC query reaches the relayed terminal

package termfix

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// A background-color query (OSC 11) would be answered on stdin, which
	// the relay forwards to the shell. Declaring the background up front
	// makes lipgloss and bubbletea skip the query.
	//
	// This package must not import bubbletea, directly or transitively.
	lipgloss.SetHasDarkBackground(true)

	// Color support from the environment only (TERM, COLORTERM, NO_COLOR).
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}
