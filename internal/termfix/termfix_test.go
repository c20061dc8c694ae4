// ABOUTME: Checks that importing termfix leaves lipgloss with a fixed dark background
// ABOUTME: so rendering never has to ask the terminal

package termfix

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestInit_DarkBackground(t *testing.T) {
	if !lipgloss.HasDarkBackground() {
		t.Error("HasDarkBackground() = false after init")
	}
}
