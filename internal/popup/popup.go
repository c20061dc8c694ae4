// ABOUTME: Popup models share one contract: a tea.Model with a title whose commands resolve immediately
// ABOUTME: Drive feeds a message to a model and returns the popup event its command produced, if any

package popup

import (
	tea "github.com/charmbracelet/bubbletea"

	// Must initialize before lipgloss styles are built.
	_ "github.com/mauromedda/chatshell-go/internal/termfix"
)

// SubmitMsg carries the text entered in a Prompt.
type SubmitMsg struct{ Text string }

// AcceptMsg carries the command accepted from a Proposal.
type AcceptMsg struct{ Command string }

// SelectMsg carries the hook chosen in a Palette.
type SelectMsg struct{ Hook string }

// CancelMsg is sent when the user backs out of a popup.
type CancelMsg struct{}

// CloseMsg is sent when a Message popup is dismissed.
type CloseMsg struct{}

// Model is a popup. Commands returned by Update never block: they only
// wrap one of the messages above.
type Model interface {
	tea.Model
	Title() string
}

// Drive delivers msg to m. It returns the updated model and the message
// produced by the returned command, or nil when the popup stays open.
func Drive(m Model, msg tea.Msg) (Model, tea.Msg) {
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	if !ok {
		updated = m
	}
	if cmd == nil {
		return updated, nil
	}
	return updated, cmd()
}

// Resize tells m how much room its body has.
func Resize(m Model, width, height int) Model {
	updated, _ := Drive(m, tea.WindowSizeMsg{Width: width, Height: height})
	return updated
}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
