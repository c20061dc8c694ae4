// ABOUTME: Waiting shows that an assistant request is in flight; Esc cancels it

package popup

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Waiting is shown while the assistant works. Implements Model.
type Waiting struct {
	instruction string
	width       int
}

// NewWaiting returns the notice for instruction.
func NewWaiting(instruction string) Waiting {
	return Waiting{instruction: instruction, width: 60}
}

// Title implements Model.
func (m Waiting) Title() string { return "Assistant" }

// Init implements tea.Model.
func (m Waiting) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Waiting) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, send(CancelMsg{})
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Waiting) View() string {
	return "Thinking about:\n" + truncate(m.instruction, m.width) + "\n\n" + hintStyle.Render("Esc cancel")
}
