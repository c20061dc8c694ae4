// ABOUTME: Prompt asks the user for one line of text (the assistant instruction)
// ABOUTME: Enter submits a non-empty value, Esc cancels; editing is handled by bubbles/textinput

package popup

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Prompt is a single-line input popup. Implements Model with value semantics.
type Prompt struct {
	title string
	input textinput.Model
}

// NewPrompt returns a focused prompt.
func NewPrompt(title, placeholder string) Prompt {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = 2000
	// A blinking cursor needs timer commands; the relay has no tea.Program.
	ti.Cursor.SetMode(cursor.CursorStatic)
	// Bracketed paste arrives as a paste message; the clipboard is never read.
	ti.KeyMap.Paste.SetEnabled(false)
	ti.Focus()
	return Prompt{title: title, input: ti}
}

// Title implements Model.
func (m Prompt) Title() string { return m.title }

// Value returns the current text.
func (m Prompt) Value() string { return m.input.Value() }

// Init implements tea.Model.
func (m Prompt) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Prompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			return m, send(SubmitMsg{Text: text})
		case tea.KeyEsc:
			return m, send(CancelMsg{})
		}
		if msg.Paste {
			// Multi-line pastes collapse to one line.
			msg.Runes = []rune(strings.Join(strings.Fields(string(msg.Runes)), " "))
		}
		// The input's own commands only drive cursor blinking.
		m.input, _ = m.input.Update(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Prompt) View() string {
	return m.input.View() + "\n\n" + hintStyle.Render("Enter send · Esc cancel")
}
