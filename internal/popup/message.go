// ABOUTME: Message shows titled text (hook output, help, errors) with scrolling
// ABOUTME: Esc, Enter or q close it; Up/Down and PgUp/PgDown scroll long text

package popup

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Message is a read-only text popup. Implements Model with value semantics.
type Message struct {
	title  string
	text   string
	isErr  bool
	width  int
	height int
	lines  []string
	offset int
}

// NewMessage returns a message popup.
func NewMessage(title, text string) Message {
	m := Message{title: title, text: text, width: 60, height: 15}
	m.lines = wrap(strings.TrimRight(text, "\n"), m.width)
	return m
}

// NewError returns a message popup styled as an error.
func NewError(title string, err error) Message {
	m := NewMessage(title, err.Error())
	m.isErr = true
	return m
}

// Title implements Model.
func (m Message) Title() string { return m.title }

// Init implements tea.Model.
func (m Message) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Message) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.lines = wrap(strings.TrimRight(m.text, "\n"), m.width)
		m.offset = min(m.offset, m.maxOffset())
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyEnter:
			return m, send(CloseMsg{})
		case tea.KeyRunes:
			if len(msg.Runes) == 1 && msg.Runes[0] == 'q' {
				return m, send(CloseMsg{})
			}
		case tea.KeyUp:
			m.offset = max(m.offset-1, 0)
		case tea.KeyDown:
			m.offset = min(m.offset+1, m.maxOffset())
		case tea.KeyPgUp:
			m.offset = max(m.offset-m.bodyHeight(), 0)
		case tea.KeyPgDown:
			m.offset = min(m.offset+m.bodyHeight(), m.maxOffset())
		case tea.KeyHome:
			m.offset = 0
		case tea.KeyEnd:
			m.offset = m.maxOffset()
		}
	}
	return m, nil
}

// bodyHeight is the number of text lines shown; one row is kept for the hint.
func (m Message) bodyHeight() int {
	return max(m.height-2, 1)
}

func (m Message) maxOffset() int {
	return max(len(m.lines)-m.bodyHeight(), 0)
}

// View implements tea.Model.
func (m Message) View() string {
	end := min(m.offset+m.bodyHeight(), len(m.lines))
	body := strings.Join(m.lines[m.offset:end], "\n")
	if m.isErr {
		body = errorStyle.Render(body)
	}

	hint := "Esc close"
	if len(m.lines) > m.bodyHeight() {
		hint = fmt.Sprintf("↑/↓ scroll (%d-%d of %d) · Esc close", m.offset+1, end, len(m.lines))
	}
	return body + "\n\n" + hintStyle.Render(hint)
}
