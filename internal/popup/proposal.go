// ABOUTME: Proposal shows an assistant-suggested command with its markdown explanation
// ABOUTME: Enter accepts the command, Esc dismisses it; the explanation is rendered with glamour

package popup

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Proposal presents one command. Implements Model with value semantics.
type Proposal struct {
	command     string
	explanation string
	autoExecute bool
	width       int
	height      int
	rendered    string
}

// NewProposal returns a proposal popup. With autoExecute the accepted
// command is run, otherwise it is only typed.
func NewProposal(command, explanation string, autoExecute bool) Proposal {
	m := Proposal{command: command, explanation: explanation, autoExecute: autoExecute, width: 60, height: 12}
	m.rendered = renderMarkdown(explanation, m.width)
	return m
}

// Title implements Model.
func (m Proposal) Title() string { return "Suggested command" }

// Command returns the proposed command line.
func (m Proposal) Command() string { return m.command }

// Init implements tea.Model.
func (m Proposal) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Proposal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width != m.width {
			m.rendered = renderMarkdown(m.explanation, msg.Width)
		}
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			return m, send(AcceptMsg{Command: m.command})
		case tea.KeyEsc:
			return m, send(CancelMsg{})
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Proposal) View() string {
	var b strings.Builder
	for _, l := range wrap("$ "+m.command, m.width) {
		b.WriteString(commandStyle.Render(l))
		b.WriteByte('\n')
	}

	if m.rendered != "" {
		b.WriteByte('\n')
		lines := strings.Split(m.rendered, "\n")
		// Command, blank lines and hint take the rest.
		room := max(m.height-strings.Count(b.String(), "\n")-3, 1)
		if len(lines) > room {
			lines = append(lines[:room-1], hintStyle.Render("…"))
		}
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteByte('\n')
	}

	action := "Enter type into shell"
	if m.autoExecute {
		action = "Enter run"
	}
	b.WriteByte('\n')
	b.WriteString(hintStyle.Render(action + " · Esc dismiss"))
	return b.String()
}

// renderMarkdown renders md for width cells, falling back to wrapped
// plain text.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	// A fixed style: auto-detection would query the terminal.
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			return strings.Trim(out, "\n ")
		}
	}
	return strings.Join(wrap(md, width), "\n")
}
