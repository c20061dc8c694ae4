// ABOUTME: Palette lists hooks and filters them with fuzzy matching as the user types
// ABOUTME: Up/Down select, Enter runs the selected hook, Esc cancels

package popup

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

const maxPaletteVisible = 10

// PaletteItem is one runnable hook.
type PaletteItem struct {
	Name        string
	Keys        string
	Description string
}

// paletteSource matches on name and description.
type paletteSource []PaletteItem

func (s paletteSource) String(i int) string { return s[i].Name + " " + s[i].Description }
func (s paletteSource) Len() int            { return len(s) }

// Palette is a filterable hook list. Implements Model with value semantics.
type Palette struct {
	items    []PaletteItem
	visible  []PaletteItem
	filter   string
	selected int
	width    int
}

// NewPalette returns a palette over items.
func NewPalette(items []PaletteItem) Palette {
	m := Palette{items: items, width: 60}
	m.applyFilter()
	return m
}

// Title implements Model.
func (m Palette) Title() string { return "Run hook" }

// Selected returns the highlighted hook name, or "".
func (m Palette) Selected() string {
	if len(m.visible) == 0 {
		return ""
	}
	return m.visible[m.selected].Name
}

// Init implements tea.Model.
func (m Palette) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Palette) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return m, send(CancelMsg{})
		case tea.KeyEnter:
			if name := m.Selected(); name != "" {
				return m, send(SelectMsg{Hook: name})
			}
		case tea.KeyUp, tea.KeyShiftTab, tea.KeyCtrlP:
			if n := len(m.visible); n > 0 {
				m.selected = (m.selected - 1 + n) % n
			}
		case tea.KeyDown, tea.KeyTab, tea.KeyCtrlN:
			if n := len(m.visible); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case tea.KeyBackspace:
			if r := []rune(m.filter); len(r) > 0 {
				m.filter = string(r[:len(r)-1])
				m.applyFilter()
			}
		case tea.KeyCtrlU:
			m.filter = ""
			m.applyFilter()
		case tea.KeyRunes, tea.KeySpace:
			m.filter += string(msg.Runes)
			m.applyFilter()
		}
	}
	return m, nil
}

func (m *Palette) applyFilter() {
	m.selected = 0
	if strings.TrimSpace(m.filter) == "" {
		m.visible = append([]PaletteItem(nil), m.items...)
		return
	}
	matches := fuzzy.FindFrom(m.filter, paletteSource(m.items))
	m.visible = make([]PaletteItem, 0, len(matches))
	for _, match := range matches {
		m.visible = append(m.visible, m.items[match.Index])
	}
}

// View implements tea.Model.
func (m Palette) View() string {
	var b strings.Builder
	b.WriteString("> " + m.filter + "\n\n")

	if len(m.visible) == 0 {
		b.WriteString(hintStyle.Render("no matching hooks"))
	}

	start := 0
	if m.selected >= maxPaletteVisible {
		start = m.selected - maxPaletteVisible + 1
	}
	end := min(start+maxPaletteVisible, len(m.visible))
	for i := start; i < end; i++ {
		it := m.visible[i]
		line := truncate(fmt.Sprintf("%-14s %-14s %s", it.Keys, it.Name, it.Description), m.width)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	b.WriteString("\n\n" + hintStyle.Render("↑/↓ select · Enter run · Esc cancel"))
	return b.String()
}
