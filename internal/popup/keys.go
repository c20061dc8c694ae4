// ABOUTME: Converts relay key events into Bubble Tea key messages for the popup models
// ABOUTME: The relay decodes input itself, so models never see raw bytes

package popup

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mauromedda/chatshell-go/pkg/tui/key"
)

var namedKeyTypes = map[key.KeyType]tea.KeyType{
	key.KeyEnter:     tea.KeyEnter,
	key.KeyTab:       tea.KeyTab,
	key.KeyBackspace: tea.KeyBackspace,
	key.KeyEscape:    tea.KeyEsc,
	key.KeyUp:        tea.KeyUp,
	key.KeyDown:      tea.KeyDown,
	key.KeyLeft:      tea.KeyLeft,
	key.KeyRight:     tea.KeyRight,
	key.KeyHome:      tea.KeyHome,
	key.KeyEnd:       tea.KeyEnd,
	key.KeyPageUp:    tea.KeyPgUp,
	key.KeyPageDown:  tea.KeyPgDown,
	key.KeyInsert:    tea.KeyInsert,
	key.KeyDelete:    tea.KeyDelete,
	key.KeyF1:        tea.KeyF1,
	key.KeyF2:        tea.KeyF2,
	key.KeyF3:        tea.KeyF3,
	key.KeyF4:        tea.KeyF4,
	key.KeyF5:        tea.KeyF5,
	key.KeyF6:        tea.KeyF6,
	key.KeyF7:        tea.KeyF7,
	key.KeyF8:        tea.KeyF8,
	key.KeyF9:        tea.KeyF9,
	key.KeyF10:       tea.KeyF10,
	key.KeyF11:       tea.KeyF11,
	key.KeyF12:       tea.KeyF12,
}

var shiftedKeyTypes = map[key.KeyType]tea.KeyType{
	key.KeyTab:   tea.KeyShiftTab,
	key.KeyUp:    tea.KeyShiftUp,
	key.KeyDown:  tea.KeyShiftDown,
	key.KeyLeft:  tea.KeyShiftLeft,
	key.KeyRight: tea.KeyShiftRight,
	key.KeyHome:  tea.KeyShiftHome,
	key.KeyEnd:   tea.KeyShiftEnd,
}

var ctrlKeyTypes = map[key.KeyType]tea.KeyType{
	key.KeyUp:       tea.KeyCtrlUp,
	key.KeyDown:     tea.KeyCtrlDown,
	key.KeyLeft:     tea.KeyCtrlLeft,
	key.KeyRight:    tea.KeyCtrlRight,
	key.KeyHome:     tea.KeyCtrlHome,
	key.KeyEnd:      tea.KeyCtrlEnd,
	key.KeyPageUp:   tea.KeyCtrlPgUp,
	key.KeyPageDown: tea.KeyCtrlPgDown,
}

// KeyMsg converts k into the message Bubble Tea would have produced for it.
func KeyMsg(k key.Key) tea.KeyMsg {
	alt := k.Mod.Has(key.ModAlt)

	if k.Type == key.KeyRune {
		if k.Mod.Has(key.ModCtrl) {
			if t, ok := ctrlRuneKeyType(k.Rune); ok {
				return tea.KeyMsg{Type: t, Alt: alt}
			}
		}
		if k.Rune == ' ' {
			return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}, Alt: alt}
		}
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{k.Rune}, Alt: alt}
	}

	if k.Mod.Has(key.ModCtrl) {
		if t, ok := ctrlKeyTypes[k.Type]; ok {
			return tea.KeyMsg{Type: t, Alt: alt}
		}
	}
	if k.Mod.Has(key.ModShift) {
		if t, ok := shiftedKeyTypes[k.Type]; ok {
			return tea.KeyMsg{Type: t, Alt: alt}
		}
	}
	if t, ok := namedKeyTypes[k.Type]; ok {
		return tea.KeyMsg{Type: t, Alt: alt}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Alt: alt}
}

// PasteMsg wraps pasted text the way Bubble Tea reports bracketed paste.
func PasteMsg(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text), Paste: true}
}

func ctrlRuneKeyType(r rune) (tea.KeyType, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return tea.KeyCtrlA + tea.KeyType(r-'a'), true
	case r >= 'A' && r <= 'Z':
		return tea.KeyCtrlA + tea.KeyType(r-'A'), true
	}
	switch r {
	case '@', ' ':
		return tea.KeyCtrlAt, true
	case '\\':
		return tea.KeyCtrlBackslash, true
	case ']':
		return tea.KeyCtrlCloseBracket, true
	case '^':
		return tea.KeyCtrlCaret, true
	case '_':
		return tea.KeyCtrlUnderscore, true
	}
	return 0, false
}
