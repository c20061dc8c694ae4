// ABOUTME: Defines the Key type, modifier set and ParseKey for a single terminal key sequence.
// ABOUTME: Handles printable runes, control bytes, Alt prefixes and delegates escape sequences to legacy/kitty parsers.

package key

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Modifiers is the set of modifier keys held with a key press.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCtrl
)

// Has reports whether every modifier in x is set in m.
func (m Modifiers) Has(x Modifiers) bool {
	return m&x == x
}

// String renders the set in canonical order, e.g. "ctrl+alt+shift".
func (m Modifiers) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "shift")
	}
	return strings.Join(parts, "+")
}

// Key represents a parsed keyboard input event.
type Key struct {
	Type KeyType
	Rune rune // For KeyRune
	Mod  Modifiers
}

// KeyType enumerates the kinds of key events the relay can receive.
type KeyType int

const (
	KeyRune      KeyType = iota // Printable character
	KeyEnter                    // Enter / Return
	KeyTab                      // Tab
	KeyBackspace                // Backspace / DEL (0x7F)
	KeyEscape                   // Escape
	KeyUp                       // Arrow up
	KeyDown                     // Arrow down
	KeyLeft                     // Arrow left
	KeyRight                    // Arrow right
	KeyHome                     // Home
	KeyEnd                      // End
	KeyPageUp                   // Page Up
	KeyPageDown                 // Page Down
	KeyInsert                   // Insert
	KeyDelete                   // Delete
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyPaste   // Bracketed paste block; never matched, always forwarded verbatim
	KeyUnknown // Unrecognized input; forwarded verbatim
)

// NamedKeys lists every special key the encoder has a fixed sequence for.
func NamedKeys() []KeyType {
	keys := make([]KeyType, 0, int(KeyF12-KeyEnter)+1)
	for kt := KeyEnter; kt <= KeyF12; kt++ {
		keys = append(keys, kt)
	}
	return keys
}

// IsFunction reports whether kt is one of F1..F12.
func (kt KeyType) IsFunction() bool {
	return kt >= KeyF1 && kt <= KeyF12
}

// Equal reports whether two keys have the same code and the same modifier set.
// Letter runes compare case-insensitively: Shift is carried by Mod.
func (k Key) Equal(o Key) bool {
	if k.Type != o.Type || k.Mod != o.Mod {
		return false
	}
	if k.Type == KeyRune {
		return unicode.ToLower(k.Rune) == unicode.ToLower(o.Rune)
	}
	return true
}

// Without returns a copy of k with the given modifiers cleared.
func (k Key) Without(m Modifiers) Key {
	k.Mod &^= m
	return k
}

// ctrlRunes maps control bytes that are not Ctrl+letter to their chord rune.
var ctrlRunes = map[byte]rune{
	0x00: ' ',
	0x1c: '\\',
	0x1d: ']',
	0x1e: '^',
	0x1f: '_',
}

// ParseKey parses one complete input sequence into a Key.
// It handles single runes, control characters, Alt prefixes and escape sequences.
func ParseKey(data string) Key {
	if len(data) == 0 {
		return Key{Type: KeyUnknown}
	}

	// Single-byte fast path
	if len(data) == 1 {
		return parseSingleByte(data[0])
	}

	// Escape sequence path
	if data[0] == 0x1b {
		return parseEscapeSequence(data)
	}

	// Multi-byte UTF-8 rune
	r, size := utf8.DecodeRuneInString(data)
	if r == utf8.RuneError || size != len(data) {
		return Key{Type: KeyUnknown}
	}
	return runeKey(r)
}

// runeKey builds a KeyRune, marking Shift for uppercase letters.
func runeKey(r rune) Key {
	k := Key{Type: KeyRune, Rune: r}
	if unicode.IsUpper(r) {
		k.Mod |= ModShift
	}
	return k
}

// parseSingleByte handles a single-byte input (ASCII or control character).
func parseSingleByte(b byte) Key {
	switch {
	case b == 0x0d:
		return Key{Type: KeyEnter}
	case b == 0x09:
		return Key{Type: KeyTab}
	case b == 0x7f:
		return Key{Type: KeyBackspace}
	case b == 0x1b:
		return Key{Type: KeyEscape}
	case b >= 0x20 && b <= 0x7e:
		return runeKey(rune(b))
	case b >= 0x01 && b <= 0x1a:
		return Key{Type: KeyRune, Rune: rune('a' + b - 1), Mod: ModCtrl}
	}

	if r, ok := ctrlRunes[b]; ok {
		return Key{Type: KeyRune, Rune: r, Mod: ModCtrl}
	}
	return Key{Type: KeyUnknown}
}

// parseEscapeSequence delegates to legacy and kitty parsers for ESC-prefixed data.
func parseEscapeSequence(data string) Key {
	if k, ok := ParseKittyKey(data); ok {
		return k
	}

	if k, ok := legacySequences[data]; ok {
		return k
	}

	// Alt+<key>: ESC followed by one complete key.
	if inner := ParseKey(data[1:]); inner.Type != KeyUnknown && inner.Type != KeyPaste {
		inner.Mod |= ModAlt
		return inner
	}

	return Key{Type: KeyUnknown}
}

// keyTypeNames provides the canonical lowercase name for each named KeyType.
var keyTypeNames = map[KeyType]string{
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyBackspace: "backspace",
	KeyEscape:    "escape",
	KeyUp:        "up",
	KeyDown:      "down",
	KeyLeft:      "left",
	KeyRight:     "right",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyPageUp:    "pageup",
	KeyPageDown:  "pagedown",
	KeyInsert:    "insert",
	KeyDelete:    "delete",
	KeyF1:        "f1",
	KeyF2:        "f2",
	KeyF3:        "f3",
	KeyF4:        "f4",
	KeyF5:        "f5",
	KeyF6:        "f6",
	KeyF7:        "f7",
	KeyF8:        "f8",
	KeyF9:        "f9",
	KeyF10:       "f10",
	KeyF11:       "f11",
	KeyF12:       "f12",
	KeyPaste:     "paste",
	KeyUnknown:   "unknown",
}

// String returns the canonical chord form, e.g. "ctrl+;" or "shift+f5".
// It is the same form ParsePattern accepts.
func (k Key) String() string {
	name := k.codeName()
	if k.Mod == 0 {
		return name
	}
	return k.Mod.String() + "+" + name
}

func (k Key) codeName() string {
	if k.Type != KeyRune {
		if name, ok := keyTypeNames[k.Type]; ok {
			return name
		}
		return "unknown"
	}
	switch k.Rune {
	case ' ':
		return "space"
	case '+':
		return "plus"
	}
	return string(unicode.ToLower(k.Rune))
}
