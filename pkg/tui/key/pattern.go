// ABOUTME: Pattern parses chord strings like "ctrl+;" or "Ctrl+Shift+C" into an exact key match.
// ABOUTME: Matching requires equal modifier sets and equal key codes; no subset matching.

package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidPattern is wrapped by every ParsePattern error.
var ErrInvalidPattern = errors.New("invalid key pattern")

// Pattern is a parsed key chord.
type Pattern struct {
	key Key
}

var modifierNames = map[string]Modifiers{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"meta":    ModAlt,
	"opt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
}

// keyNameAliases extends keyTypeNames with accepted spellings.
var keyNameAliases = map[string]KeyType{
	"return": KeyEnter,
	"esc":    KeyEscape,
	"pgup":   KeyPageUp,
	"pgdn":   KeyPageDown,
	"pgdown": KeyPageDown,
	"del":    KeyDelete,
	"ins":    KeyInsert,
	"bs":     KeyBackspace,
}

var runeNames = map[string]rune{
	"space": ' ',
	"plus":  '+',
	"minus": '-',
}

// ParsePattern parses s into a Pattern. Names are case-insensitive.
func ParsePattern(s string) (Pattern, error) {
	if strings.TrimSpace(s) == "" {
		return Pattern{}, fmt.Errorf("%w: empty", ErrInvalidPattern)
	}

	parts := splitChord(s)
	name := parts[len(parts)-1]
	if name == "" {
		return Pattern{}, fmt.Errorf("%w: %q has no key", ErrInvalidPattern, s)
	}

	var mods Modifiers
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Pattern{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidPattern, p, s)
		}
		if mods.Has(m) {
			return Pattern{}, fmt.Errorf("%w: repeated modifier %q in %q", ErrInvalidPattern, p, s)
		}
		mods |= m
	}

	k, err := parseKeyName(name)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, s, err)
	}
	k.Mod |= mods
	return Pattern{key: k}, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// splitChord splits on '+' while treating a trailing "++" as the plus key.
func splitChord(s string) []string {
	if strings.HasSuffix(s, "++") {
		head := strings.TrimSuffix(s, "++")
		if head == "" {
			return []string{"+"}
		}
		return append(strings.Split(head, "+"), "+")
	}
	if s == "+" {
		return []string{"+"}
	}
	return strings.Split(s, "+")
}

func parseKeyName(name string) (Key, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = name // a literal space
	}
	lower := strings.ToLower(trimmed)

	if r, ok := runeNames[lower]; ok {
		return Key{Type: KeyRune, Rune: r}, nil
	}
	if kt, ok := keyNameAliases[lower]; ok {
		return Key{Type: kt}, nil
	}
	for kt, n := range keyTypeNames {
		if n == lower && kt != KeyPaste && kt != KeyUnknown {
			return Key{Type: kt}, nil
		}
	}

	if utf8.RuneCountInString(trimmed) == 1 {
		r, _ := utf8.DecodeRuneInString(lower)
		return Key{Type: KeyRune, Rune: r}, nil
	}
	return Key{}, fmt.Errorf("unknown key %q", name)
}

// Matches reports whether k is exactly this chord.
func (p Pattern) Matches(k Key) bool {
	return p.key.Equal(k)
}

// Key returns the chord as a Key with a lowercase rune.
func (p Pattern) Key() Key {
	return p.key
}

// String returns the canonical form accepted by ParsePattern.
func (p Pattern) String() string {
	return p.key.String()
}

// IsZero reports whether p was never parsed.
func (p Pattern) IsZero() bool {
	return p == Pattern{}
}
