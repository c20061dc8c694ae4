// ABOUTME: Kitty keyboard protocol and xterm modified-key CSI parser.
// ABOUTME: Parses unicode codepoints, modifier bitmasks, event types and functional key codes.

package key

import "strconv"

// Kitty modifier bitmask values (encoded as modifiers-1 in the wire format).
const (
	kittyShift = 1 << iota // bit 0
	kittyAlt               // bit 1
	kittyCtrl              // bit 2
)

// kittyFunctional maps kitty private-use codepoints to functional keys.
var kittyFunctional = map[rune]KeyType{
	57364: KeyF1,
	57365: KeyF2,
	57366: KeyF3,
	57367: KeyF4,
	57368: KeyF5,
	57369: KeyF6,
	57370: KeyF7,
	57371: KeyF8,
	57372: KeyF9,
	57373: KeyF10,
	57374: KeyF11,
	57375: KeyF12,
	57414: KeyEnter, // KP_Enter
	57417: KeyUp,
	57418: KeyDown,
	57419: KeyLeft,
	57420: KeyRight,
	57421: KeyPageUp,
	57422: KeyPageDown,
	57423: KeyHome,
	57424: KeyEnd,
	57425: KeyInsert,
	57426: KeyDelete,
}

// kittyKeypad maps keypad codepoints to the text the key types.
var kittyKeypad = map[rune]rune{
	57399: '0',
	57400: '1',
	57401: '2',
	57402: '3',
	57403: '4',
	57404: '5',
	57405: '6',
	57406: '7',
	57407: '8',
	57408: '9',
	57409: '.',
	57410: '/',
	57411: '*',
	57412: '-',
	57413: '+',
	57415: '=',
	57416: ',',
}

// Private-use range kitty draws its functional key codes from.
const (
	privateUseFirst = 0xE000
	privateUseLast  = 0xF8FF
)

// ParseKittyKey parses a kitty or xterm modified-key escape sequence.
// It handles four formats:
//   - CSI <codepoint>[:<shifted>] [; <modifiers>[:<event>]] u
//   - CSI <number> ; <modifiers> ~      (functional keys)
//   - CSI 1 ; <modifiers> <letter>      (arrow/nav/F1-F4 keys with modifiers)
//   - CSI <letter>                      (kitty's bare F1-F4)
//
// Returns the parsed Key and true on success; zero Key and false otherwise.
func ParseKittyKey(data string) (Key, bool) {
	if len(data) < 3 || data[0] != 0x1b || data[1] != '[' {
		return Key{}, false
	}

	body := data[2:]
	terminator := body[len(body)-1]
	params := body[:len(body)-1]

	switch terminator {
	case 'u':
		return parseCSIu(params)
	case '~':
		if _, mods := splitOnSemicolon(params); mods == "" {
			return Key{}, false // plain tilde keys live in the legacy table
		}
		return parseTilde(params)
	case 'A', 'B', 'C', 'D', 'H', 'F', 'P', 'Q', 'R', 'S':
		return parseLetterTerminator(params, terminator)
	default:
		return Key{}, false
	}
}

// parseCSIu handles the CSI <codepoint>[:<shifted>] [; <modifiers>[:<event>]] u format.
func parseCSIu(body string) (Key, bool) {
	codepointStr, modifierStr := splitOnSemicolon(body)

	codepoint, err := parseCodepoint(codepointStr)
	if err != nil {
		return Key{}, false
	}

	mods, event, err := parseModifiers(modifierStr)
	if err != nil {
		return Key{}, false
	}

	// Event type 3 = key release; ignore it
	if event == 3 {
		return Key{}, false
	}

	return buildKey(codepoint, mods), true
}

// parseTilde handles the CSI <number> ; <modifiers> ~ format for functional keys.
func parseTilde(body string) (Key, bool) {
	numStr, modifierStr := splitOnSemicolon(body)

	num, err := strconv.Atoi(numStr)
	if err != nil {
		return Key{}, false
	}

	kt, ok := tildeKeyTypes[num]
	if !ok {
		return Key{}, false
	}

	mods, _, err := parseModifiers(modifierStr)
	if err != nil {
		return Key{}, false
	}

	return Key{Type: kt, Mod: modifiersFromBits(mods)}, true
}

// parseLetterTerminator handles CSI [1 ; <modifiers>] <letter> for arrow/nav keys.
// The bare form is only accepted for F1-F4; bare arrows are in the legacy table.
func parseLetterTerminator(body string, letter byte) (Key, bool) {
	kt, ok := letterKeyTypes[letter]
	if !ok {
		return Key{}, false
	}

	if body == "" {
		if kt.IsFunction() {
			return Key{Type: kt}, true
		}
		return Key{}, false
	}

	num, modifierStr := splitOnSemicolon(body)
	if num != "1" || modifierStr == "" {
		return Key{}, false
	}

	mods, _, err := parseModifiers(modifierStr)
	if err != nil {
		return Key{}, false
	}

	return Key{Type: kt, Mod: modifiersFromBits(mods)}, true
}

// splitOnSemicolon splits a string into at most two parts on the first ';'.
func splitOnSemicolon(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// splitOnColon splits a string into at most two parts on the first ':'.
func splitOnColon(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// parseCodepoint extracts the primary unicode codepoint from a potentially colon-delimited string.
// Format: <codepoint>[:<shifted_key>[:<base_key>]]
func parseCodepoint(s string) (rune, error) {
	primary, _ := splitOnColon(s)
	n, err := strconv.Atoi(primary)
	if err != nil {
		return 0, err
	}
	return rune(n), nil
}

// parseModifiers parses the modifier and optional event type from a string.
// Format: <modifiers>[:<event_type>]
// Returns the decoded bitmask, event type (0 if absent), and any error.
func parseModifiers(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}

	modStr, eventStr := splitOnColon(s)

	modVal, err := strconv.Atoi(modStr)
	if err != nil {
		return 0, 0, err
	}
	// Wire format is modifiers-1; decode the bitmask
	mods := modVal - 1
	if mods < 0 {
		mods = 0
	}

	event := 0
	if eventStr != "" {
		event, err = strconv.Atoi(eventStr)
		if err != nil {
			return 0, 0, err
		}
	}

	return mods, event, nil
}

// buildKey constructs a Key from a unicode codepoint and modifier bitmask.
func buildKey(codepoint rune, mods int) Key {
	k := mapCodepointToKey(codepoint)
	k.Mod |= modifiersFromBits(mods)
	return k
}

// mapCodepointToKey converts a unicode codepoint to a base Key without modifiers.
func mapCodepointToKey(cp rune) Key {
	switch cp {
	case 13:
		return Key{Type: KeyEnter}
	case 9:
		return Key{Type: KeyTab}
	case 127, 8:
		return Key{Type: KeyBackspace}
	case 27:
		return Key{Type: KeyEscape}
	}
	if kt, ok := kittyFunctional[cp]; ok {
		return Key{Type: kt}
	}
	if r, ok := kittyKeypad[cp]; ok {
		return Key{Type: KeyRune, Rune: r}
	}
	// KP_BEGIN, F13-F35, media and lone modifier keys have no legacy form.
	if cp >= privateUseFirst && cp <= privateUseLast {
		return Key{Type: KeyUnknown}
	}
	return Key{Type: KeyRune, Rune: cp}
}
