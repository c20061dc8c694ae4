// ABOUTME: Legacy escape sequence mappings for CSI and SS3 terminal key codes.
// ABOUTME: Covers arrows, navigation keys, F1-F12, BackTab and the xterm "CSI 1;<mod>" modified forms.

package key

import "strconv"

// legacySequences maps standard CSI and SS3 escape sequences to Key values.
// These cover the most common terminal emulator key encodings.
var legacySequences = map[string]Key{
	// CSI sequences
	"\x1b[A":   {Type: KeyUp},
	"\x1b[B":   {Type: KeyDown},
	"\x1b[C":   {Type: KeyRight},
	"\x1b[D":   {Type: KeyLeft},
	"\x1b[H":   {Type: KeyHome},
	"\x1b[F":   {Type: KeyEnd},
	"\x1b[Z":   {Type: KeyTab, Mod: ModShift},
	"\x1b[1~":  {Type: KeyHome},
	"\x1b[2~":  {Type: KeyInsert},
	"\x1b[3~":  {Type: KeyDelete},
	"\x1b[4~":  {Type: KeyEnd},
	"\x1b[5~":  {Type: KeyPageUp},
	"\x1b[6~":  {Type: KeyPageDown},
	"\x1b[7~":  {Type: KeyHome},
	"\x1b[8~":  {Type: KeyEnd},
	"\x1b[11~": {Type: KeyF1},
	"\x1b[12~": {Type: KeyF2},
	"\x1b[13~": {Type: KeyF3},
	"\x1b[14~": {Type: KeyF4},
	"\x1b[15~": {Type: KeyF5},
	"\x1b[17~": {Type: KeyF6},
	"\x1b[18~": {Type: KeyF7},
	"\x1b[19~": {Type: KeyF8},
	"\x1b[20~": {Type: KeyF9},
	"\x1b[21~": {Type: KeyF10},
	"\x1b[23~": {Type: KeyF11},
	"\x1b[24~": {Type: KeyF12},

	// Linux console function keys
	"\x1b[[A": {Type: KeyF1},
	"\x1b[[B": {Type: KeyF2},
	"\x1b[[C": {Type: KeyF3},
	"\x1b[[D": {Type: KeyF4},
	"\x1b[[E": {Type: KeyF5},

	// SS3 variants (application cursor mode, F1-F4)
	"\x1bOA": {Type: KeyUp},
	"\x1bOB": {Type: KeyDown},
	"\x1bOC": {Type: KeyRight},
	"\x1bOD": {Type: KeyLeft},
	"\x1bOH": {Type: KeyHome},
	"\x1bOF": {Type: KeyEnd},
	"\x1bOP": {Type: KeyF1},
	"\x1bOQ": {Type: KeyF2},
	"\x1bOR": {Type: KeyF3},
	"\x1bOS": {Type: KeyF4},
	"\x1bOM": {Type: KeyEnter},
}

// tildeKeyTypes maps CSI number~ codes to their key types.
var tildeKeyTypes = map[int]KeyType{
	1:  KeyHome,
	2:  KeyInsert,
	3:  KeyDelete,
	4:  KeyEnd,
	5:  KeyPageUp,
	6:  KeyPageDown,
	7:  KeyHome,
	8:  KeyEnd,
	11: KeyF1,
	12: KeyF2,
	13: KeyF3,
	14: KeyF4,
	15: KeyF5,
	17: KeyF6,
	18: KeyF7,
	19: KeyF8,
	20: KeyF9,
	21: KeyF10,
	23: KeyF11,
	24: KeyF12,
}

// tildeCodes is the inverse of tildeKeyTypes for the encoder's canonical forms.
var tildeCodes = map[KeyType]int{
	KeyInsert:   2,
	KeyDelete:   3,
	KeyPageUp:   5,
	KeyPageDown: 6,
	KeyF5:       15,
	KeyF6:       17,
	KeyF7:       18,
	KeyF8:       19,
	KeyF9:       20,
	KeyF10:      21,
	KeyF11:      23,
	KeyF12:      24,
}

// letterKeyTypes maps CSI/SS3 letter terminators to their key types.
var letterKeyTypes = map[byte]KeyType{
	'A': KeyUp,
	'B': KeyDown,
	'C': KeyRight,
	'D': KeyLeft,
	'H': KeyHome,
	'F': KeyEnd,
	'P': KeyF1,
	'Q': KeyF2,
	'R': KeyF3,
	'S': KeyF4,
}

// letterCodes is the inverse of letterKeyTypes.
var letterCodes = map[KeyType]byte{
	KeyUp:    'A',
	KeyDown:  'B',
	KeyRight: 'C',
	KeyLeft:  'D',
	KeyHome:  'H',
	KeyEnd:   'F',
	KeyF1:    'P',
	KeyF2:    'Q',
	KeyF3:    'R',
	KeyF4:    'S',
}

// modifierParam returns the xterm modifier parameter for m: 1 + shift(1) + alt(2) + ctrl(4).
func modifierParam(m Modifiers) int {
	p := 1
	if m.Has(ModShift) {
		p += kittyShift
	}
	if m.Has(ModAlt) {
		p += kittyAlt
	}
	if m.Has(ModCtrl) {
		p += kittyCtrl
	}
	return p
}

// modifiersFromBits converts the decoded wire bitmask into a Modifiers set.
func modifiersFromBits(bits int) Modifiers {
	var m Modifiers
	if bits&kittyShift != 0 {
		m |= ModShift
	}
	if bits&kittyAlt != 0 {
		m |= ModAlt
	}
	if bits&kittyCtrl != 0 {
		m |= ModCtrl
	}
	return m
}

// csiModified renders "ESC [ <code> ; <param> <final>".
func csiModified(code int, m Modifiers, final byte) []byte {
	b := []byte("\x1b[")
	b = strconv.AppendInt(b, int64(code), 10)
	b = append(b, ';')
	b = strconv.AppendInt(b, int64(modifierParam(m)), 10)
	return append(b, final)
}
