// ABOUTME: Encodes a Key back into the byte sequence a terminal would have sent for it.
// ABOUTME: Legacy xterm encoding: control codes, ESC-prefixed Alt, CSI/SS3 with modifier parameters.

package key

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ctrlPunct maps the runes that combine with Ctrl into a C0 control code.
var ctrlPunct = map[rune]byte{
	'@':  0x00,
	' ':  0x00,
	'2':  0x00,
	'[':  0x1b,
	'3':  0x1b,
	'\\': 0x1c,
	'4':  0x1c,
	']':  0x1d,
	'5':  0x1d,
	'^':  0x1e,
	'~':  0x1e,
	'6':  0x1e,
	'_':  0x1f,
	'/':  0x1f,
	'-':  0x1f,
	'7':  0x1f,
	'?':  0x7f,
	'8':  0x7f,
}

// Encode returns the bytes a legacy terminal sends for k. It never returns an
// empty slice for a valid key.
func Encode(k Key) []byte {
	if k.Mod.Has(ModAlt) {
		return append([]byte{0x1b}, Encode(k.Without(ModAlt))...)
	}

	switch k.Type {
	case KeyRune:
		return encodeRune(k)
	case KeyEnter:
		return []byte{'\r'}
	case KeyTab:
		if k.Mod.Has(ModShift) {
			return []byte("\x1b[Z")
		}
		return []byte{'\t'}
	case KeyBackspace:
		if k.Mod.Has(ModCtrl) {
			return []byte{0x08}
		}
		return []byte{0x7f}
	case KeyEscape:
		return []byte{0x1b}
	}

	if final, ok := letterCodes[k.Type]; ok {
		switch {
		case k.Mod != 0:
			return csiModified(1, k.Mod, final)
		case k.Type.IsFunction():
			return []byte{0x1b, 'O', final}
		default:
			return []byte{0x1b, '[', final}
		}
	}

	if code, ok := tildeCodes[k.Type]; ok {
		if k.Mod != 0 {
			return csiModified(code, k.Mod, '~')
		}
		b := []byte("\x1b[")
		b = strconv.AppendInt(b, int64(code), 10)
		return append(b, '~')
	}

	// KeyPaste and KeyUnknown have no canonical encoding.
	return []byte{0x1b}
}

func encodeRune(k Key) []byte {
	r := k.Rune
	if k.Mod.Has(ModCtrl) {
		lower := unicode.ToLower(r)
		if lower >= 'a' && lower <= 'z' {
			return []byte{byte(lower-'a') + 1}
		}
		if b, ok := ctrlPunct[r]; ok {
			return []byte{b}
		}
	}
	if k.Mod.Has(ModShift) {
		r = unicode.ToUpper(r)
	}
	return utf8.AppendRune(nil, r)
}
