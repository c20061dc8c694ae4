// ABOUTME: Streaming decoder that splits raw terminal input into discrete key events.
// ABOUTME: Holds incomplete escape sequences until more bytes arrive or Flush resolves them.

package key

import (
	"bytes"
	"unicode/utf8"
)

const (
	pasteStart = "\x1b[200~"
	pasteEnd   = "\x1b[201~"
)

// Event is one decoded unit of terminal input.
type Event struct {
	Key Key
	// Raw holds the exact bytes the terminal sent for this event.
	Raw []byte
	// Enhanced is true for keys reported through the kitty keyboard protocol.
	// The shell does not understand those sequences, so they must be re-encoded.
	Enhanced bool
}

// Forward returns the bytes to send to the child for this event. Enhanced
// keys with no legacy encoding yield nil and are dropped.
func (e Event) Forward() []byte {
	if e.Enhanced {
		if e.Key.Type == KeyUnknown {
			return nil
		}
		return Encode(e.Key)
	}
	return e.Raw
}

// Decoder splits a byte stream into Events. Not safe for concurrent use.
type Decoder struct {
	buf     []byte
	inPaste bool
}

// Pending reports whether the decoder holds bytes of an incomplete sequence.
func (d *Decoder) Pending() bool {
	return len(d.buf) > 0
}

// Feed appends p to the decoder's buffer and returns every complete event.
func (d *Decoder) Feed(p []byte) []Event {
	d.buf = append(d.buf, p...)

	var events []Event
	for len(d.buf) > 0 {
		if d.inPaste {
			ev, n, done := d.scanPaste()
			if n == 0 {
				break
			}
			events = append(events, ev)
			d.consume(n)
			if done {
				d.inPaste = false
			}
			continue
		}

		if bytes.HasPrefix(d.buf, []byte(pasteStart)) {
			d.inPaste = true
			continue
		}

		n, complete := sequenceLen(d.buf)
		if !complete {
			break
		}
		events = append(events, newEvent(d.buf[:n]))
		d.consume(n)
	}
	return events
}

// Flush resolves whatever the decoder is holding. A lone ESC becomes Escape,
// ESC plus one key becomes Alt+key, anything else is reported as-is.
func (d *Decoder) Flush() []Event {
	if len(d.buf) == 0 {
		return nil
	}
	raw := d.buf
	d.buf = nil
	if d.inPaste {
		return []Event{{Key: Key{Type: KeyPaste}, Raw: raw}}
	}
	return []Event{newEvent(raw)}
}

func (d *Decoder) consume(n int) {
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}

// scanPaste returns the next chunk of a bracketed paste. The chunk stops
// after the end marker when it is present; otherwise it keeps back any tail
// that could be the start of the end marker.
func (d *Decoder) scanPaste() (Event, int, bool) {
	search := d.buf
	offset := 0
	if bytes.HasPrefix(search, []byte(pasteStart)) {
		offset = len(pasteStart)
	}
	if i := bytes.Index(search[offset:], []byte(pasteEnd)); i >= 0 {
		n := offset + i + len(pasteEnd)
		return pasteEvent(d.buf[:n]), n, true
	}

	n := len(d.buf)
	for keep := len(pasteEnd) - 1; keep > 0; keep-- {
		if keep <= n-offset && bytes.HasSuffix(d.buf, []byte(pasteEnd[:keep])) {
			n -= keep
			break
		}
	}
	if n == 0 {
		return Event{}, 0, false
	}
	return pasteEvent(d.buf[:n]), n, false
}

func pasteEvent(raw []byte) Event {
	return Event{Key: Key{Type: KeyPaste}, Raw: bytes.Clone(raw)}
}

func newEvent(raw []byte) Event {
	raw = bytes.Clone(raw)
	k := ParseKey(string(raw))
	enhanced := false
	if len(raw) > 2 && raw[0] == 0x1b && raw[1] == '[' && raw[len(raw)-1] == 'u' {
		// Unparsed CSI u strings (query replies, releases) pass through verbatim.
		_, enhanced = ParseKittyKey(string(raw))
	}
	return Event{Key: k, Raw: raw, Enhanced: enhanced}
}

// sequenceLen returns the length of the first complete unit in b, or
// complete=false when b starts with a sequence that needs more bytes.
func sequenceLen(b []byte) (int, bool) {
	c := b[0]
	if c != 0x1b {
		if c < utf8.RuneSelf {
			return 1, true
		}
		if !utf8.FullRune(b) {
			return 0, false
		}
		_, size := utf8.DecodeRune(b)
		return size, true
	}

	if len(b) < 2 {
		return 0, false
	}

	switch b[1] {
	case '[':
		return csiLen(b)
	case 'O':
		if len(b) < 3 {
			return 0, false
		}
		return 3, true
	case ']', 'P', '_', '^', 'X':
		return stringLen(b)
	case 0x1b:
		// Alt+<escape sequence>, e.g. ESC ESC [ A.
		n, ok := sequenceLen(b[1:])
		if !ok {
			return 0, false
		}
		return n + 1, true
	}

	// Alt+<rune>
	n, ok := sequenceLen(b[1:])
	if !ok {
		return 0, false
	}
	return n + 1, true
}

// csiLen scans "ESC [ params intermediates final".
func csiLen(b []byte) (int, bool) {
	i := 2
	if i < len(b) && b[i] == '[' {
		// Linux console function keys: ESC [ [ A
		if len(b) < 4 {
			return 0, false
		}
		return 4, true
	}
	for ; i < len(b); i++ {
		c := b[i]
		switch {
		case c >= 0x30 && c <= 0x3f, c >= 0x20 && c <= 0x2f:
			continue
		case c >= 0x40 && c <= 0x7e:
			if c == 'M' && i == 2 {
				// X10 mouse report: ESC [ M Cb Cx Cy
				if len(b) < 6 {
					return 0, false
				}
				return 6, true
			}
			return i + 1, true
		default:
			// Malformed; report what we have so the stream keeps moving.
			return i, true
		}
	}
	return 0, false
}

// stringLen scans an OSC/DCS/APC/PM/SOS string ended by BEL or ESC \.
func stringLen(b []byte) (int, bool) {
	for i := 2; i < len(b); i++ {
		switch b[i] {
		case 0x07:
			return i + 1, true
		case 0x1b:
			if i+1 >= len(b) {
				return 0, false
			}
			if b[i+1] == '\\' {
				return i + 2, true
			}
			return i, true
		}
	}
	return 0, false
}
