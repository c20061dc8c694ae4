// ABOUTME: Overlay draws a popup model centered over the shell's screen and erases it again
// ABOUTME: Output is a byte sequence for the terminal; cursor handling goes through termenv

package popup

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	minBoxWidth = 30
	maxBoxWidth = 100
	// frame is border plus horizontal padding on each side.
	frameWidth  = 4
	frameHeight = 2
)

// Overlay tracks the screen region a popup occupies. The zero value is
// ready to use.
type Overlay struct {
	top, left     int
	width, height int
	shown         bool
}

// BodySize returns the body width and height a popup gets on a cols x
// rows terminal. The relay passes it to Resize.
func BodySize(cols, rows int) (width, height int) {
	boxW := min(max(cols*3/4, minBoxWidth), maxBoxWidth, cols)
	boxH := max(rows-4, frameHeight+3)
	return max(boxW-frameWidth, 1), max(boxH-frameHeight-1, 1)
}

// Visible reports whether a popup is currently drawn.
func (o *Overlay) Visible() bool { return o.shown }

// Draw renders m centered on a cols x rows screen. The previous region is
// erased first when the new box does not cover it.
func (o *Overlay) Draw(m Model, cols, rows int) []byte {
	bodyW, _ := BodySize(cols, rows)

	title := titleStyle.Render(truncate(m.Title(), bodyW))
	box := frameStyle.Width(bodyW + 2).Render(title + "\n" + m.View())

	lines := strings.Split(box, "\n")
	if len(lines) > rows {
		lines = lines[:rows]
	}
	w := 0
	for _, l := range lines {
		w = max(w, lipgloss.Width(l))
	}
	top := max((rows-len(lines))/2, 0)
	left := max((cols-w)/2, 0)

	var buf bytes.Buffer
	out := termenv.NewOutput(&buf, termenv.WithProfile(termenv.Ascii))

	if o.shown && !o.covers(top, left, w, len(lines)) {
		o.eraseTo(out)
	}

	out.SaveCursorPosition()
	out.HideCursor()
	for i, l := range lines {
		out.MoveCursor(top+i+1, left+1)
		buf.WriteString(l)
	}
	out.RestoreCursorPosition()

	o.top, o.left, o.width, o.height = top, left, w, len(lines)
	o.shown = true
	return buf.Bytes()
}

// Erase blanks the popup region and shows the cursor again. The shell
// repaints the rest after its SIGWINCH.
func (o *Overlay) Erase() []byte {
	if !o.shown {
		return nil
	}
	var buf bytes.Buffer
	out := termenv.NewOutput(&buf, termenv.WithProfile(termenv.Ascii))
	out.SaveCursorPosition()
	o.eraseTo(out)
	out.RestoreCursorPosition()
	out.ShowCursor()
	o.shown = false
	return buf.Bytes()
}

func (o *Overlay) eraseTo(out *termenv.Output) {
	blank := strings.Repeat(" ", o.width)
	for i := range o.height {
		out.MoveCursor(o.top+i+1, o.left+1)
		_, _ = out.WriteString(blank)
	}
}

func (o *Overlay) covers(top, left, width, height int) bool {
	return top <= o.top && left <= o.left &&
		top+height >= o.top+o.height && left+width >= o.left+o.width
}
