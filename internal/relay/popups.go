//go:build unix

// ABOUTME: Popup lifecycle on the relay: open, replace, redraw, close and queued notices
// ABOUTME: Closing erases the overlay, flushes held shell output and asks the shell to repaint

package relay

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/log"
	"github.com/mauromedda/chatshell-go/internal/popup"
)

// openPopup shows m, or queues it behind the popup already open.
func (l *Loop) openPopup(m popup.Model) {
	if l.popup != nil {
		l.queued = append(l.queued, m)
		return
	}
	w, h := popup.BodySize(l.cols, l.rows)
	l.popup = popup.Resize(m, w, h)
	if l.state == StateRunning {
		l.state = StatePopup
	}
	l.drawPopup()
}

// replacePopup swaps the open popup for m without going through the queue.
func (l *Loop) replacePopup(m popup.Model) {
	if l.popup == nil {
		l.openPopup(m)
		return
	}
	w, h := popup.BodySize(l.cols, l.rows)
	l.popup = popup.Resize(m, w, h)
	l.drawPopup()
}

func (l *Loop) drawPopup() {
	l.writeTerm(l.overlay.Draw(l.popup, l.cols, l.rows))
}

func (l *Loop) closePopup() {
	if l.popup == nil {
		return
	}
	l.popup = nil
	l.writeTerm(l.overlay.Erase())
	if len(l.held) > 0 {
		l.writeTerm(l.held)
		l.held = nil
	}
	if l.state == StatePopup {
		l.state = StateRunning
	}
	l.repaint()

	if len(l.queued) > 0 {
		next := l.queued[0]
		l.queued = l.queued[1:]
		l.openPopup(next)
	}
}

// repaint asks the shell's foreground job to redraw by sending SIGWINCH.
func (l *Loop) repaint() {
	if l.state == StateShuttingDown {
		return
	}
	if err := l.session.SignalForeground(unix.SIGWINCH); err != nil {
		log.Debug("[RELAY] repaint: %v", err)
	}
}

func (l *Loop) notice(title, text string) {
	if l.cfg.Relay.Notices == config.NoticesInline {
		l.inline(title, text)
		return
	}
	l.openPopup(popup.NewMessage(title, text))
}

func (l *Loop) noticeErr(title string, err error) {
	log.Warn("[RELAY] %s: %v", title, err)
	if l.cfg.Relay.Notices == config.NoticesInline {
		l.inline(title, "error: "+err.Error())
		return
	}
	l.openPopup(popup.NewError(title, err))
}

// inline prints a notice into the shell's output stream. Raw mode disables
// output post-processing, so line ends are written as CRLF.
func (l *Loop) inline(title, text string) {
	var b strings.Builder
	b.WriteString("\r\n[" + title + "]\r\n")
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	l.emit([]byte(b.String()))
	if l.popup == nil {
		l.repaint()
	}
}
