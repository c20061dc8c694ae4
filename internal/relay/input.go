//go:build unix

// ABOUTME: Key routing: popup keys, hook matches and forwarding to the shell
// ABOUTME: Unmatched keys keep their original bytes; kitty-protocol keys are re-encoded

package relay

import (
	"bytes"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mauromedda/chatshell-go/internal/hooks"
	"github.com/mauromedda/chatshell-go/internal/log"
	"github.com/mauromedda/chatshell-go/internal/popup"
	"github.com/mauromedda/chatshell-go/pkg/tui/key"
)

var (
	pasteStart = []byte("\x1b[200~")
	pasteEnd   = []byte("\x1b[201~")
)

func (l *Loop) handleEvent(ev key.Event) {
	if l.popup != nil {
		l.popupEvent(ev)
		return
	}
	if ev.Key.Type == key.KeyEscape && ev.Key.Mod == 0 && l.engine.Running() > 0 {
		n := l.engine.CancelAll()
		log.Info("[RELAY] escape canceled %d hook job(s)", n)
		l.notice("Hooks", fmt.Sprintf("Canceled %d running hook job(s).", n))
		return
	}
	if h, ok := l.engine.MatchKey(ev.Key); ok {
		l.dispatch(h)
		return
	}
	l.queueInput(ev.Forward())
}

func (l *Loop) dispatch(h hooks.Hook) {
	out := l.engine.Dispatch(l.ctx, h)
	switch out.Kind {
	case hooks.OutcomeNone, hooks.OutcomeJob:
	case hooks.OutcomeMessage:
		l.notice(out.Title, out.Text)
	case hooks.OutcomeWrite:
		l.emit(out.Bytes)
		l.repaint()
	case hooks.OutcomePalette:
		l.openPalette()
	case hooks.OutcomeQuit:
		log.Info("[RELAY] quit requested by hook %s", h.Name)
		l.state = StateShuttingDown
	case hooks.OutcomeAssistantPrompt:
		l.openAssistantPrompt()
	case hooks.OutcomeAssistantReset:
		l.conv.Reset()
		l.notice("Assistant", "Conversation reset.")
	case hooks.OutcomeFailed:
		l.noticeErr("Hook "+h.Name+" failed", out.Err)
	}
}

func (l *Loop) popupEvent(ev key.Event) {
	var msg tea.Msg
	switch ev.Key.Type {
	case key.KeyUnknown:
		return
	case key.KeyPaste:
		raw := bytes.ReplaceAll(ev.Raw, pasteStart, nil)
		msg = popup.PasteMsg(string(bytes.ReplaceAll(raw, pasteEnd, nil)))
	default:
		msg = popup.KeyMsg(ev.Key)
	}

	_, waiting := l.popup.(popup.Waiting)
	m, out := popup.Drive(l.popup, msg)
	l.popup = m

	switch out := out.(type) {
	case popup.SubmitMsg:
		l.askAssistant(out.Text)
	case popup.AcceptMsg:
		l.closePopup()
		cmd := out.Command
		if l.cfg.Assistant.AutoExecute {
			cmd += "\r"
		}
		l.queueInput([]byte(cmd))
	case popup.SelectMsg:
		l.closePopup()
		if h, ok := l.engine.Lookup(out.Hook); ok {
			l.dispatch(h)
		}
	case popup.CancelMsg:
		if waiting {
			l.cancelAssistant()
		}
		l.closePopup()
	case popup.CloseMsg:
		l.closePopup()
	default:
		l.drawPopup()
	}
}

func (l *Loop) openPalette() {
	var items []popup.PaletteItem
	for _, h := range l.engine.Hooks() {
		if !h.Enabled || (h.Action.Kind == hooks.ActionBuiltinAction && h.Action.Name == hooks.BuiltinHookPalette) {
			continue
		}
		items = append(items, popup.PaletteItem{Name: h.Name, Keys: h.Pattern.String(), Description: h.Description})
	}
	l.openPopup(popup.NewPalette(items))
}

func (l *Loop) openAssistantPrompt() {
	if l.client == nil {
		l.noticeErr("Assistant", l.clientErr)
		return
	}
	l.openPopup(popup.NewPrompt("Ask the assistant", "describe what you want to do"))
}
