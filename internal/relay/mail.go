//go:build unix

// ABOUTME: Messages background goroutines post to the loop, and the handlers that apply them
// ABOUTME: Covers OS signals, hook job results, assistant replies, config reloads and cancellation

package relay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mauromedda/chatshell-go/internal/assistant"
	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/hooks"
	"github.com/mauromedda/chatshell-go/internal/log"
	"github.com/mauromedda/chatshell-go/internal/popup"
)

type (
	signalMsg struct{ sig os.Signal }
	jobMsg    struct{ result hooks.Result }
	reloadMsg struct{}
	stopMsg   struct{}
)

type assistantMsg struct {
	seq         uint64
	instruction string
	resp        assistant.Response
	err         error
}

// notifySignals forwards relay-relevant signals to the mailbox until the
// returned stop function is called.
func (l *Loop) notifySignals(ctx context.Context) (stop func()) {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, unix.SIGWINCH, unix.SIGCHLD, unix.SIGTERM, unix.SIGINT, unix.SIGHUP)
	done := make(chan struct{})
	box := l.box
	go func() {
		for {
			select {
			case sig := <-ch:
				box.post(signalMsg{sig: sig})
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// postResult runs on the job's goroutine.
func (l *Loop) postResult(r hooks.Result) {
	if l.box != nil {
		l.box.post(jobMsg{result: r})
	}
}

func (l *Loop) handleMail() {
	for _, m := range l.box.drain() {
		switch m := m.(type) {
		case signalMsg:
			l.handleSignal(m.sig)
		case jobMsg:
			l.handleJobResult(m.result)
		case assistantMsg:
			l.handleAssistant(m)
		case reloadMsg:
			l.reloadConfig()
		case stopMsg:
			log.Info("[RELAY] context done")
			l.state = StateShuttingDown
		}
	}
}

func (l *Loop) handleSignal(sig os.Signal) {
	switch sig {
	case unix.SIGWINCH:
		l.resizePending = true
	case unix.SIGCHLD:
		// checkChild polls the shell every iteration.
	case unix.SIGTERM, unix.SIGINT, unix.SIGHUP:
		log.Info("[RELAY] received %v", sig)
		l.state = StateShuttingDown
	}
}

func (l *Loop) handleJobResult(r hooks.Result) {
	switch {
	case r.Canceled:
	case r.Failed():
		l.noticeErr("Hook "+r.Hook+" failed", r.DispatchError())
	case strings.TrimSpace(r.Stdout) != "":
		l.notice(r.Hook, r.Stdout)
	}
}

// askAssistant sends instr with the conversation history on a goroutine
// and shows the waiting popup in place of the current one.
func (l *Loop) askAssistant(instr string) {
	l.assistSeq++
	seq := l.assistSeq
	req := l.conv.Request(instr)
	ctx, cancel := context.WithCancel(l.ctx)
	l.assistCancel = cancel
	l.state = StateAwaitingAssistant
	l.replacePopup(popup.NewWaiting(instr))

	log.Debug("[ASSISTANT] request %d (%d turns of history)", seq, len(req.History))
	client, box := l.client, l.box
	go func() {
		defer func() {
			if r := recover(); r != nil {
				box.post(assistantMsg{seq: seq, instruction: instr, err: fmt.Errorf("assistant panic: %v", r)})
			}
		}()
		resp, err := client.Complete(ctx, req)
		box.post(assistantMsg{seq: seq, instruction: instr, resp: resp, err: err})
	}()
}

func (l *Loop) handleAssistant(m assistantMsg) {
	if m.seq != l.assistSeq || l.state != StateAwaitingAssistant {
		log.Debug("[ASSISTANT] dropping stale response %d", m.seq)
		return
	}
	l.cancelAssistant()

	var next popup.Model
	switch {
	case errors.Is(m.err, context.Canceled):
		if _, waiting := l.popup.(popup.Waiting); waiting {
			l.closePopup()
		}
		return
	case m.err != nil:
		next = popup.NewError("Assistant error", m.err)
	case m.resp.Kind == assistant.ResponseCommand:
		l.conv.Record(m.instruction, m.resp)
		next = popup.NewProposal(m.resp.Command, m.resp.Explanation, l.cfg.Assistant.AutoExecute)
	default:
		l.conv.Record(m.instruction, m.resp)
		next = popup.NewMessage("Assistant", m.resp.Text)
	}
	if _, waiting := l.popup.(popup.Waiting); waiting {
		l.replacePopup(next)
		return
	}
	l.openPopup(next)
}

// cancelAssistant abandons the in-flight request; a late reply is dropped.
func (l *Loop) cancelAssistant() {
	if l.assistCancel == nil {
		return
	}
	l.assistCancel()
	l.assistCancel = nil
	l.assistSeq++
	if l.state == StateAwaitingAssistant {
		l.state = StateRunning
		if l.popup != nil {
			l.state = StatePopup
		}
	}
}

// reloadConfig applies a changed config file. The running shell keeps its
// settings; hooks, relay tuning and the assistant are replaced.
func (l *Loop) reloadConfig() {
	cfg, err := config.Load(l.cfgPath)
	if err == nil {
		err = cfg.Validate()
	}
	var hs []hooks.Hook
	if err == nil {
		hs, err = hooks.FromConfig(cfg.Hooks)
	}
	if err == nil {
		err = l.engine.Replace(hs)
	}
	if err != nil {
		log.Warn("[RELAY] config reload: %v", err)
		l.noticeErr("Configuration not reloaded", err)
		return
	}

	cfg.Shell = l.cfg.Shell
	l.cfg = cfg
	if !l.clientFixed {
		l.client, l.clientErr = newAssistant(cfg.Assistant)
	}
	log.Info("[RELAY] reloaded %s: %d hooks", l.cfgPath, len(hs))
}
