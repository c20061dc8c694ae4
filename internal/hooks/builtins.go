// ABOUTME: In-process built-in hook routines: help, time, hook listing, clear screen, config, palette, quit
// ABOUTME: Each returns an Outcome synchronously; a panicking built-in becomes a DispatchError

package hooks

import (
	"fmt"
	"runtime/debug"
	"strings"
	"text/tabwriter"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/log"
)

// clearScreen erases the display and homes the cursor.
const clearScreen = "\x1b[2J\x1b[H"

func (e *Engine) runBuiltin(h Hook) (out Outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if repanicBuiltins {
			panic(r)
		}
		log.Error("[HOOK] builtin %s panicked: %v\n%s", h.Action.Name, r, debug.Stack())
		out = Outcome{Kind: OutcomeFailed, Hook: h.Name, Err: &DispatchError{
			Hook: h.Name, Kind: FailurePanic, Err: fmt.Errorf("%s: %v", h.Action.Name, r),
		}}
	}()

	switch h.Action.Name {
	case FuncShowHelp:
		return Outcome{Kind: OutcomeMessage, Hook: h.Name, Title: "chatshell help", Text: e.helpText()}
	case FuncShowTime:
		now := e.opts.Now()
		return Outcome{Kind: OutcomeMessage, Hook: h.Name, Title: "Current time",
			Text: now.Format("2006-01-02 15:04:05 MST")}
	case FuncListHooks:
		return Outcome{Kind: OutcomeMessage, Hook: h.Name, Title: "Hooks", Text: e.hookTable(true)}
	case BuiltinClearScreen:
		return Outcome{Kind: OutcomeWrite, Hook: h.Name, Bytes: []byte(clearScreen)}
	case BuiltinShowConfig:
		return Outcome{Kind: OutcomeMessage, Hook: h.Name, Title: "Configuration", Text: e.configText()}
	case BuiltinHookPalette:
		return Outcome{Kind: OutcomePalette, Hook: h.Name}
	case BuiltinQuit:
		return Outcome{Kind: OutcomeQuit, Hook: h.Name}
	}
	panic(fmt.Sprintf("unknown builtin %q", h.Action.Name))
}

func (e *Engine) helpText() string {
	var b strings.Builder
	b.WriteString("chatshell is a transparent shell wrapper.\n")
	b.WriteString("Every keystroke goes to the shell except these chords:\n\n")
	b.WriteString(e.hookTable(false))
	b.WriteString("\nEsc cancels a running hook command.")
	return b.String()
}

// hookTable renders the hooks as aligned columns. With all set, disabled
// hooks are listed too.
func (e *Engine) hookTable(all bool) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	n := 0
	for _, h := range e.hooks {
		if !h.Enabled && !all {
			continue
		}
		n++
		desc := h.Description
		if desc == "" {
			desc = h.Action.String()
		}
		if all {
			state := "on"
			if !h.Enabled {
				state = "off"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.Pattern, h.Name, state, desc)
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", h.Pattern, desc)
		}
	}
	_ = tw.Flush()
	if n == 0 {
		return "(no hooks)\n"
	}
	return b.String()
}

func (e *Engine) configText() string {
	var cfg *config.Config
	if e.opts.Config != nil {
		cfg = e.opts.Config()
	}
	if cfg != nil {
		return config.Explain(cfg)
	}

	var b strings.Builder
	for _, h := range e.hooks {
		fmt.Fprintf(&b, "Name: %s\nKey: %s\nAction: %s\nEnabled: %t\n", h.Name, h.Pattern, h.Action, h.Enabled)
		if h.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", h.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
