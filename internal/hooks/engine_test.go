// ABOUTME: Tests for the hook engine: registration, exact matching, built-in dispatch and command jobs
// ABOUTME: Command hooks run real /bin/sh processes to exercise exit codes, timeouts and cancellation

package hooks

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/pkg/tui/key"
)

func newHook(name, pattern, action string) Hook {
	a, err := ParseAction(action)
	if err != nil {
		panic(err)
	}
	return Hook{Name: name, Pattern: key.MustParsePattern(pattern), Action: a, Enabled: true}
}

func newEngine(t *testing.T, opts Options, hooks ...Hook) *Engine {
	t.Helper()
	e := NewEngine(opts)
	if err := e.Register(hooks...); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return e
}

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func TestEngine_RegisterDuplicateName(t *testing.T) {
	t.Parallel()

	e := newEngine(t, Options{}, newHook("a", "ctrl+a", "cmd:true"))
	err := e.Register(newHook("a", "ctrl+b", "cmd:true"))
	if !errors.Is(err, ErrDuplicateHookName) {
		t.Fatalf("Register duplicate = %v, want ErrDuplicateHookName", err)
	}
	var dup *DuplicateHookNameError
	if !errors.As(err, &dup) || dup.Name != "a" {
		t.Errorf("error = %#v, want *DuplicateHookNameError{Name: a}", err)
	}
	if len(e.Hooks()) != 1 {
		t.Errorf("hooks = %d, want 1", len(e.Hooks()))
	}
}

func TestEngine_DuplicatePatternFirstWins(t *testing.T) {
	t.Parallel()

	e := newEngine(t, Options{},
		newHook("first", "ctrl+k", "cmd:true"),
		newHook("second", "Ctrl+K", "cmd:false"),
	)
	h, ok := e.MatchKey(key.Key{Type: key.KeyRune, Rune: 'k', Mod: key.ModCtrl})
	if !ok || h.Name != "first" {
		t.Errorf("MatchKey = %q, %v; want first", h.Name, ok)
	}
}

func TestEngine_MatchKeyExact(t *testing.T) {
	t.Parallel()

	e := newEngine(t, Options{}, newHook("a", "ctrl+a", "cmd:true"))

	tests := []struct {
		name string
		k    key.Key
		want bool
	}{
		{"ctrl+a", key.Key{Type: key.KeyRune, Rune: 'a', Mod: key.ModCtrl}, true},
		{"ctrl+A", key.Key{Type: key.KeyRune, Rune: 'A', Mod: key.ModCtrl}, true},
		{"a", key.Key{Type: key.KeyRune, Rune: 'a'}, false},
		{"ctrl+shift+a", key.Key{Type: key.KeyRune, Rune: 'a', Mod: key.ModCtrl | key.ModShift}, false},
		{"ctrl+alt+a", key.Key{Type: key.KeyRune, Rune: 'a', Mod: key.ModCtrl | key.ModAlt}, false},
		{"ctrl+b", key.Key{Type: key.KeyRune, Rune: 'b', Mod: key.ModCtrl}, false},
		{"paste", key.Key{Type: key.KeyPaste}, false},
		{"unknown", key.Key{Type: key.KeyUnknown}, false},
	}
	for _, tt := range tests {
		if _, got := e.MatchKey(tt.k); got != tt.want {
			t.Errorf("MatchKey(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEngine_DisabledNeverMatches(t *testing.T) {
	t.Parallel()

	off := newHook("off", "ctrl+t", "fn:show_time")
	off.Enabled = false
	on := newHook("on", "ctrl+t", "fn:show_help")
	e := newEngine(t, Options{}, off)

	if _, ok := e.MatchKey(key.Key{Type: key.KeyRune, Rune: 't', Mod: key.ModCtrl}); ok {
		t.Error("disabled hook matched")
	}

	if err := e.Register(on); err != nil {
		t.Fatal(err)
	}
	h, ok := e.MatchKey(key.Key{Type: key.KeyRune, Rune: 't', Mod: key.ModCtrl})
	if !ok || h.Name != "on" {
		t.Errorf("MatchKey = %q, %v; want the enabled hook", h.Name, ok)
	}
}

func TestEngine_NamedKeyPatterns(t *testing.T) {
	t.Parallel()

	e := newEngine(t, Options{},
		newHook("f5", "f5", "fn:show_time"),
		newHook("altenter", "alt+enter", "fn:show_time"),
	)
	if h, ok := e.MatchKey(key.Key{Type: key.KeyF5}); !ok || h.Name != "f5" {
		t.Errorf("F5 matched %q, %v", h.Name, ok)
	}
	if h, ok := e.MatchKey(key.Key{Type: key.KeyEnter, Mod: key.ModAlt}); !ok || h.Name != "altenter" {
		t.Errorf("Alt+Enter matched %q, %v", h.Name, ok)
	}
	if _, ok := e.MatchKey(key.Key{Type: key.KeyEnter}); ok {
		t.Error("plain Enter matched")
	}
}

func TestEngine_DispatchBuiltins(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	cfg := config.Default()
	e := newEngine(t, Options{Now: func() time.Time { return fixed }, Config: func() *config.Config { return cfg }},
		newHook("help", "ctrl+;", "fn:show_help"),
		newHook("time", "ctrl+t", "fn:show_time"),
		newHook("list", "ctrl+o", "fn:list_hooks"),
		newHook("clear", "ctrl+l", "builtin:clear_screen"),
		newHook("config", "ctrl+shift+c", "builtin:show_config"),
		newHook("palette", "ctrl+alt+p", "builtin:hook_palette"),
		newHook("quit", "ctrl+alt+q", "builtin:quit"),
		newHook("ask", "ctrl+g", "assistant:prompt"),
		newHook("forget", "ctrl+alt+g", "assistant:reset"),
	)
	ctx := context.Background()
	dispatch := func(name string) Outcome {
		h, ok := e.Lookup(name)
		if !ok {
			t.Fatalf("no hook %q", name)
		}
		return e.Dispatch(ctx, h)
	}

	help := dispatch("help")
	if help.Kind != OutcomeMessage || !strings.Contains(help.Text, "ctrl+;") || !strings.Contains(help.Text, "transparent") {
		t.Errorf("help = %+v", help)
	}

	if got := dispatch("time"); got.Kind != OutcomeMessage || got.Text != "2026-03-04 05:06:07 UTC" {
		t.Errorf("time = %+v", got)
	}

	list := dispatch("list")
	if list.Kind != OutcomeMessage || !strings.Contains(list.Text, "forget") {
		t.Errorf("list_hooks = %+v", list)
	}

	if got := dispatch("clear"); got.Kind != OutcomeWrite || string(got.Bytes) != "\x1b[2J\x1b[H" {
		t.Errorf("clear = %+v", got)
	}

	conf := dispatch("config")
	if conf.Kind != OutcomeMessage || !strings.Contains(conf.Text, "=== Hooks ===") || !strings.Contains(conf.Text, "config_info") {
		t.Errorf("show_config = %+v", conf)
	}

	for name, want := range map[string]OutcomeKind{
		"palette": OutcomePalette,
		"quit":    OutcomeQuit,
		"ask":     OutcomeAssistantPrompt,
		"forget":  OutcomeAssistantReset,
	} {
		if got := dispatch(name); got.Kind != want || got.Hook != name {
			t.Errorf("%s = %+v, want kind %v", name, got, want)
		}
	}
}

func TestEngine_ShowConfigWithoutConfig(t *testing.T) {
	t.Parallel()

	e := newEngine(t, Options{}, Hook{
		Name: "config_info", Pattern: key.MustParsePattern("ctrl+shift+c"),
		Action: Action{Kind: ActionBuiltinAction, Name: BuiltinShowConfig}, Enabled: true,
		Description: "Show hook configuration",
	})
	h, _ := e.Lookup("config_info")
	got := e.Dispatch(context.Background(), h)
	for _, want := range []string{"Name: config_info", "Key: ctrl+shift+c", "Action: builtin:show_config", "Enabled: true", "Description: Show hook configuration"} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("show_config text missing %q:\n%s", want, got.Text)
		}
	}
}

func TestEngine_CommandJob(t *testing.T) {
	t.Parallel()
	requireSh(t)

	results := make(chan Result, 1)
	e := newEngine(t, Options{OnResult: func(r Result) { results <- r }},
		newHook("greet", "ctrl+y", `echo "hi $CHATSHELL_HOOK"; echo oops >&2`))

	h, _ := e.Lookup("greet")
	out := e.Dispatch(context.Background(), h)
	if out.Kind != OutcomeJob || out.Job == nil {
		t.Fatalf("Dispatch = %+v, want a job", out)
	}

	select {
	case r := <-results:
		if r.Failed() || r.ExitCode != 0 {
			t.Errorf("result = %+v, want success", r)
		}
		if r.Stdout != "hi greet\n" || r.Stderr != "oops\n" {
			t.Errorf("stdout = %q, stderr = %q", r.Stdout, r.Stderr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
	if n := e.Running(); n != 0 {
		t.Errorf("Running() = %d after completion", n)
	}
}

func TestEngine_CommandJobFailure(t *testing.T) {
	t.Parallel()
	requireSh(t)

	e := newEngine(t, Options{}, newHook("bad", "ctrl+y", "echo broken >&2; exit 3"))
	h, _ := e.Lookup("bad")
	r := e.Dispatch(context.Background(), h).Job.Result()

	if !r.Failed() || r.ExitCode != 3 {
		t.Fatalf("result = %+v, want exit 3", r)
	}
	var de *DispatchError
	if !errors.As(r.DispatchError(), &de) {
		t.Fatalf("DispatchError() = %v", r.DispatchError())
	}
	if de.Kind != FailureExit || de.ExitCode != 3 || !strings.Contains(de.Error(), "broken") {
		t.Errorf("dispatch error = %+v (%v)", de, de)
	}
}

func TestEngine_CommandJobTimeout(t *testing.T) {
	t.Parallel()
	requireSh(t)

	h := newHook("slow", "ctrl+y", "sleep 30")
	h.Timeout = 100 * time.Millisecond
	e := newEngine(t, Options{}, h)

	start := time.Now()
	r := e.Dispatch(context.Background(), h).Job.Result()
	if !r.TimedOut || r.Canceled {
		t.Errorf("result = %+v, want timed out", r)
	}
	var de *DispatchError
	if !errors.As(r.DispatchError(), &de) || de.Kind != FailureTimeout {
		t.Errorf("DispatchError() = %v, want timeout", r.DispatchError())
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout took %v", time.Since(start))
	}
}

func TestEngine_CancelAll(t *testing.T) {
	t.Parallel()
	requireSh(t)

	e := newEngine(t, Options{}, newHook("slow", "ctrl+y", "sleep 30 | cat"))
	h, _ := e.Lookup("slow")
	j := e.Dispatch(context.Background(), h).Job

	if n := e.Running(); n != 1 {
		t.Fatalf("Running() = %d, want 1", n)
	}
	if n := e.CancelAll(); n != 1 {
		t.Fatalf("CancelAll() = %d, want 1", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	r := j.Result()
	if !r.Canceled || r.Failed() {
		t.Errorf("result = %+v, want canceled and not failed", r)
	}
	if r.DispatchError() != nil {
		t.Errorf("canceled job reported %v", r.DispatchError())
	}
}

func TestEngine_Replace(t *testing.T) {
	t.Parallel()

	e := newEngine(t, Options{}, newHook("old", "ctrl+o", "fn:show_time"))
	if err := e.Replace([]Hook{newHook("a", "ctrl+a", "cmd:true"), newHook("a", "ctrl+b", "cmd:true")}); !errors.Is(err, ErrDuplicateHookName) {
		t.Fatalf("Replace with duplicates = %v", err)
	}
	if _, ok := e.Lookup("old"); !ok {
		t.Fatal("failed Replace dropped the previous hooks")
	}

	if err := e.Replace([]Hook{newHook("new", "ctrl+n", "fn:show_time")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if _, ok := e.MatchKey(key.Key{Type: key.KeyRune, Rune: 'o', Mod: key.ModCtrl}); ok {
		t.Error("old hook still matches")
	}
	if h, ok := e.MatchKey(key.Key{Type: key.KeyRune, Rune: 'n', Mod: key.ModCtrl}); !ok || h.Name != "new" {
		t.Errorf("MatchKey(ctrl+n) = %q, %v", h.Name, ok)
	}
}

func TestEngine_CommandJobIgnoringTermIsKilled(t *testing.T) {
	t.Parallel()
	requireSh(t)

	h := newHook("stubborn", "ctrl+y", `trap '' TERM; sleep 30 & wait; sleep 30`)
	h.Timeout = 100 * time.Millisecond
	e := newEngine(t, Options{}, h)

	start := time.Now()
	r := e.Dispatch(context.Background(), h).Job.Result()
	if !r.TimedOut {
		t.Errorf("result = %+v, want timed out", r)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("TERM-ignoring job took %v to stop", d)
	}
}

func TestEngine_CommandJobHasNoTerminal(t *testing.T) {
	t.Parallel()
	requireSh(t)

	h := newHook("tty", "ctrl+y", `if (exec </dev/tty) 2>/dev/null; then echo attached; else echo detached; fi`)
	e := newEngine(t, Options{}, h)

	r := e.Dispatch(context.Background(), h).Job.Result()
	if got := strings.TrimSpace(r.Stdout); got != "detached" {
		t.Errorf("job stdout = %q, want detached", got)
	}
}
