// ABOUTME: Hook actions: the closed set of things a chord can trigger, parsed from "cmd:", "fn:", "builtin:", "assistant:"
// ABOUTME: Hook couples a name and key pattern with an action; FromConfig builds hooks from config entries

package hooks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/pkg/tui/key"
)

// ActionKind selects how a hook is dispatched.
type ActionKind int

const (
	// ActionCommand runs a shell command asynchronously.
	ActionCommand ActionKind = iota
	// ActionBuiltinFunction runs an in-process function that produces text.
	ActionBuiltinFunction
	// ActionBuiltinAction runs an in-process action with a side effect.
	ActionBuiltinAction
	// ActionExternalPrompt opens the assistant prompt.
	ActionExternalPrompt
	// ActionExternalReset forgets the assistant conversation.
	ActionExternalReset
)

func (k ActionKind) String() string {
	switch k {
	case ActionCommand:
		return "command"
	case ActionBuiltinFunction:
		return "function"
	case ActionBuiltinAction:
		return "builtin"
	case ActionExternalPrompt:
		return "assistant prompt"
	case ActionExternalReset:
		return "assistant reset"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Built-in names.
const (
	FuncShowHelp  = "show_help"
	FuncShowTime  = "show_time"
	FuncListHooks = "list_hooks"

	BuiltinClearScreen = "clear_screen"
	BuiltinShowConfig  = "show_config"
	BuiltinHookPalette = "hook_palette"
	BuiltinQuit        = "quit"
)

var (
	builtinFunctions = map[string]bool{FuncShowHelp: true, FuncShowTime: true, FuncListHooks: true}
	builtinActions   = map[string]bool{BuiltinClearScreen: true, BuiltinShowConfig: true, BuiltinHookPalette: true, BuiltinQuit: true}
)

// ErrInvalidAction is wrapped by every ParseAction error.
var ErrInvalidAction = errors.New("invalid hook action")

// Action is what a hook does. Command is set for ActionCommand, Name for the
// built-in kinds.
type Action struct {
	Kind    ActionKind
	Command string
	Name    string
}

// ParseAction decodes an action string. Prefixes are case-insensitive; a
// string without a known prefix is a shell command.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	prefix, rest, found := strings.Cut(s, ":")
	if !found {
		prefix, rest = "", s
	}

	switch strings.ToLower(prefix) {
	case "fn":
		if !builtinFunctions[rest] {
			return Action{}, fmt.Errorf("%w: unknown function %q", ErrInvalidAction, rest)
		}
		return Action{Kind: ActionBuiltinFunction, Name: rest}, nil
	case "builtin":
		if !builtinActions[rest] {
			return Action{}, fmt.Errorf("%w: unknown builtin %q", ErrInvalidAction, rest)
		}
		return Action{Kind: ActionBuiltinAction, Name: rest}, nil
	case "assistant":
		switch rest {
		case "prompt":
			return Action{Kind: ActionExternalPrompt, Name: rest}, nil
		case "reset":
			return Action{Kind: ActionExternalReset, Name: rest}, nil
		}
		return Action{}, fmt.Errorf("%w: unknown assistant action %q", ErrInvalidAction, rest)
	case "cmd":
		s = rest
	}

	// Commands may contain colons ("date +%H:%M"), so anything else is
	// taken whole.
	if strings.TrimSpace(s) == "" {
		return Action{}, fmt.Errorf("%w: empty command", ErrInvalidAction)
	}
	return Action{Kind: ActionCommand, Command: s}, nil
}

// String renders the action in its configuration form.
func (a Action) String() string {
	switch a.Kind {
	case ActionCommand:
		return "cmd:" + a.Command
	case ActionBuiltinFunction:
		return "fn:" + a.Name
	case ActionBuiltinAction:
		return "builtin:" + a.Name
	case ActionExternalPrompt, ActionExternalReset:
		return "assistant:" + a.Name
	default:
		return a.Kind.String()
	}
}

// Hook binds a key pattern to an action. Hooks are values; the engine keeps
// its own copy.
type Hook struct {
	Name        string
	Pattern     key.Pattern
	Action      Action
	Enabled     bool
	Description string
	// Timeout bounds command hooks; zero means the engine default.
	Timeout time.Duration
}

// FromConfig converts configuration entries into hooks, in order. All
// invalid entries are reported together.
func FromConfig(entries []config.HookConfig) ([]Hook, error) {
	hooks := make([]Hook, 0, len(entries))
	var errs []error
	for i, e := range entries {
		pattern, err := key.ParsePattern(e.KeyCombination)
		if err != nil {
			errs = append(errs, fmt.Errorf("hook %d %q: %w", i, e.Name, err))
			continue
		}
		action, err := ParseAction(e.Action)
		if err != nil {
			errs = append(errs, fmt.Errorf("hook %d %q: %w", i, e.Name, err))
			continue
		}
		hooks = append(hooks, Hook{
			Name:        e.Name,
			Pattern:     pattern,
			Action:      action,
			Enabled:     e.IsEnabled(),
			Description: e.Description,
			Timeout:     e.Timeout.Duration,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return hooks, nil
}
