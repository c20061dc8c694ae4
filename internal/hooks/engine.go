// ABOUTME: Engine: ordered hook registry with an exact-match key index and dispatch to jobs or built-ins
// ABOUTME: Owned by the relay loop; only the running-job set is shared with job goroutines

package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/log"
	"github.com/mauromedda/chatshell-go/pkg/tui/key"
)

// OutcomeKind tells the relay what to do after a dispatch.
type OutcomeKind int

const (
	// OutcomeNone: nothing visible happens.
	OutcomeNone OutcomeKind = iota
	// OutcomeJob: a command job was started; its Result arrives later.
	OutcomeJob
	// OutcomeMessage: show Title and Text to the user.
	OutcomeMessage
	// OutcomeWrite: write Bytes to the terminal.
	OutcomeWrite
	// OutcomePalette: open the hook palette.
	OutcomePalette
	// OutcomeQuit: shut the session down.
	OutcomeQuit
	// OutcomeAssistantPrompt: open the assistant prompt.
	OutcomeAssistantPrompt
	// OutcomeAssistantReset: forget the assistant conversation.
	OutcomeAssistantReset
	// OutcomeFailed: Err holds a *DispatchError.
	OutcomeFailed
)

// Outcome is the immediate result of Dispatch.
type Outcome struct {
	Kind  OutcomeKind
	Hook  string
	Title string
	Text  string
	Bytes []byte
	Job   *Job
	Err   error
}

// Options configures an Engine.
type Options struct {
	// DefaultTimeout bounds command hooks without their own timeout.
	DefaultTimeout time.Duration
	// OnResult receives every finished job, on the job's goroutine.
	OnResult func(Result)
	// Config returns the active configuration for show_config.
	Config func() *config.Config
	// Now is the clock for show_time.
	Now func() time.Time
}

type indexKey struct {
	mod  key.Modifiers
	typ  key.KeyType
	code rune
}

func indexKeyOf(k key.Key) indexKey {
	ik := indexKey{mod: k.Mod, typ: k.Type}
	if k.Type == key.KeyRune {
		ik.code = unicode.ToLower(k.Rune)
	}
	return ik
}

// Engine holds the registered hooks in registration order.
type Engine struct {
	opts  Options
	hooks []Hook
	names map[string]int
	index map[indexKey][]int

	mu   sync.Mutex
	jobs map[*Job]struct{}
}

// NewEngine returns an empty engine.
func NewEngine(opts Options) *Engine {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultHookTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		opts:  opts,
		names: make(map[string]int),
		index: make(map[indexKey][]int),
		jobs:  make(map[*Job]struct{}),
	}
}

// Register appends hooks in order. It stops at the first name already in
// use and returns a *DuplicateHookNameError; hooks before it stay
// registered. Duplicate patterns are allowed: the earlier hook wins.
func (e *Engine) Register(hooks ...Hook) error {
	for _, h := range hooks {
		if _, dup := e.names[h.Name]; dup {
			return &DuplicateHookNameError{Name: h.Name}
		}
		i := len(e.hooks)
		e.hooks = append(e.hooks, h)
		e.names[h.Name] = i
		ik := indexKeyOf(h.Pattern.Key())
		e.index[ik] = append(e.index[ik], i)
	}
	return nil
}

// Replace swaps the registered hooks for hooks. Running jobs are kept. On
// error the previous hooks stay in place.
func (e *Engine) Replace(hooks []Hook) error {
	fresh := NewEngine(e.opts)
	if err := fresh.Register(hooks...); err != nil {
		return err
	}
	e.hooks, e.names, e.index = fresh.hooks, fresh.names, fresh.index
	return nil
}

// Hooks returns a copy of the registered hooks in registration order.
func (e *Engine) Hooks() []Hook {
	out := make([]Hook, len(e.hooks))
	copy(out, e.hooks)
	return out
}

// Lookup returns the hook registered under name.
func (e *Engine) Lookup(name string) (Hook, bool) {
	i, ok := e.names[name]
	if !ok {
		return Hook{}, false
	}
	return e.hooks[i], true
}

// MatchKey returns the first enabled hook whose pattern matches k exactly.
func (e *Engine) MatchKey(k key.Key) (Hook, bool) {
	switch k.Type {
	case key.KeyPaste, key.KeyUnknown:
		return Hook{}, false
	}
	for _, i := range e.index[indexKeyOf(k)] {
		h := e.hooks[i]
		if h.Enabled && h.Pattern.Matches(k) {
			return h, true
		}
	}
	return Hook{}, false
}

// Dispatch runs h. Command hooks start a job and return at once; built-ins
// run synchronously.
func (e *Engine) Dispatch(ctx context.Context, h Hook) Outcome {
	log.Debug("[HOOK] dispatch %s (%s)", h.Name, h.Action)

	switch h.Action.Kind {
	case ActionCommand:
		// Holding mu until the job is recorded keeps jobDone from running first.
		e.mu.Lock()
		j := startJob(ctx, h, e.opts.DefaultTimeout, e.jobDone)
		e.jobs[j] = struct{}{}
		e.mu.Unlock()
		return Outcome{Kind: OutcomeJob, Hook: h.Name, Job: j}
	case ActionBuiltinFunction, ActionBuiltinAction:
		return e.runBuiltin(h)
	case ActionExternalPrompt:
		return Outcome{Kind: OutcomeAssistantPrompt, Hook: h.Name}
	case ActionExternalReset:
		return Outcome{Kind: OutcomeAssistantReset, Hook: h.Name}
	default:
		return Outcome{Kind: OutcomeFailed, Hook: h.Name, Err: &DispatchError{
			Hook: h.Name, Kind: FailureStart, Err: fmt.Errorf("unsupported action %v", h.Action.Kind),
		}}
	}
}

func (e *Engine) jobDone(j *Job) {
	e.mu.Lock()
	delete(e.jobs, j)
	e.mu.Unlock()

	r := j.result
	switch {
	case r.Canceled:
		log.Debug("[HOOK] %s canceled after %v", r.Hook, r.Duration)
	case r.Failed():
		log.Warn("[HOOK] %v", r.DispatchError())
	default:
		log.Debug("[HOOK] %s finished in %v", r.Hook, r.Duration)
	}
	if e.opts.OnResult != nil {
		e.opts.OnResult(r)
	}
}

// Running reports how many command jobs are in flight.
func (e *Engine) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.jobs)
}

// CancelAll cancels every running job and returns how many were canceled.
func (e *Engine) CancelAll() int {
	e.mu.Lock()
	jobs := make([]*Job, 0, len(e.jobs))
	for j := range e.jobs {
		jobs = append(jobs, j)
	}
	e.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
	return len(jobs)
}

// Wait blocks until every running job has finished or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	jobs := make([]*Job, 0, len(e.jobs))
	for j := range e.jobs {
		jobs = append(jobs, j)
	}
	e.mu.Unlock()

	for _, j := range jobs {
		select {
		case <-j.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
