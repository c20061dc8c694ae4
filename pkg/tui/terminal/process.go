// ABOUTME: ProcessTerminal implements Terminal over a tty file pair using golang.org/x/term.
// ABOUTME: Snapshots attributes on raw-mode entry, optionally pushes the kitty keyboard mode, restores once.

package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

const (
	// kittyPush enables the kitty "disambiguate escape codes" keyboard flag,
	// so chords like ctrl+; arrive as CSI u sequences.
	kittyPush = "\x1b[>1u"
	kittyPop  = "\x1b[<u"
	showCur   = "\x1b[?25h"
)

// Option configures a ProcessTerminal.
type Option func(*ProcessTerminal)

// WithEnhancedKeyboard asks the terminal to report ambiguous chords with the
// kitty keyboard protocol while in raw mode.
func WithEnhancedKeyboard(on bool) Option {
	return func(t *ProcessTerminal) { t.enhanced = on }
}

// WithFiles replaces stdin/stdout with another tty pair.
func WithFiles(in, out *os.File) Option {
	return func(t *ProcessTerminal) {
		t.in = in
		t.out = out
	}
}

// ProcessTerminal is a real terminal backed by x/term.
type ProcessTerminal struct {
	mu       sync.Mutex
	in       *os.File
	out      *os.File
	enhanced bool
	pushed   bool
	snapshot *term.State
}

// NewProcessTerminal returns a ProcessTerminal on os.Stdin/os.Stdout.
func NewProcessTerminal(opts ...Option) *ProcessTerminal {
	t := &ProcessTerminal{in: os.Stdin, out: os.Stdout}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Input returns the file keystrokes are read from.
func (t *ProcessTerminal) Input() *os.File {
	return t.in
}

// IsTerminal reports whether the input side is a tty.
func (t *ProcessTerminal) IsTerminal() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// EnterRawMode switches the input tty to raw mode, saving the previous state.
// Entering twice without Restore keeps the first snapshot.
func (t *ProcessTerminal) EnterRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snapshot != nil {
		return nil
	}
	state, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	t.snapshot = state

	if t.enhanced {
		if err := writeFull(t.out, []byte(kittyPush)); err != nil {
			_ = term.Restore(int(t.in.Fd()), state)
			t.snapshot = nil
			return fmt.Errorf("enabling enhanced keyboard: %w", err)
		}
		t.pushed = true
	}
	return nil
}

// Restore pops the keyboard mode, shows the cursor and reapplies the saved
// attributes. Every step runs even if an earlier one fails.
func (t *ProcessTerminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snapshot == nil {
		return nil
	}

	var errs []error
	seq := showCur
	if t.pushed {
		seq = kittyPop + seq
	}
	if err := writeFull(t.out, []byte(seq)); err != nil {
		errs = append(errs, fmt.Errorf("resetting keyboard mode: %w", err))
	}
	if err := term.Restore(int(t.in.Fd()), t.snapshot); err != nil {
		errs = append(errs, fmt.Errorf("exiting raw mode: %w", err))
	}
	t.snapshot = nil
	t.pushed = false
	return errors.Join(errs...)
}

// Size returns the current terminal dimensions.
func (t *ProcessTerminal) Size() (cols, rows int, err error) {
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil {
		w, h, err = term.GetSize(int(t.in.Fd()))
	}
	if err != nil {
		return 0, 0, fmt.Errorf("getting terminal size: %w", err)
	}
	return w, h, nil
}

// Write sends all of p to the output tty.
func (t *ProcessTerminal) Write(p []byte) (int, error) {
	if err := writeFull(t.out, p); err != nil {
		return 0, fmt.Errorf("writing to terminal: %w", err)
	}
	return len(p), nil
}

// writeFull loops until p is written; a zero-length write with no error is
// reported as io.ErrShortWrite so the caller never spins.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
