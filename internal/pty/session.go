// ABOUTME: Session owns a child process running on a pseudo-terminal and its non-blocking master fd.
// ABOUTME: Spawn, resize, non-blocking read/write, wait4 supervision and process-group termination.

//go:build unix

package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	creackpty "github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by Read and Write when the master cannot
// transfer any bytes right now.
var ErrWouldBlock = errors.New("pty: operation would block")

// ErrClosed is returned by operations on a closed Session.
var ErrClosed = errors.New("pty: session closed")

// Options describes the child to start.
type Options struct {
	Command string
	Args    []string
	// Env entries override the inherited environment.
	Env  map[string]string
	Dir  string
	Rows uint16
	Cols uint16
}

// SpawnError reports a child that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitStatus describes how the child terminated.
type ExitStatus struct {
	Code   int
	Signal syscall.Signal // non-zero when killed by a signal
}

// Success reports a zero exit code without a signal.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == 0
}

func (s ExitStatus) String() string {
	if s.Signal != 0 {
		return "killed by " + s.Signal.String()
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Session is one child process on a PTY. It is owned by a single goroutine.
type Session struct {
	master *os.File
	fd     int
	cmd    *exec.Cmd
	pid    int

	rows, cols uint16
	exit       *ExitStatus

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts opts.Command on a new PTY sized rows x cols. The child is a
// session leader with the PTY as its controlling terminal.
func Spawn(opts Options) (*Session, error) {
	if opts.Command == "" {
		return nil, &SpawnError{Command: opts.Command, Err: errors.New("empty command")}
	}
	path, err := exec.LookPath(opts.Command)
	if err != nil {
		return nil, &SpawnError{Command: opts.Command, Err: err}
	}

	cmd := exec.Command(path, opts.Args...)
	cmd.Args[0] = opts.Command
	cmd.Dir = opts.Dir
	cmd.Env = MergeEnv(os.Environ(), opts.Env)

	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}

	master, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, &SpawnError{Command: opts.Command, Err: err}
	}

	// Fd switches the file to blocking mode; flip it back once and use
	// the raw descriptor from here on.
	fd := int(master.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		_ = master.Close()
		return nil, &SpawnError{Command: opts.Command, Err: fmt.Errorf("set non-blocking: %w", err)}
	}

	return &Session{
		master: master,
		fd:     fd,
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		rows:   rows,
		cols:   cols,
	}, nil
}

// MergeEnv overlays extra on base (KEY=VALUE entries), then sets CHATSHELL=1.
// Keys from extra are applied in sorted order.
func MergeEnv(base []string, extra map[string]string) []string {
	overrides := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		overrides[k] = v
	}
	overrides["CHATSHELL"] = "1"

	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key := kv
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key = kv[:i]
				break
			}
		}
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// Fd returns the non-blocking master descriptor, for polling.
func (s *Session) Fd() int { return s.fd }

// Pid returns the child's process id (also its process group id).
func (s *Session) Pid() int { return s.pid }

// Resize applies a new window size to the PTY. The kernel delivers
// SIGWINCH to the foreground process group when the size changes.
func (s *Session) Resize(rows, cols uint16) error {
	ws := &unix.Winsize{Row: rows, Col: cols}
	if err := unix.IoctlSetWinsize(s.fd, unix.TIOCSWINSZ, ws); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	s.rows, s.cols = rows, cols
	return nil
}

// Size reads the window size back from the PTY.
func (s *Session) Size() (rows, cols uint16, err error) {
	ws, err := unix.IoctlGetWinsize(s.fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, fmt.Errorf("get pty size: %w", err)
	}
	return ws.Row, ws.Col, nil
}

// Read reads child output without blocking. It returns ErrWouldBlock when
// nothing is available and io.EOF once the slave side has been closed.
func (s *Session) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		switch {
		case err == nil && n == 0:
			return 0, io.EOF
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrWouldBlock
		case errors.Is(err, unix.EIO):
			return 0, io.EOF
		case errors.Is(err, unix.EBADF):
			return 0, ErrClosed
		default:
			return 0, fmt.Errorf("read pty: %w", err)
		}
	}
}

// Write sends input to the child without blocking. It may write fewer
// bytes than len(p); ErrWouldBlock means none were accepted.
func (s *Session) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrWouldBlock
		case errors.Is(err, unix.EIO):
			return 0, io.EOF
		case errors.Is(err, unix.EBADF):
			return 0, ErrClosed
		default:
			return 0, fmt.Errorf("write pty: %w", err)
		}
	}
}

// WaitStatus polls the child without blocking. It returns nil while the
// child is running and the cached status once it has been reaped.
func (s *Session) WaitStatus() (*ExitStatus, error) {
	return s.wait(unix.WNOHANG)
}

func (s *Session) wait(options int) (*ExitStatus, error) {
	if s.exit != nil {
		return s.exit, nil
	}
	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(s.pid, &ws, options, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.ECHILD) {
			// Reaped elsewhere; the code is lost.
			s.exit = &ExitStatus{Code: -1}
			return s.exit, nil
		}
		if err != nil {
			return nil, fmt.Errorf("wait4: %w", err)
		}
		if pid == 0 {
			return nil, nil
		}
		break
	}

	st := &ExitStatus{Code: ws.ExitStatus()}
	if ws.Signaled() {
		st.Signal = ws.Signal()
		st.Code = 128 + int(st.Signal)
	}
	s.exit = st
	_ = s.cmd.Process.Release()
	return st, nil
}

// Signal sends sig to the child's process group.
func (s *Session) Signal(sig syscall.Signal) error {
	if s.exit != nil {
		return nil
	}
	if err := unix.Kill(-s.pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal %v: %w", sig, err)
	}
	return nil
}

// SignalForeground sends sig to the PTY's foreground process group, which
// is the job currently reading the terminal (a full-screen editor, say).
// It falls back to the child's group.
func (s *Session) SignalForeground(sig syscall.Signal) error {
	pgrp, err := unix.IoctlGetInt(s.fd, unix.TIOCGPGRP)
	if err != nil || pgrp <= 0 {
		return s.Signal(sig)
	}
	if err := unix.Kill(-pgrp, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal foreground %v: %w", sig, err)
	}
	return nil
}

// Terminate hangs up and terminates the child's process group, escalating
// to SIGKILL after grace, and reaps it.
func (s *Session) Terminate(grace time.Duration) (*ExitStatus, error) {
	if st, err := s.WaitStatus(); err != nil || st != nil {
		return st, err
	}

	_ = s.Signal(unix.SIGHUP)
	_ = s.Signal(unix.SIGTERM)

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		st, err := s.WaitStatus()
		if err != nil || st != nil {
			return st, err
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = s.Signal(unix.SIGKILL)
	return s.wait(0)
}

// Close terminates the child if it is still running and closes the master.
// Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_, werr := s.Terminate(500 * time.Millisecond)
		cerr := s.master.Close()
		s.closeErr = errors.Join(werr, cerr)
	})
	return s.closeErr
}
