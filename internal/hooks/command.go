// ABOUTME: Asynchronous shell command jobs for command hooks
// ABOUTME: sh -c in its own session, output captured, bounded by a timeout, cancellable

package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

const defaultHookTimeout = 10 * time.Second

// maxCapture bounds how much of each stream a job keeps.
const maxCapture = 64 << 10

// Result is the outcome of a finished command job.
type Result struct {
	Hook     string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Canceled bool
	Duration time.Duration
	// Err is set when the command could not be started.
	Err error
}

// Failed reports whether the job should be shown as a failure. A job
// canceled by the user is not a failure.
func (r Result) Failed() bool {
	if r.Canceled {
		return false
	}
	return r.Err != nil || r.TimedOut || r.ExitCode != 0
}

// DispatchError converts a failed result into a *DispatchError, or nil.
func (r Result) DispatchError() error {
	if !r.Failed() {
		return nil
	}
	de := &DispatchError{Hook: r.Hook, ExitCode: r.ExitCode, Stderr: r.Stderr, Err: r.Err}
	switch {
	case r.Err != nil:
		de.Kind = FailureStart
	case r.TimedOut:
		de.Kind = FailureTimeout
	default:
		de.Kind = FailureExit
	}
	return de
}

// Job is a running command hook.
type Job struct {
	hook    Hook
	cancel  context.CancelFunc
	done    chan struct{}
	result  Result
	started time.Time
}

// Hook returns the hook that started the job.
func (j *Job) Hook() Hook { return j.hook }

// Cancel kills the job's process group. The result is still delivered,
// with Canceled set.
func (j *Job) Cancel() { j.cancel() }

// Done is closed once the result is available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the job's result; valid after Done is closed.
func (j *Job) Result() Result {
	<-j.done
	return j.result
}

// startJob runs h's command in the background. onDone runs on the job's
// goroutine after the result is stored.
func startJob(ctx context.Context, h Hook, timeout time.Duration, onDone func(*Job)) *Job {
	if h.Timeout > 0 {
		timeout = h.Timeout
	}
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	runCtx, stop := context.WithTimeout(cancelCtx, timeout)
	j := &Job{hook: h, cancel: cancel, done: make(chan struct{}), started: time.Now()}

	go func() {
		defer cancel()
		defer stop()
		j.result = runCommand(runCtx, cancelCtx, h)
		j.result.Duration = time.Since(j.started)
		close(j.done)
		if onDone != nil {
			onDone(j)
		}
	}()
	return j
}

// runCommand runs the hook command to completion. runCtx carries the
// timeout; cancelCtx is only canceled by Cancel or the parent.
func runCommand(runCtx, cancelCtx context.Context, h Hook) Result {
	res := Result{Hook: h.Name, Command: h.Action.Command}

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", h.Action.Command)
	cmd.Env = append(os.Environ(), "CHATSHELL_HOOK="+h.Name)
	detachJob(cmd)

	var stdout, stderr capBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		return stopJob(cmd, stopGrace)
	}
	// Grandchildren holding the pipes open must not stall Wait.
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case cancelCtx.Err() != nil:
		res.Canceled = true
		res.ExitCode = -1
	case runCtx.Err() != nil:
		res.TimedOut = true
		res.ExitCode = -1
	case runErr == nil:
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = fmt.Errorf("running %q: %w", h.Action.Command, runErr)
		}
	}
	return res
}

// capBuffer keeps the first maxCapture bytes written to it and discards
// the rest while still reporting success, so the child never sees EPIPE.
type capBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *capBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room := maxCapture - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *capBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
