// ABOUTME: Session and process-group control for hook command jobs
// ABOUTME: Jobs never own a terminal; stopping one is SIGTERM to the group, then SIGKILL after a grace period

//go:build unix

package hooks

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// stopGrace is how long a stopped job's group has between SIGTERM and SIGKILL.
const stopGrace = 300 * time.Millisecond

// detachJob makes the job a session leader without a controlling terminal.
// Opening /dev/tty fails inside it, so a job cannot read keys meant for the
// shell or write over the relayed screen. The job's pid is also its pgid.
func detachJob(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// stopJob signals the job's whole process group with SIGTERM and follows up
// with SIGKILL once grace has passed, for pipelines that ignore TERM.
func stopJob(cmd *exec.Cmd, grace time.Duration) error {
	if cmd.Process == nil {
		return nil
	}
	pgid := cmd.Process.Pid
	if err := signalGroup(pgid, unix.SIGTERM); err != nil {
		return err
	}
	time.AfterFunc(grace, func() { _ = signalGroup(pgid, unix.SIGKILL) })
	return nil
}

// signalGroup treats a group that is already gone as success.
func signalGroup(pgid int, sig unix.Signal) error {
	if err := unix.Kill(-pgid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
