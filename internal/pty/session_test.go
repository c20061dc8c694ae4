// ABOUTME: Tests for Session against real /bin/sh children: echo, resize, env, exit status, terminate.
// ABOUTME: Output is collected by polling the non-blocking master until a substring or EOF appears.

//go:build unix

package pty

import (
	"errors"
	"io"
	"os/exec"
	"slices"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func spawnSh(t *testing.T, script string, opts Options) *Session {
	t.Helper()
	requireSh(t)
	opts.Command = "/bin/sh"
	opts.Args = []string{"-c", script}
	s, err := Spawn(opts)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// readUntil polls the master until want shows up in the accumulated output,
// EOF is reached or the timeout expires.
func readUntil(t *testing.T, s *Session, want string, timeout time.Duration) string {
	t.Helper()
	var out strings.Builder
	buf := make([]byte, 4096)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if want != "" && strings.Contains(out.String(), want) {
			return out.String()
		}
		fds := []unix.PollFd{{Fd: int32(s.Fd()), Events: unix.POLLIN}}
		if _, err := unix.Poll(fds, 50); err != nil && !errors.Is(err, unix.EINTR) {
			t.Fatalf("poll: %v", err)
		}
		n, err := s.Read(buf)
		out.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			return out.String()
		}
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			t.Fatalf("Read: %v", err)
		}
	}
	return out.String()
}

func waitExit(t *testing.T, s *Session) *ExitStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := s.WaitStatus()
		if err != nil {
			t.Fatalf("WaitStatus: %v", err)
		}
		if st != nil {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("child did not exit")
	return nil
}

func TestSpawn_CatEchoesVerbatim(t *testing.T) {
	s := spawnSh(t, "cat", Options{Rows: 24, Cols: 80})

	// Raw line discipline: no local echo and no CR/LF translation.
	if _, err := term.MakeRaw(s.Fd()); err != nil {
		t.Fatalf("MakeRaw on master: %v", err)
	}

	if n, err := s.Write([]byte("hello\n")); err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	got := readUntil(t, s, "hello\n", 3*time.Second)
	if got != "hello\n" {
		t.Errorf("output = %q, want %q", got, "hello\n")
	}
}

func TestSession_ResizeVisibleFromSlave(t *testing.T) {
	s := spawnSh(t, "read x; stty size", Options{Rows: 24, Cols: 80})

	rows, cols, err := s.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if rows != 24 || cols != 80 {
		t.Fatalf("initial size = %dx%d, want 24x80", rows, cols)
	}

	if err := s.Resize(40, 120); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if rows, cols, _ := s.Size(); rows != 40 || cols != 120 {
		t.Fatalf("Size after Resize = %dx%d, want 40x120", rows, cols)
	}

	if _, err := s.Write([]byte("\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := readUntil(t, s, "40 120", 3*time.Second); !strings.Contains(got, "40 120") {
		t.Errorf("stty size output = %q, want it to contain %q", got, "40 120")
	}
}

func TestSpawn_MergesEnvironment(t *testing.T) {
	t.Setenv("CHATSHELL_TEST_INHERITED", "yes")
	s := spawnSh(t, `echo "[$CHATSHELL][$FOO][$CHATSHELL_TEST_INHERITED]"`, Options{
		Env: map[string]string{"FOO": "bar"},
	})

	want := "[1][bar][yes]"
	if got := readUntil(t, s, want, 3*time.Second); !strings.Contains(got, want) {
		t.Errorf("output = %q, want it to contain %q", got, want)
	}
}

func TestSpawn_Error(t *testing.T) {
	t.Parallel()

	_, err := Spawn(Options{Command: "/nonexistent/chatshell-no-such-shell"})
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Spawn error = %v, want *SpawnError", err)
	}
	if spawnErr.Command != "/nonexistent/chatshell-no-such-shell" {
		t.Errorf("SpawnError.Command = %q", spawnErr.Command)
	}

	if _, err := Spawn(Options{}); !errors.As(err, &spawnErr) {
		t.Errorf("empty command error = %v, want *SpawnError", err)
	}
}

func TestSession_ExitStatus(t *testing.T) {
	s := spawnSh(t, "exit 3", Options{})

	readUntil(t, s, "", 3*time.Second)
	st := waitExit(t, s)
	if st.Code != 3 || st.Signal != 0 {
		t.Errorf("exit = %+v, want code 3", st)
	}
	if st.Success() {
		t.Error("exit 3 reported as success")
	}

	again, err := s.WaitStatus()
	if err != nil || again != st {
		t.Errorf("WaitStatus after reap = %v, %v; want cached status", again, err)
	}
}

func TestSession_TerminateEscalatesToKill(t *testing.T) {
	s := spawnSh(t, "trap '' HUP TERM; echo ready; while :; do sleep 1; done", Options{})
	readUntil(t, s, "ready", 3*time.Second)

	start := time.Now()
	st, err := s.Terminate(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if st == nil || st.Signal != unix.SIGKILL {
		t.Errorf("status = %+v, want killed by SIGKILL", st)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("Terminate took %v", time.Since(start))
	}
}

func TestSession_TerminateGraceful(t *testing.T) {
	s := spawnSh(t, "echo ready; while :; do sleep 1; done", Options{})
	readUntil(t, s, "ready", 3*time.Second)

	st, err := s.Terminate(2 * time.Second)
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if st == nil || st.Signal == unix.SIGKILL {
		t.Errorf("status = %+v, want exit before SIGKILL", st)
	}
}

func TestSession_CloseTwice(t *testing.T) {
	s := spawnSh(t, "sleep 30", Options{})
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := s.Read(make([]byte, 8)); err == nil {
		t.Error("Read after Close succeeded")
	}
}

func TestMergeEnv(t *testing.T) {
	t.Parallel()

	got := MergeEnv([]string{"A=1", "B=2", "CHATSHELL=0"}, map[string]string{"B": "3", "C": "4"})
	want := []string{"A=1", "B=3", "C=4", "CHATSHELL=1"}
	if !slices.Equal(got, want) {
		t.Errorf("MergeEnv = %v, want %v", got, want)
	}
}
