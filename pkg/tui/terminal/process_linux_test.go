// ABOUTME: Exercises ProcessTerminal against a real pseudo-terminal pair.
// ABOUTME: Checks raw mode flags, the kitty push/pop bytes and that Restore twice brings back the original termios.

//go:build linux

package terminal

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

func openTTY(t *testing.T) (master, tty *os.File) {
	t.Helper()
	master, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = tty.Close()
		_ = master.Close()
	})
	if err := pty.Setsize(tty, &pty.Winsize{Rows: 24, Cols: 80}); err != nil {
		t.Fatalf("Setsize: %v", err)
	}
	return master, tty
}

func termios(t *testing.T, f *os.File) *unix.Termios {
	t.Helper()
	tio, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	if err != nil {
		t.Fatalf("TCGETS: %v", err)
	}
	return tio
}

func TestProcessTerminal_RestoreTwice(t *testing.T) {
	_, tty := openTTY(t)
	before := termios(t, tty)

	pt := NewProcessTerminal(WithFiles(tty, tty))
	if err := pt.EnterRawMode(); err != nil {
		t.Fatalf("EnterRawMode: %v", err)
	}

	raw := termios(t, tty)
	for name, flag := range map[string]uint32{"ICANON": unix.ICANON, "ECHO": unix.ECHO, "ISIG": unix.ISIG} {
		if raw.Lflag&flag != 0 {
			t.Errorf("%s still set in raw mode", name)
		}
	}
	if raw.Iflag&unix.IXON != 0 {
		t.Error("IXON still set in raw mode")
	}

	if err := pt.Restore(); err != nil {
		t.Fatalf("first Restore: %v", err)
	}
	if err := pt.Restore(); err != nil {
		t.Fatalf("second Restore: %v", err)
	}

	after := termios(t, tty)
	if after.Iflag != before.Iflag || after.Oflag != before.Oflag ||
		after.Cflag != before.Cflag || after.Lflag != before.Lflag || after.Cc != before.Cc {
		t.Errorf("termios after Restore = %+v, want %+v", after, before)
	}
}

func TestProcessTerminal_EnhancedKeyboardPushPop(t *testing.T) {
	master, tty := openTTY(t)

	pt := NewProcessTerminal(WithFiles(tty, tty), WithEnhancedKeyboard(true))
	if err := pt.EnterRawMode(); err != nil {
		t.Fatalf("EnterRawMode: %v", err)
	}
	if err := pt.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got := readAvailable(t, master, len(kittyPush)+len(kittyPop)+len(showCur))
	want := kittyPush + kittyPop + showCur
	if !strings.Contains(got, want) {
		t.Errorf("terminal received %q, want %q", got, want)
	}
}

func TestProcessTerminal_SizeAndWrite(t *testing.T) {
	master, tty := openTTY(t)

	pt := NewProcessTerminal(WithFiles(tty, tty))
	cols, rows, err := pt.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if cols != 80 || rows != 24 {
		t.Errorf("Size() = %dx%d, want 80x24", cols, rows)
	}

	if err := pt.EnterRawMode(); err != nil {
		t.Fatalf("EnterRawMode: %v", err)
	}
	defer func() { _ = pt.Restore() }()

	payload := strings.Repeat("x", 2048)
	n, err := pt.Write([]byte(payload))
	if err != nil || n != len(payload) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := readAvailable(t, master, len(payload)); got != payload {
		t.Errorf("master read %d bytes, want %d", len(got), len(payload))
	}
}

// readAvailable reads from r until want bytes arrived or a deadline passes.
func readAvailable(t *testing.T, r *os.File, want int) string {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, 4096)
	deadline := time.Now().Add(2 * time.Second)
	_ = r.SetReadDeadline(deadline)
	for sb.Len() < want && time.Now().Before(deadline) {
		n, err := r.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return sb.String()
}
