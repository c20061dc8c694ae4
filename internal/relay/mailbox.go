//go:build unix

// ABOUTME: Mailbox: messages from background goroutines plus a self-pipe the loop polls
// ABOUTME: post never blocks; a full pipe already means a wake-up is pending

package relay

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

type mailbox struct {
	mu     sync.Mutex
	items  []any
	closed bool
	r, w   int
}

func newMailbox() (*mailbox, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("wake pipe: %w", err)
		}
	}
	return &mailbox{r: p[0], w: p[1]}, nil
}

// fd is the read end to poll for POLLIN.
func (m *mailbox) fd() int { return m.r }

// post queues msg and wakes the loop. Messages after close are dropped.
func (m *mailbox) post(msg any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.items = append(m.items, msg)
	// A failed write still leaves the message for the next poll timeout.
	_, _ = unix.Write(m.w, []byte{1})
}

// drain empties the wake pipe and returns the queued messages in order.
func (m *mailbox) drain() []any {
	var buf [64]byte
	for {
		n, err := unix.Read(m.r, buf[:])
		if n <= 0 || err != nil {
			break
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	unix.Close(m.r)
	unix.Close(m.w)
}
