// ABOUTME: Polling watcher that reports config file edits for hook hot-reload
// ABOUTME: Compares mtime and size at an interval; stops when its context is cancelled

package config

import (
	"context"
	"os"
	"time"
)

type fileStamp struct {
	mod  time.Time
	size int64
	ok   bool
}

func stampOf(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{mod: info.ModTime(), size: info.Size(), ok: true}
}

// Watch polls path every interval and calls onChange from its own goroutine
// each time the file is modified, created or removed. It returns
// immediately; cancel ctx to stop it.
func Watch(ctx context.Context, path string, interval time.Duration, onChange func()) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	last := stampOf(path)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := stampOf(path)
				if cur == last {
					continue
				}
				last = cur
				onChange()
			}
		}
	}()
}
