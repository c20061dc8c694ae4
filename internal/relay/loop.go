//go:build unix

// ABOUTME: Loop: the single-goroutine relay between the user's terminal and a shell on a PTY
// ABOUTME: Each iteration is one unix.Poll over stdin, the PTY master and the mailbox wake pipe

package relay

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mauromedda/chatshell-go/internal/assistant"
	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/hooks"
	"github.com/mauromedda/chatshell-go/internal/log"
	"github.com/mauromedda/chatshell-go/internal/popup"
	"github.com/mauromedda/chatshell-go/internal/pty"
	"github.com/mauromedda/chatshell-go/pkg/tui/key"
	"github.com/mauromedda/chatshell-go/pkg/tui/terminal"
)

const (
	readChunk = 32 * 1024
	// Output reads per iteration, so input and signals are not starved.
	maxReadsPerIteration = 8
	// Upper bound on reads while draining at shutdown.
	maxDrainReads = 256
	watchInterval = time.Second
)

// Session is the part of *pty.Session the loop drives.
type Session interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Resize(rows, cols uint16) error
	WaitStatus() (*pty.ExitStatus, error)
	SignalForeground(sig syscall.Signal) error
	Terminate(grace time.Duration) (*pty.ExitStatus, error)
	Close() error
}

var _ Session = (*pty.Session)(nil)

// Spawner starts the shell on a PTY of rows x cols.
type Spawner func(rows, cols uint16) (Session, error)

// ShellSpawner returns a Spawner that runs sh with pty.Spawn.
func ShellSpawner(sh config.ShellConfig) Spawner {
	return func(rows, cols uint16) (Session, error) {
		s, err := pty.Spawn(pty.Options{
			Command: sh.Command,
			Args:    sh.Args,
			Env:     sh.Env,
			Rows:    rows,
			Cols:    cols,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Option configures a Loop.
type Option func(*Loop)

// WithInput sets the descriptor keys are read from. Defaults to stdin.
func WithInput(fd int) Option {
	return func(l *Loop) { l.inFd = fd }
}

// WithSpawner replaces the shell spawner.
func WithSpawner(s Spawner) Option {
	return func(l *Loop) { l.spawn = s }
}

// WithAssistant sets the assistant client. A nil client means the
// assistant is not configured.
func WithAssistant(c assistant.Client) Option {
	return func(l *Loop) {
		l.client = c
		l.clientErr = assistant.ErrNotConfigured
		l.clientFixed = true
	}
}

// WithConfigPath names the file to reload from when relay.watch_config is on.
func WithConfigPath(path string) Option {
	return func(l *Loop) { l.cfgPath = path }
}

// WithSignals controls whether Run installs OS signal handlers.
func WithSignals(on bool) Option {
	return func(l *Loop) { l.signals = on }
}

// Loop relays bytes between a terminal and a shell and intercepts hook
// keys. Everything it holds is owned by the goroutine calling Run.
type Loop struct {
	cfg     *config.Config
	cfgPath string
	term    terminal.Terminal
	inFd    int
	spawn   Spawner
	signals bool

	client      assistant.Client
	clientErr   error
	clientFixed bool

	ctx     context.Context
	state   State
	session Session
	engine  *hooks.Engine
	box     *mailbox
	decoder key.Decoder
	conv    *assistant.Conversation

	cols, rows    int
	resizePending bool
	pendingSince  time.Time
	inputClosed   bool
	outputClosed  bool

	inputQ []byte
	outBuf []byte
	held   []byte

	popup   popup.Model
	queued  []popup.Model
	overlay popup.Overlay

	assistSeq    uint64
	assistCancel context.CancelFunc

	exit        *pty.ExitStatus
	err         error
	restoreOnce sync.Once
}

// New validates cfg and builds a Loop that will relay term. Configuration
// errors wrap ErrStartup.
func New(cfg *config.Config, term terminal.Terminal, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, startupError("config", err)
	}
	hs, err := hooks.FromConfig(cfg.Hooks)
	if err != nil {
		return nil, startupError("hooks", err)
	}

	l := &Loop{
		cfg:     cfg,
		term:    term,
		inFd:    int(os.Stdin.Fd()),
		signals: true,
		ctx:     context.Background(),
		conv:    assistant.NewConversation(),
		outBuf:  make([]byte, readChunk),
	}
	for _, o := range opts {
		o(l)
	}
	if l.spawn == nil {
		l.spawn = ShellSpawner(cfg.Shell)
	}
	if !l.clientFixed {
		l.client, l.clientErr = newAssistant(cfg.Assistant)
	}

	l.engine = hooks.NewEngine(hooks.Options{
		OnResult: l.postResult,
		Config:   func() *config.Config { return l.cfg },
	})
	if err := l.engine.Register(hs...); err != nil {
		return nil, startupError("hooks", err)
	}
	return l, nil
}

func newAssistant(cfg config.AssistantConfig) (assistant.Client, error) {
	c, err := assistant.NewOpenAI(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State { return l.state }

// ExitStatus returns the shell's exit status once it has been reaped.
func (l *Loop) ExitStatus() *pty.ExitStatus { return l.exit }

// Run enters raw mode, spawns the shell and relays until the shell exits,
// a quit hook fires, a terminating signal arrives or ctx is done. The
// terminal is restored before Run returns on every path. Run may be called
// once.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.term.EnterRawMode(); err != nil {
		return startupError("raw mode", err)
	}
	defer l.restore()

	l.cols, l.rows = l.termSize()
	sess, err := l.spawn(uint16(l.rows), uint16(l.cols))
	if err != nil {
		return startupError("spawn shell", err)
	}
	l.session = sess

	box, err := newMailbox()
	if err != nil {
		_ = sess.Close()
		return startupError("mailbox", err)
	}
	l.box = box
	defer box.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.ctx = ctx
	stop := context.AfterFunc(ctx, func() { box.post(stopMsg{}) })
	defer stop()

	if l.signals {
		defer l.notifySignals(ctx)()
	}
	if l.cfgPath != "" && l.cfg.Relay.WatchConfig {
		config.Watch(ctx, l.cfgPath, watchInterval, func() { box.post(reloadMsg{}) })
	}

	log.Info("[RELAY] started %s (%dx%d)", l.cfg.Shell.Command, l.cols, l.rows)
	l.state = StateRunning
	l.loop()
	l.shutdown()
	return l.err
}

func (l *Loop) loop() {
	inBuf := make([]byte, 4096)
	for l.state != StateShuttingDown {
		fds := l.pollFds()
		n, err := unix.Poll(fds, l.pollTimeout())
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			l.fail("poll", err)
			return
		}

		if n > 0 && fds[2].Revents&unix.POLLIN != 0 {
			l.handleMail()
		}
		// Resize before the next output read so the shell's redraw lands
		// on a correctly sized PTY.
		if l.resizePending {
			l.applyResize()
		}
		if fds[0].Revents != 0 {
			l.readInput(inBuf)
		}
		if l.decoder.Pending() && time.Since(l.pendingSince) >= l.cfg.Relay.EscapeTimeout.Duration {
			for _, ev := range l.decoder.Flush() {
				l.handleEvent(ev)
			}
		}
		if len(l.inputQ) > 0 {
			l.flushInput()
		}
		if fds[1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			l.readOutput()
		}
		l.checkChild()
	}
}

func (l *Loop) pollFds() []unix.PollFd {
	in := int32(l.inFd)
	if l.inputClosed {
		in = -1
	}
	master := int32(l.session.Fd())
	var events int16
	if !l.outputPaused() {
		events |= unix.POLLIN
	}
	if len(l.inputQ) > 0 {
		events |= unix.POLLOUT
	}
	if l.outputClosed {
		master = -1
	}
	return []unix.PollFd{
		{Fd: in, Events: unix.POLLIN},
		{Fd: master, Events: events},
		{Fd: int32(l.box.fd()), Events: unix.POLLIN},
	}
}

func (l *Loop) pollTimeout() int {
	d := l.cfg.Relay.PollInterval.Duration
	if l.decoder.Pending() {
		d = l.cfg.Relay.EscapeTimeout.Duration - time.Since(l.pendingSince)
	}
	ms := int((d + time.Millisecond - 1) / time.Millisecond)
	return max(ms, 1)
}

func (l *Loop) termSize() (cols, rows int) {
	cols, rows, err := l.term.Size()
	if err != nil || cols <= 0 || rows <= 0 {
		return 80, 24
	}
	return cols, rows
}

// fail records the first I/O error and starts shutdown.
func (l *Loop) fail(op string, err error) {
	if l.err == nil {
		l.err = &IOError{Op: op, Err: err}
		log.Error("[RELAY] %v", l.err)
	}
	l.state = StateShuttingDown
}

func (l *Loop) readInput(buf []byte) {
	n, err := unix.Read(l.inFd, buf)
	switch {
	case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
		return
	case errors.Is(err, unix.EIO):
		log.Info("[RELAY] terminal hung up")
		l.state = StateShuttingDown
		return
	case err != nil:
		l.fail("read stdin", err)
		return
	case n == 0:
		log.Debug("[RELAY] stdin closed")
		l.inputClosed = true
		return
	}

	wasPending := l.decoder.Pending()
	events := l.decoder.Feed(buf[:n])
	if l.decoder.Pending() && (!wasPending || len(events) > 0) {
		l.pendingSince = time.Now()
	}
	for _, ev := range events {
		if l.state == StateShuttingDown {
			return
		}
		l.handleEvent(ev)
	}
}

func (l *Loop) queueInput(p []byte) {
	if len(p) == 0 {
		return
	}
	l.inputQ = append(l.inputQ, p...)
	l.flushInput()
}

// flushInput writes queued keys to the master as far as it accepts them.
func (l *Loop) flushInput() {
	for len(l.inputQ) > 0 {
		n, err := l.session.Write(l.inputQ)
		l.inputQ = l.inputQ[n:]
		switch {
		case err == nil:
		case errors.Is(err, pty.ErrWouldBlock):
			return
		case errors.Is(err, io.EOF), errors.Is(err, pty.ErrClosed):
			// The shell is gone; checkChild ends the session.
			l.inputQ = nil
			return
		default:
			l.fail("write pty", err)
			return
		}
	}
	l.inputQ = nil
}

func (l *Loop) readOutput() {
	for range maxReadsPerIteration {
		if !l.readOutputOnce() {
			return
		}
	}
}

// readOutputOnce relays one chunk and reports whether more may be waiting.
func (l *Loop) readOutputOnce() bool {
	room := len(l.outBuf)
	if l.holding() {
		room = min(room, l.cfg.Relay.MaxBufferedOutput-len(l.held))
		if room <= 0 {
			return false
		}
	}
	n, err := l.session.Read(l.outBuf[:room])
	if n > 0 {
		l.emit(l.outBuf[:n])
	}
	switch {
	case err == nil:
		return true
	case errors.Is(err, pty.ErrWouldBlock):
	case errors.Is(err, io.EOF), errors.Is(err, pty.ErrClosed):
		log.Debug("[RELAY] pty output closed")
		l.outputClosed = true
	default:
		l.fail("read pty", err)
	}
	return false
}

// holding reports whether shell output is being buffered behind a popup.
func (l *Loop) holding() bool {
	return l.popup != nil && l.cfg.Relay.PopupOutput != config.PopupOutputPassthrough
}

func (l *Loop) outputPaused() bool {
	return l.holding() && len(l.held) >= l.cfg.Relay.MaxBufferedOutput
}

// emit sends shell output to the terminal, or into the hold buffer while a
// popup covers the screen.
func (l *Loop) emit(p []byte) {
	if l.holding() {
		l.held = append(l.held, p...)
		return
	}
	l.writeTerm(p)
	if l.popup != nil {
		l.drawPopup()
	}
}

func (l *Loop) writeTerm(p []byte) {
	if len(p) == 0 || l.err != nil {
		return
	}
	if _, err := l.term.Write(p); err != nil {
		l.fail("write stdout", err)
	}
}

func (l *Loop) checkChild() {
	st, err := l.session.WaitStatus()
	if err != nil {
		log.Warn("[RELAY] %v", err)
		l.state = StateShuttingDown
		return
	}
	if st == nil {
		if l.outputClosed {
			l.state = StateShuttingDown
		}
		return
	}
	l.exit = st
	log.Info("[RELAY] shell exited: %v", st)
	l.state = StateShuttingDown
}

func (l *Loop) applyResize() {
	l.resizePending = false
	cols, rows := l.termSize()
	if cols == l.cols && rows == l.rows {
		return
	}
	l.cols, l.rows = cols, rows
	log.Debug("[RELAY] resize %dx%d", cols, rows)
	if err := l.session.Resize(uint16(rows), uint16(cols)); err != nil {
		log.Warn("[RELAY] %v", err)
	}
	if l.popup != nil {
		w, h := popup.BodySize(cols, rows)
		l.popup = popup.Resize(l.popup, w, h)
		l.writeTerm(l.overlay.Erase())
		l.drawPopup()
	}
}

// drainOutput relays whatever the shell wrote before it went away.
func (l *Loop) drainOutput() {
	if l.outputClosed {
		return
	}
	for range maxDrainReads {
		if !l.readOutputOnce() {
			return
		}
	}
}

func (l *Loop) shutdown() {
	l.state = StateShuttingDown
	l.queued = nil
	l.closePopup()
	if n := l.engine.CancelAll(); n > 0 {
		log.Debug("[RELAY] canceled %d hook job(s)", n)
	}
	l.cancelAssistant()
	l.drainOutput()

	st, err := l.session.Terminate(l.cfg.Relay.TerminateGrace.Duration)
	switch {
	case err != nil:
		log.Warn("[RELAY] terminate shell: %v", err)
	case l.exit == nil:
		l.exit = st
	}
	if err := l.session.Close(); err != nil {
		log.Debug("[RELAY] close pty: %v", err)
	}
	l.restore()
	l.state = StateTerminated
	log.Info("[RELAY] terminated (%v)", l.exit)
}

func (l *Loop) restore() {
	l.restoreOnce.Do(func() {
		if err := l.term.Restore(); err != nil {
			log.Warn("[RELAY] restore terminal: %v", err)
		}
	})
}
