// Package viewer tracks the single long-lived waveform viewer process.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joss/benchsim/internal/exec"
	"github.com/joss/benchsim/internal/logging"
)

// State is the lifecycle state of a session.
type State int

const (
	StateAbsent State = iota
	StateRunning
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	default:
		return "absent"
	}
}

// Grace periods used when stopping the viewer.
const (
	TerminateGrace = 1500 * time.Millisecond
	KillGrace      = 1 * time.Second
	CloseGrace     = 3 * time.Second
)

// ErrActive is returned by Launch while a viewer is still running.
var ErrActive = errors.New("viewer session already running")

// EventKind distinguishes session events.
type EventKind int

const (
	EventOutput EventKind = iota
	EventExited
)

// Event is emitted asynchronously by a running session.
type Event struct {
	SessionID string
	Kind      EventKind
	Line      string // EventOutput
	ExitCode  int    // EventExited
}

// Session owns at most one viewer process. Launch and Terminate are
// expected to be called from a single dispatcher; the exit watcher runs on
// its own goroutine.
type Session struct {
	runner exec.Runner
	log    *logging.Logger
	events chan Event

	mu    sync.Mutex
	state State
	id    string
	proc  exec.Process
	done  chan struct{}
}

// NewSession creates an absent session.
func NewSession(runner exec.Runner) *Session {
	return &Session{
		runner: runner,
		log:    logging.New("viewer"),
		events: make(chan Event, 256),
	}
}

// Events returns the channel on which output lines and exits arrive.
// Events are dropped when nobody drains it.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the id of the current process, or "" when absent.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Alive reports whether a launched viewer is still running.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning && !closed(s.done)
}

// Launch starts the viewer in dir without waiting for it.
func (s *Session) Launch(ctx context.Context, dir, name string, args ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAbsent && !closed(s.done) {
		return ErrActive
	}

	id := uuid.NewString()
	proc, err := s.runner.Start(ctx, dir, &lineWriter{emit: func(line string) {
		s.emit(Event{SessionID: id, Kind: EventOutput, Line: line})
	}}, name, args...)
	if err != nil {
		s.state = StateAbsent
		return fmt.Errorf("start viewer: %w", err)
	}

	done := make(chan struct{})
	s.id, s.proc, s.done, s.state = id, proc, done, StateRunning
	s.log.Info("launched", map[string]interface{}{"session": id, "pid": proc.Pid(), "cmd": name})

	// Only this goroutine closes done.
	finish := func(code int) {
		if !closed(done) {
			close(done)
		}
		s.mu.Lock()
		if s.id == id && s.state == StateRunning {
			s.state, s.proc, s.id = StateAbsent, nil, ""
		}
		s.mu.Unlock()

		s.log.Info("exited", map[string]interface{}{"session": id, "code": code})
		s.emit(Event{SessionID: id, Kind: EventExited, ExitCode: code})
	}
	logging.GoNotify("viewer", func() {
		finish(exec.ExitCode(proc.Wait()))
	}, func(*logging.PanicError) {
		finish(-1)
	})
	return nil
}

// Terminate stops the viewer: a graceful request first, then a kill once
// grace expires. It is a no-op when no viewer is tracked.
func (s *Session) Terminate(grace time.Duration) error {
	proc, done, ok := s.begin()
	if !ok {
		return nil
	}
	defer s.end()

	if err := proc.Terminate(); err != nil {
		s.log.Warn("terminate_failed", map[string]interface{}{"pid": proc.Pid()}, err)
	}
	if wait(done, grace) {
		return nil
	}
	return s.kill(proc, done, KillGrace)
}

// Kill stops the viewer immediately, waiting up to grace for it to exit.
func (s *Session) Kill(grace time.Duration) error {
	proc, done, ok := s.begin()
	if !ok {
		return nil
	}
	defer s.end()
	return s.kill(proc, done, grace)
}

func (s *Session) kill(proc exec.Process, done chan struct{}, grace time.Duration) error {
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill viewer: %w", err)
	}
	if !wait(done, grace) {
		return fmt.Errorf("viewer (pid %d) did not exit within %s", proc.Pid(), grace)
	}
	return nil
}

// begin moves a live session to terminating.
func (s *Session) begin() (exec.Process, chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil || s.state != StateRunning {
		return nil, nil, false
	}
	s.state = StateTerminating
	return s.proc, s.done, true
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, s.proc, s.id = StateAbsent, nil, ""
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// KillByName asks the OS to kill every process named after the viewer
// binary. Missing matches and missing kill tools are ignored.
func KillByName(ctx context.Context, runner exec.Runner, viewerPath string) {
	name := strings.TrimSuffix(filepath.Base(viewerPath), ".exe")
	if name == "" || name == "." {
		return
	}
	if runtime.GOOS == "windows" {
		_, _ = runner.Run(ctx, "taskkill", "/IM", name+".exe", "/F")
		return
	}
	_, _ = runner.Run(ctx, "pkill", "-f", name)
}

func closed(ch chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func wait(ch chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}

// lineWriter splits written bytes into lines.
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		if l := strings.TrimSpace(line); l != "" {
			w.emit(l)
		}
	}
}
