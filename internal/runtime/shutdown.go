// Package runtime runs cleanup when a BenchSim command is interrupted.
package runtime

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joss/benchsim/internal/logging"
)

// ShutdownFunc is a cleanup step. ctx expires when the shutdown timeout does.
type ShutdownFunc func(ctx context.Context) error

// ShutdownManager cancels a context on SIGINT/SIGTERM and then runs the
// registered cleanup steps, last registered first.
type ShutdownManager struct {
	mu       sync.Mutex
	handlers []namedHandler
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
	log      *logging.Logger
	err      error
	signal   os.Signal
}

type namedHandler struct {
	name string
	fn   ShutdownFunc
}

// DefaultShutdownTimeout bounds all cleanup. Closing the viewer needs up to
// its own kill grace, so this leaves headroom.
const DefaultShutdownTimeout = 10 * time.Second

var (
	globalManager *ShutdownManager
	managerOnce   sync.Once
)

// Global returns the process-wide manager.
func Global() *ShutdownManager {
	managerOnce.Do(func() {
		globalManager = NewShutdownManager(DefaultShutdownTimeout)
	})
	return globalManager
}

// NewShutdownManager creates a manager whose cleanup is bounded by timeout.
func NewShutdownManager(timeout time.Duration) *ShutdownManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownManager{
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     logging.New("shutdown"),
	}
}

// Register adds a cleanup step.
func (m *ShutdownManager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, namedHandler{name: name, fn: fn})
}

// Context is cancelled as soon as shutdown begins.
func (m *ShutdownManager) Context() context.Context {
	return m.ctx
}

// Done is closed once every step has run or the timeout expired.
func (m *ShutdownManager) Done() <-chan struct{} {
	return m.done
}

// Err waits for shutdown and returns the joined step errors.
func (m *ShutdownManager) Err() error {
	<-m.done
	return m.err
}

// Signal returns the signal that started shutdown, or nil when it was
// started by a direct Shutdown call.
func (m *ShutdownManager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signal
}

// ExitCode is the conventional status for the triggering signal: 130 for
// SIGINT, 143 for SIGTERM and 0 otherwise.
func (m *ShutdownManager) ExitCode() int {
	switch m.Signal() {
	case syscall.SIGINT:
		return 130
	case syscall.SIGTERM:
		return 143
	}
	return 0
}

// ListenForSignals starts shutdown on SIGINT or SIGTERM. The returned
// function stops listening.
func (m *ShutdownManager) ListenForSignals() (stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	quit := make(chan struct{})

	logging.SafeGo("shutdown", func() {
		select {
		case sig := <-sigChan:
			m.log.Info("signal", map[string]interface{}{"signal": sig.String()})
			m.mu.Lock()
			m.signal = sig
			m.mu.Unlock()
			m.Shutdown()
		case <-quit:
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(quit)
		})
	}
}

// Shutdown cancels the context and runs every step. Later calls wait for
// the first one to finish.
func (m *ShutdownManager) Shutdown() {
	m.once.Do(m.run)
	<-m.done
}

func (m *ShutdownManager) run() {
	defer close(m.done)
	m.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	handlers := append([]namedHandler(nil), m.handlers...)
	m.mu.Unlock()

	finished := make(chan struct{})
	var errs []error
	var errMu sync.Mutex

	logging.SafeGo("shutdown", func() {
		defer close(finished)
		for i := len(handlers) - 1; i >= 0; i-- {
			h := handlers[i]
			start := time.Now()
			// A panicking step must not skip the ones after it.
			err := logging.Protect("shutdown."+h.name, func() error { return h.fn(ctx) })
			if err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
				m.log.Warn("handler_failed", map[string]interface{}{"handler": h.name}, err)
				continue
			}
			m.log.TimedEvent("handler_done", start, map[string]interface{}{"handler": h.name})
		}
	})

	select {
	case <-finished:
	case <-ctx.Done():
		m.log.Warn("timeout", map[string]interface{}{"timeout": m.timeout.String()}, ctx.Err())
	}

	errMu.Lock()
	m.err = errors.Join(errs...)
	errMu.Unlock()
}
