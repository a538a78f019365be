// Package logging provides structured JSON logging for BenchSim components.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event represents a structured log event
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Event     string                 `json:"event"`
	Run       string                 `json:"run,omitempty"`
	Project   string                 `json:"project,omitempty"`
	Duration  int64                  `json:"duration_ms,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

var (
	outMu   sync.RWMutex
	out     io.Writer = os.Stderr
	debugOn           = os.Getenv("BENCHSIM_DEBUG") != ""
)

// SetOutput redirects every logger. A nil writer discards events.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = io.Discard
	}
	out = w
}

// SetDebug toggles emission of debug events.
func SetDebug(on bool) {
	outMu.Lock()
	defer outMu.Unlock()
	debugOn = on
}

// Setup routes events to a rotating benchsim.log in dir. With echo set,
// events are copied to stderr as well. The returned closer flushes the file.
func Setup(dir string, echo bool) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "benchsim.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	if echo {
		SetOutput(io.MultiWriter(file, os.Stderr))
	} else {
		SetOutput(file)
	}
	return file, nil
}

func write(e Event) {
	data, _ := json.Marshal(e)
	outMu.RLock()
	defer outMu.RUnlock()
	fmt.Fprintln(out, string(data))
}

// Logger provides structured logging
type Logger struct {
	component string
	project   string
	run       string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithProject sets the project folder context
func (l *Logger) WithProject(project string) *Logger {
	return &Logger{
		component: l.component,
		project:   project,
		run:       l.run,
	}
}

// WithRun tags events with a simulation run id
func (l *Logger) WithRun(run string) *Logger {
	return &Logger{
		component: l.component,
		project:   l.project,
		run:       run,
	}
}

func (l *Logger) event(level Level, event string, extra map[string]interface{}) Event {
	return Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Component: l.component,
		Event:     event,
		Project:   l.project,
		Run:       l.run,
		Extra:     extra,
	}
}

func (l *Logger) log(level Level, event string, extra map[string]interface{}, err error) {
	e := l.event(level, event, extra)
	if err != nil {
		e.Error = err.Error()
	}
	write(e)
}

// Debug logs a debug event. Dropped unless debug output is enabled.
func (l *Logger) Debug(event string, extra map[string]interface{}) {
	outMu.RLock()
	on := debugOn
	outMu.RUnlock()
	if on {
		l.log(LevelDebug, event, extra, nil)
	}
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]interface{}) {
	l.log(LevelInfo, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]interface{}, err error) {
	l.log(LevelWarn, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]interface{}, err error) {
	l.log(LevelError, event, extra, err)
}

// TimedEvent logs an event with duration
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]interface{}) {
	e := l.event(LevelInfo, event, extra)
	e.Duration = time.Since(start).Milliseconds()
	write(e)
}

// StageEvent logs the outcome of one pipeline stage (compile, simulate,
// viewer). Failures are logged at error level.
func (l *Logger) StageEvent(stage string, start time.Time, exitCode int, err error) {
	e := l.event(LevelInfo, stage, map[string]interface{}{
		"exit_code": exitCode,
		"success":   err == nil,
	})
	e.Duration = time.Since(start).Milliseconds()
	if err != nil {
		e.Level = LevelError
		e.Error = err.Error()
	}
	write(e)
}
