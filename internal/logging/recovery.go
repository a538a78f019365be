package logging

import (
	"fmt"
	"runtime/debug"
	"time"
)

// PanicError is a panic recovered by Guard.
type PanicError struct {
	Component string
	Value     interface{}
	Stack     string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Component, e.Value)
}

// Guard recovers a panic in the calling goroutine and logs it with its
// stack. It only works when deferred directly:
//
//	defer logging.Guard("viewer", nil)
func Guard(component string, onPanic func(*PanicError)) {
	rec := recover()
	if rec == nil {
		return
	}
	pe := &PanicError{Component: component, Value: rec, Stack: string(debug.Stack())}
	write(Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelError,
		Component: component,
		Event:     "panic_recovered",
		Error:     fmt.Sprintf("%v", rec),
		Extra:     map[string]interface{}{"stack": pe.Stack},
	})
	if onPanic != nil {
		onPanic(pe)
	}
}

// Protect runs fn and returns a *PanicError if it panics.
func Protect(component string, fn func() error) (err error) {
	defer Guard(component, func(pe *PanicError) { err = pe })
	return fn()
}

// SafeGo runs fn in a goroutine whose panics are logged instead of
// crashing the process.
func SafeGo(component string, fn func()) {
	go func() {
		defer Guard(component, nil)
		fn()
	}()
}

// GoNotify is SafeGo with a callback run after a recovered panic, so owners
// of the goroutine can restore their state.
func GoNotify(component string, fn func(), onPanic func(*PanicError)) {
	go func() {
		defer Guard(component, onPanic)
		fn()
	}()
}
