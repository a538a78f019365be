package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
)

// MockRunner implements Runner for testing.
type MockRunner struct {
	mu sync.Mutex

	// Calls records all command invocations
	Calls []MockCall

	// Responses maps a command name (or its base name) to a response
	Responses map[string]MockResponse

	// Paths maps names to LookPath results; missing names are not found
	Paths map[string]string

	// Processes records every process handed out by Start
	Processes []*MockProcess

	// Stubborn makes started processes ignore Terminate
	Stubborn bool

	nextPid int
}

// MockCall records a single command invocation.
type MockCall struct {
	Name string
	Args []string
	Dir  string
}

// MockResponse defines the response for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error

	// Effect runs before the response is returned, e.g. to create the
	// files a real tool would write.
	Effect func(dir string, args []string) error
}

// ExitError is a mock non-zero exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode returns the mocked status.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]MockResponse),
		Paths:     make(map[string]string),
		nextPid:   1000,
	}
}

// AddResponse sets the response for a command name.
func (m *MockRunner) AddResponse(name string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[name] = resp
}

// CallCount returns how many times name (or a path with that base name) ran.
func (m *MockRunner) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Name == name || filepath.Base(c.Name) == name {
			n++
		}
	}
	return n
}

// LastProcess returns the most recently started process, or nil.
func (m *MockRunner) LastProcess() *MockProcess {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Processes) == 0 {
		return nil
	}
	return m.Processes[len(m.Processes)-1]
}

func (m *MockRunner) record(name string, args []string, dir string) MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Name: name, Args: args, Dir: dir})
	if resp, ok := m.Responses[name]; ok {
		return resp
	}
	if resp, ok := m.Responses[filepath.Base(name)]; ok {
		return resp
	}
	return MockResponse{}
}

func (m *MockRunner) apply(resp MockResponse, dir string, args []string) error {
	if resp.Effect != nil {
		if err := resp.Effect(dir, args); err != nil {
			return err
		}
	}
	return resp.Err
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	resp := m.record(name, args, "")
	err := m.apply(resp, "", args)
	out := append(append([]byte{}, resp.Stdout...), resp.Stderr...)
	return out, err
}

func (m *MockRunner) RunSeparate(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	resp := m.record(name, args, dir)
	err := m.apply(resp, dir, args)
	return resp.Stdout, resp.Stderr, err
}

func (m *MockRunner) Start(ctx context.Context, dir string, out io.Writer, name string, args ...string) (Process, error) {
	resp := m.record(name, args, dir)
	if err := m.apply(resp, dir, args); err != nil {
		return nil, err
	}
	if out != nil && len(resp.Stdout) > 0 {
		_, _ = out.Write(resp.Stdout)
	}

	m.mu.Lock()
	m.nextPid++
	p := &MockProcess{
		Name:     name,
		Args:     args,
		Dir:      dir,
		pid:      m.nextPid,
		stubborn: m.Stubborn,
		done:     make(chan struct{}),
	}
	m.Processes = append(m.Processes, p)
	m.mu.Unlock()
	return p, nil
}

func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// ErrKilled is returned by MockProcess.Wait after Terminate or Kill.
var ErrKilled = errors.New("signal: killed")

// MockProcess is a controllable fake process.
type MockProcess struct {
	Name string
	Args []string
	Dir  string

	pid      int
	stubborn bool

	mu         sync.Mutex
	terminated int
	killed     int
	done       chan struct{}
	once       sync.Once
	err        error
}

func (p *MockProcess) Pid() int {
	return p.pid
}

func (p *MockProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *MockProcess) Terminate() error {
	p.mu.Lock()
	p.terminated++
	p.mu.Unlock()
	if !p.stubborn {
		p.finish(ErrKilled)
	}
	return nil
}

func (p *MockProcess) Kill() error {
	p.mu.Lock()
	p.killed++
	p.mu.Unlock()
	p.finish(ErrKilled)
	return nil
}

// Exit ends the process as if it quit by itself with code.
func (p *MockProcess) Exit(code int) {
	if code == 0 {
		p.finish(nil)
		return
	}
	p.finish(&ExitError{Code: code})
}

// Exited reports whether the process has ended.
func (p *MockProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Signals returns how many times Terminate and Kill were called.
func (p *MockProcess) Signals() (terminated, killed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated, p.killed
}

func (p *MockProcess) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}
