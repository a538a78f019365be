// Package exec provides a testable command execution abstraction.
// The orchestrator never calls os/exec directly, so tests can swap in
// MockRunner.
package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	osexec "os/exec"
	"runtime"
	"syscall"
)

// Runner defines the interface for executing external commands.
type Runner interface {
	// Run executes a command and returns combined stdout/stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunSeparate executes a command in dir and returns stdout and stderr
	// separately. It blocks until the command exits.
	RunSeparate(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

	// Start begins a command in dir without waiting for completion.
	// Combined output is copied to out when it is not nil.
	Start(ctx context.Context, dir string, out io.Writer, name string, args ...string) (Process, error)

	// LookPath resolves a binary name through PATH.
	LookPath(name string) (string, error)
}

// Process is a started command.
type Process interface {
	Pid() int
	// Wait blocks until the process exits. It must be called exactly once.
	Wait() error
	// Terminate asks the process to exit.
	Terminate() error
	// Kill stops the process immediately.
	Kill() error
}

// ExitCode extracts the exit status from a Run/RunSeparate/Wait error.
// It returns 0 for a nil error and -1 when the status is unknown.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return -1
}

// OSRunner implements Runner using os/exec.
type OSRunner struct {
	// Env overrides environment variables (nil = inherit from parent)
	Env []string
}

// NewOSRunner creates a new OS-based command runner.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

// Run executes a command and returns combined output.
func (r *OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}
	return cmd.CombinedOutput()
}

// RunSeparate executes in dir and returns stdout and stderr separately.
func (r *OSRunner) RunSeparate(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Start begins a command without waiting. The process is not tied to ctx
// cancellation so it can outlive the call that launched it.
func (r *OSRunner) Start(ctx context.Context, dir string, out io.Writer, name string, args ...string) (Process, error) {
	cmd := osexec.Command(name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	if out != nil {
		cmd.Stdout = out
		cmd.Stderr = out
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: cmd}, nil
}

// LookPath resolves name through PATH.
func (r *OSRunner) LookPath(name string) (string, error) {
	return osexec.LookPath(name)
}

type osProcess struct {
	cmd *osexec.Cmd
}

func (p *osProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *osProcess) Terminate() error {
	// Windows has no SIGTERM delivery.
	if runtime.GOOS == "windows" {
		return p.cmd.Process.Kill()
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *osProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Default is the default runner used by helper functions.
var Default Runner = NewOSRunner()

// Run executes using the default runner.
func Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return Default.Run(ctx, name, args...)
}
