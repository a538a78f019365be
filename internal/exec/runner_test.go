package exec

import (
	"bytes"
	"context"
	"errors"
	osexec "os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := osexec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(&ExitError{Code: 2}))
	assert.Equal(t, -1, ExitCode(errors.New("not started")))
}

func TestOSRunnerRunSeparate(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	stdout, stderr, err := NewOSRunner().RunSeparate(context.Background(), dir, "sh", "-c", "pwd; echo oops >&2; exit 3")

	assert.Equal(t, 3, ExitCode(err))
	assert.NotEmpty(t, stdout)
	assert.Equal(t, "oops\n", string(stderr))
}

func TestOSRunnerStartTerminate(t *testing.T) {
	requireShell(t)
	var out bytes.Buffer

	p, err := NewOSRunner().Start(context.Background(), t.TempDir(), &out, "sleep", "30")
	require.NoError(t, err)
	assert.Greater(t, p.Pid(), 0)

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	require.NoError(t, p.Terminate())
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		_ = p.Kill()
		t.Fatal("process did not exit after Terminate")
	}
}

func TestMockRunnerResponses(t *testing.T) {
	m := NewMockRunner()
	m.AddResponse("vvp", MockResponse{Stderr: []byte("boom"), Err: &ExitError{Code: 1}})

	var effectDir string
	m.AddResponse("/opt/iverilog/bin/iverilog", MockResponse{
		Effect: func(dir string, args []string) error {
			effectDir = dir
			return nil
		},
	})

	_, _, err := m.RunSeparate(context.Background(), "/proj", "/opt/iverilog/bin/iverilog", "-o", "x")
	assert.NoError(t, err)
	assert.Equal(t, "/proj", effectDir)

	_, stderr, err := m.RunSeparate(context.Background(), "/proj", "/opt/iverilog/bin/vvp", "x")
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, "boom", string(stderr))

	assert.Equal(t, 1, m.CallCount("vvp"))
	assert.Equal(t, 1, m.CallCount("iverilog"))
	assert.Equal(t, 0, m.CallCount("gtkwave"))
}

func TestMockRunnerLookPath(t *testing.T) {
	m := NewMockRunner()
	m.Paths["vvp"] = "/usr/bin/vvp"

	p, err := m.LookPath("vvp")
	assert.NoError(t, err)
	assert.Equal(t, "/usr/bin/vvp", p)

	_, err = m.LookPath("gtkwave")
	assert.Error(t, err)
}

func TestMockProcessLifecycle(t *testing.T) {
	m := NewMockRunner()
	proc, err := m.Start(context.Background(), "/proj", nil, "gtkwave", "sim.gtkw")
	require.NoError(t, err)

	p := m.LastProcess()
	require.NotNil(t, p)
	assert.False(t, p.Exited())

	require.NoError(t, proc.Terminate())
	assert.True(t, p.Exited())
	assert.ErrorIs(t, proc.Wait(), ErrKilled)

	term, kill := p.Signals()
	assert.Equal(t, 1, term)
	assert.Equal(t, 0, kill)
}

func TestMockProcessStubborn(t *testing.T) {
	m := NewMockRunner()
	m.Stubborn = true
	proc, err := m.Start(context.Background(), "", nil, "gtkwave")
	require.NoError(t, err)

	require.NoError(t, proc.Terminate())
	assert.False(t, m.LastProcess().Exited())

	require.NoError(t, proc.Kill())
	assert.True(t, m.LastProcess().Exited())
}
