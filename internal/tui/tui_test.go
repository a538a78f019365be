package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/benchsim/internal/exec"
	"github.com/joss/benchsim/internal/gtkw"
	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/message"
	"github.com/joss/benchsim/internal/project"
	"github.com/joss/benchsim/internal/sim"
	"github.com/joss/benchsim/internal/viewer"
)

type fakeBackend struct {
	mu      sync.Mutex
	session *viewer.Session
	runs    []sim.Target
	result  message.Result
	closes  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		session: viewer.NewSession(exec.NewMockRunner()),
		result:  message.OK(),
	}
}

func (f *fakeBackend) Resolve(ctx context.Context, t sim.Target) sim.Target { return t }

func (f *fakeBackend) BuildPlan(ctx context.Context, t sim.Target, requireTools bool) (message.Result, *project.Plan) {
	return message.OK(), &project.Plan{Folder: t.Folder, Mode: project.ModeGeneric, Testbench: t.Testbench, CompileFiles: []string{"a.v", t.Testbench}}
}

func (f *fakeBackend) RunSimulation(ctx context.Context, size gtkw.Size, t sim.Target) message.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, t)
	return f.result
}

func (f *fakeBackend) CloseViewer(ctx context.Context) message.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return message.OK()
}

func (f *fakeBackend) Session() *viewer.Session { return f.session }

func (f *fakeBackend) Translator(ctx context.Context) *i18n.Translator { return i18n.New("en") }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and any batched commands, returning the messages that
// matter to the model. Spinner ticks are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	var out []tea.Msg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
	case scopeMsg, resultMsg, recentMsg:
		out = append(out, msg)
	}
	return out
}

func step(t *testing.T, m tea.Model, msg tea.Msg) (Model, []tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), collect(cmd)
}

// drive feeds msg and every message it produces back into the model.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		var out []tea.Msg
		m, out = step(t, m, queue[0])
		queue = append(queue[1:], out...)
	}
	return m
}

func project3(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"alu.v", "alu_tb.v", "main_tb.v"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("module x; endmodule\n"), 0644))
	}
	return dir
}

func ready(t *testing.T, b Backend, folder string) Model {
	t.Helper()
	m := New(context.Background(), b, Options{Target: sim.Target{Folder: folder, Mode: project.ModeAuto}})
	m = drive(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return drive(t, m, scanCmd(m.ctx, b, m.tr, m.target)())
}

func TestScanListsTestbenchesAndPrefersMain(t *testing.T) {
	b := newFakeBackend()
	dir := project3(t)

	m := ready(t, b, dir)

	require.NotNil(t, m.scope)
	assert.Equal(t, 2, m.testbenches.Len())
	sel, ok := m.testbenches.Selected()
	require.True(t, ok)
	assert.Equal(t, "main_tb.v", filepath.Base(sel))
	assert.Contains(t, strings.Join(m.lines, "\n"), "Project loaded: mode=generic, tb=2, sources=3")
	assert.False(t, m.busy)
}

func TestScanInvalidFolderRaisesNotice(t *testing.T) {
	b := newFakeBackend()
	m := ready(t, b, filepath.Join(t.TempDir(), "missing"))

	assert.Nil(t, m.scope)
	require.NotNil(t, m.notice)
	assert.Equal(t, i18n.New("en").T(i18n.FolderInvalid), m.notice.Text)
	assert.Contains(t, m.View(), "esc: dismiss")

	m = drive(t, m, key("esc"))
	assert.Nil(t, m.notice)
}

func TestRunUsesSelectedTestbench(t *testing.T) {
	b := newFakeBackend()
	b.result = message.OK()
	b.result.Add(message.New(message.LevelSuccess, "Simulation updated", message.TagToast))
	dir := project3(t)
	m := ready(t, b, dir)

	next, msgs := step(t, m, key("r"))
	assert.True(t, next.busy)
	require.Len(t, msgs, 1)

	// A second request while busy is ignored.
	_, cmd := next.Update(key("r"))
	assert.Nil(t, cmd)

	m = drive(t, next, msgs[0])
	assert.False(t, m.busy)
	require.Len(t, b.runs, 1)
	assert.Equal(t, "main_tb.v", filepath.Base(b.runs[0].Testbench))
	assert.Equal(t, dir, b.runs[0].Folder)
	assert.Equal(t, "Simulation updated", m.toast)
}

func TestRunFailureShowsProblems(t *testing.T) {
	b := newFakeBackend()
	dir := project3(t)
	stderr := "alu.v:7: syntax error\n"
	r := message.OK()
	b.result = r.Fail(message.Error("Compilation error:\n" + stderr).
		WithAux(message.Aux{Stage: message.StageCompile, Stderr: stderr}))
	m := ready(t, b, dir)

	m = drive(t, m, key("r"))

	require.NotNil(t, m.notice)
	assert.Equal(t, message.LevelError, m.notice.Level)
	assert.Contains(t, strings.Join(m.lines, "\n"), "syntax error")
}

func TestValidateAddsSuccess(t *testing.T) {
	b := newFakeBackend()
	m := ready(t, b, project3(t))

	m = drive(t, m, key("v"))

	assert.Contains(t, m.toast, "Project is valid. mode=generic tb=main_tb.v sources=2")
	assert.Empty(t, b.runs)
}

func TestCloseKey(t *testing.T) {
	b := newFakeBackend()
	m := ready(t, b, project3(t))

	m = drive(t, m, key("c"))

	assert.Equal(t, 1, b.closes)
	assert.False(t, m.busy)
}

func TestModeCycleRescans(t *testing.T) {
	b := newFakeBackend()
	m := ready(t, b, project3(t))

	m = drive(t, m, key("m"))
	assert.Equal(t, project.ModeIcestudio, m.target.Mode)
	require.NotNil(t, m.scope)
	assert.Equal(t, project.ModeIcestudio, m.scope.Mode)

	m = drive(t, m, key("m"))
	assert.Equal(t, project.ModeGeneric, m.target.Mode)
	m = drive(t, m, key("m"))
	assert.Equal(t, project.ModeAuto, m.target.Mode)
}

func TestRecentProjectOpensFolder(t *testing.T) {
	b := newFakeBackend()
	first := project3(t)
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "cpu_tb.v"), []byte("module cpu_tb; endmodule\n"), 0644))

	m := New(context.Background(), b, Options{
		Target: sim.Target{Folder: first},
		Recent: func(context.Context) ([]string, error) { return []string{second, first}, nil },
	})
	m = drive(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m = drive(t, m, key("o"))
	assert.Equal(t, ViewRecent, m.view)
	assert.Equal(t, 2, m.recent.Len())
	sel, ok := m.recent.Selected()
	require.True(t, ok)
	assert.Equal(t, first, sel)

	m = drive(t, m, key("k"))
	m = drive(t, m, key("enter"))
	assert.Equal(t, ViewMain, m.view)
	assert.Equal(t, second, m.target.Folder)
	sel, ok = m.testbenches.Selected()
	require.True(t, ok)
	assert.Equal(t, "cpu_tb.v", filepath.Base(sel))
}

func TestViewerEventsAreShownAndResubscribed(t *testing.T) {
	b := newFakeBackend()
	m := ready(t, b, project3(t))

	next, cmd := m.Update(viewerEventMsg{Kind: viewer.EventOutput, Line: "GTKWave Analyzer v3.3"})
	assert.NotNil(t, cmd)
	m = next.(Model)
	next, cmd = m.Update(viewerEventMsg{Kind: viewer.EventExited, ExitCode: 0})
	assert.NotNil(t, cmd)
	m = next.(Model)

	log := strings.Join(m.lines, "\n")
	assert.Contains(t, log, "GTKWave Analyzer v3.3")
	assert.Contains(t, log, "GTKWave exited (code 0).")
}

func TestHelpAndQuit(t *testing.T) {
	b := newFakeBackend()
	m := ready(t, b, project3(t))

	m = drive(t, m, key("?"))
	assert.Equal(t, ViewHelp, m.view)
	assert.Contains(t, m.View(), "BenchSim - Help")
	m = drive(t, m, key("x"))
	assert.Equal(t, ViewMain, m.view)

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).quitting)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFuzzyFilter(t *testing.T) {
	ranks := fuzzyFilter("atb", []string{"main_tb.v", "alu_tb.v", "rtl/cpu.v"})
	var idx []int
	for _, r := range ranks {
		idx = append(idx, r.Index)
	}
	assert.ElementsMatch(t, []int{0, 1}, idx)
}

func TestNextMode(t *testing.T) {
	assert.Equal(t, project.ModeIcestudio, nextMode(""))
	assert.Equal(t, project.ModeGeneric, nextMode(project.ModeIcestudio))
	assert.Equal(t, project.ModeAuto, nextMode(project.ModeGeneric))
}
