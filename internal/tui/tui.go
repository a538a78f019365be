// Package tui provides the interactive BenchSim front end using Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joss/benchsim/internal/diagnostics"
	"github.com/joss/benchsim/internal/gtkw"
	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/message"
	"github.com/joss/benchsim/internal/project"
	"github.com/joss/benchsim/internal/render"
	"github.com/joss/benchsim/internal/sim"
	bstrings "github.com/joss/benchsim/internal/strings"
	"github.com/joss/benchsim/internal/viewer"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)

// View represents the current view mode
type View int

const (
	ViewMain View = iota
	ViewRecent
	ViewHelp
)

// Backend runs the pipeline. *sim.Orchestrator satisfies it.
type Backend interface {
	Resolve(ctx context.Context, t sim.Target) sim.Target
	BuildPlan(ctx context.Context, t sim.Target, requireTools bool) (message.Result, *project.Plan)
	RunSimulation(ctx context.Context, size gtkw.Size, t sim.Target) message.Result
	CloseViewer(ctx context.Context) message.Result
	Session() *viewer.Session
	Translator(ctx context.Context) *i18n.Translator
}

// RecentFunc lists recently simulated folders, newest first.
type RecentFunc func(ctx context.Context) ([]string, error)

// Options configure the TUI.
type Options struct {
	Target sim.Target
	Size   gtkw.Size
	Recent RecentFunc
}

// Model is the main TUI model
type Model struct {
	ctx     context.Context
	backend Backend
	opts    Options
	tr      *i18n.Translator
	policy  *render.Dispatcher

	// State
	view        View
	target      sim.Target
	scope       *project.Scope
	testbenches *Picker
	recent      *Picker
	busy        bool
	busyOp      op
	notice      *message.Message
	toast       string
	lines       []string
	ready       bool
	quitting    bool

	// Components
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

// New creates a new TUI model
func New(ctx context.Context, b Backend, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if opts.Size.Width == 0 || opts.Size.Height == 0 {
		opts.Size = gtkw.DefaultSize
	}
	tr := b.Translator(ctx)

	return Model{
		ctx:         ctx,
		backend:     b,
		opts:        opts,
		tr:          tr,
		policy:      render.NewDispatcher(io.Discard, tr),
		view:        ViewMain,
		target:      opts.Target,
		testbenches: NewPicker("Testbenches", 30, 10),
		recent:      NewPicker("Recent projects", 60, 10),
		spinner:     s,
		viewport:    viewport.New(60, 10),
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		scanCmd(m.ctx, m.backend, m.tr, m.target),
		waitViewerEvent(m.backend.Session().Events()),
	)
}

// start marks the model busy with o. Callers must check busy first.
func (m *Model) start(o op, cmd tea.Cmd) tea.Cmd {
	m.busy, m.busyOp = true, o
	m.toast = ""
	return cmd
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()

	case scopeMsg:
		if m.busyOp == opScan {
			m.busy = false
		}
		m.target = msg.target
		m.scope = msg.scope
		if msg.scope != nil {
			current := m.target.Testbench
			if current == "" {
				current = msg.scope.Preferred
			}
			m.testbenches.SetPaths(msg.scope.Testbenches, msg.scope.Folder, current)
		} else {
			m.testbenches.SetPaths(nil, "", "")
		}
		m.appendResult(msg.res, m.target.Folder)

	case resultMsg:
		if m.busyOp == msg.op {
			m.busy = false
		}
		m.appendResult(msg.res, msg.folder)

	case recentMsg:
		if msg.err != nil {
			m.appendMessage(message.New(message.LevelWarning, msg.err.Error()))
			break
		}
		m.recent.SetPaths(msg.folders, "", m.target.Folder)

	case viewerEventMsg:
		switch msg.Kind {
		case viewer.EventOutput:
			m.appendLine(infoStyle.Render("gtkwave │ " + msg.Line))
		case viewer.EventExited:
			m.appendMessage(message.Log(m.tr.T(i18n.ViewerExited, msg.ExitCode)))
		}
		cmds = append(cmds, waitViewerEvent(m.backend.Session().Events()))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.view {
	case ViewHelp:
		m.view = ViewMain
		return m, nil

	case ViewRecent:
		if m.recent.Filtering() {
			var cmd tea.Cmd
			m.recent, cmd = m.recent.Update(msg)
			return m, cmd
		}
		switch key {
		case "esc", "q":
			m.view = ViewMain
			return m, nil
		case "enter":
			folder, ok := m.recent.Selected()
			m.view = ViewMain
			if !ok || m.busy {
				return m, nil
			}
			cmd := m.start(opScan, scanCmd(m.ctx, m.backend, m.tr, sim.Target{Folder: folder, Mode: m.target.Mode}))
			return m, cmd
		}
		var cmd tea.Cmd
		m.recent, cmd = m.recent.Update(msg)
		return m, cmd
	}

	if m.notice != nil && (key == "esc" || key == "enter") {
		m.notice = nil
		return m, nil
	}
	if m.testbenches.Filtering() {
		var cmd tea.Cmd
		m.testbenches, cmd = m.testbenches.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.view = ViewHelp
		return m, nil
	case "enter", "r":
		if m.busy {
			return m, nil
		}
		t := m.selectedTarget()
		m.appendLine(infoStyle.Render(fmt.Sprintf("── run %s", filepath.Base(t.Testbench))))
		cmd := m.start(opRun, runCmd(m.ctx, m.backend, m.opts.Size, t))
		return m, tea.Batch(m.spinner.Tick, cmd)
	case "v":
		if m.busy {
			return m, nil
		}
		cmd := m.start(opValidate, validateCmd(m.ctx, m.backend, m.tr, m.selectedTarget()))
		return m, tea.Batch(m.spinner.Tick, cmd)
	case "c":
		if m.busy {
			return m, nil
		}
		cmd := m.start(opClose, closeCmd(m.ctx, m.backend))
		return m, tea.Batch(m.spinner.Tick, cmd)
	case "s":
		if m.busy {
			return m, nil
		}
		cmd := m.start(opScan, scanCmd(m.ctx, m.backend, m.tr, m.selectedTarget()))
		return m, cmd
	case "m":
		if m.busy {
			return m, nil
		}
		m.target.Mode = nextMode(m.target.Mode)
		cmd := m.start(opScan, scanCmd(m.ctx, m.backend, m.tr, m.selectedTarget()))
		return m, cmd
	case "o":
		m.view = ViewRecent
		return m, recentCmd(m.ctx, m.opts.Recent)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.testbenches, cmd = m.testbenches.Update(msg)
	return m, cmd
}

// selectedTarget is the current target with the testbench under the
// cursor.
func (m Model) selectedTarget() sim.Target {
	t := m.target
	if tb, ok := m.testbenches.Selected(); ok {
		t.Testbench = tb
	}
	if t.Mode == "" {
		t.Mode = project.ModeAuto
	}
	return t
}

func nextMode(mode project.Mode) project.Mode {
	switch mode {
	case project.ModeAuto, "":
		return project.ModeIcestudio
	case project.ModeIcestudio:
		return project.ModeGeneric
	default:
		return project.ModeAuto
	}
}

func (m *Model) layout() {
	left := m.width / 3
	if left < 30 {
		left = 30
	}
	bodyHeight := m.height - 8
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.testbenches.SetSize(left, bodyHeight)
	m.recent.SetSize(m.width-4, m.height-6)

	m.viewport.Width = m.width - left - 8
	if m.viewport.Width < 20 {
		m.viewport.Width = 20
	}
	m.viewport.Height = bodyHeight
	m.refreshLog()
}

// appendResult shows every message of r and the problems parsed from the
// attached tool output.
func (m *Model) appendResult(r message.Result, folder string) {
	for _, msg := range r.Messages {
		m.appendMessage(msg)
	}
	for _, p := range diagnostics.FromResult(r, folder) {
		m.appendLine(warnStyle.Render(p.Location()) + " " + p.Message)
	}
}

func (m *Model) appendMessage(msg message.Message) {
	popup, toast := m.policy.Wants(msg)
	if popup {
		n := msg
		m.notice = &n
	} else if toast {
		m.toast = msg.Text
	}

	style := infoStyle
	switch msg.Level {
	case message.LevelError:
		style = errorStyle
	case message.LevelWarning:
		style = warnStyle
	case message.LevelSuccess:
		style = activeStyle
	case message.LevelLog:
		style = lipgloss.NewStyle()
	}
	m.appendLine(style.Render(bstrings.WordWrap(strings.TrimRight(msg.Text, "\n"), m.viewport.Width)))
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if !m.ready {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}

	switch m.view {
	case ViewRecent:
		return m.viewRecent()
	case ViewHelp:
		return m.viewHelp()
	default:
		return m.viewMain()
	}
}

func (m Model) viewMain() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("⚡ "+m.tr.T(i18n.AppName)) + "\n")

	folder := m.target.Folder
	if folder == "" {
		folder = "(no folder)"
	}
	mode := m.target.Mode
	if mode == "" {
		mode = project.ModeAuto
	}
	resolved := ""
	if m.scope != nil && string(m.scope.Mode) != string(mode) {
		resolved = fmt.Sprintf(" → %s", m.scope.Mode)
	}
	viewerIcon := errorStyle.Render("○")
	if m.backend.Session().Alive() {
		viewerIcon = activeStyle.Render("●")
	}
	status := fmt.Sprintf("%s │ mode: %s%s │ gtkwave %s", bstrings.TruncatePath(folder, 60), mode, resolved, viewerIcon)
	b.WriteString(infoStyle.Render("  "+status) + "\n")

	if m.notice != nil {
		text := bstrings.WordWrap(strings.TrimRight(m.notice.Text, "\n"), max(m.width-8, 20))
		b.WriteString(noticeStyle.Render(errorStyle.Bold(true).Render(m.policy.Title(m.notice.Level))+"\n"+text) + "\n")
	}

	var list string
	if m.testbenches.Len() == 0 {
		list = infoStyle.Render("No testbenches found")
	} else {
		list = m.testbenches.View()
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(list),
		boxStyle.Render(m.viewport.View()),
	)
	b.WriteString(body + "\n")

	switch {
	case m.busy:
		b.WriteString(statusBarStyle.Render(fmt.Sprintf("%s %s...", m.spinner.View(), m.busyOp)))
	case m.toast != "":
		b.WriteString(statusBarStyle.Render(activeStyle.Render("» " + m.toast)))
	}

	var helpText string
	if m.notice != nil {
		helpText = "esc: dismiss"
	} else {
		helpText = "enter/r: run │ v: validate │ c: close viewer │ m: mode │ o: recent │ /: filter │ ?: help │ q: quit"
	}
	b.WriteString(helpStyle.Render("\n  " + helpText))

	return b.String()
}

func (m Model) viewRecent() string {
	var b strings.Builder
	if m.recent.Len() == 0 {
		b.WriteString(titleStyle.Render("Recent projects") + "\n\n")
		b.WriteString(infoStyle.Render("  No recent projects") + "\n")
	} else {
		b.WriteString(m.recent.View() + "\n")
	}
	b.WriteString(helpStyle.Render("\n  enter: open │ /: filter │ esc: back │ j/k: navigate"))
	return b.String()
}

func (m Model) viewHelp() string {
	help := `
  ⚡ BenchSim - Help

  PROJECT
    j/k       Move through testbenches
    /         Filter testbenches
    m         Cycle mode (auto, icestudio, generic)
    s         Rescan the project folder
    o         Open a recent project

  SIMULATION
    enter, r  Compile, simulate and open GTKWave
    v         Validate the project without running
    c         Close GTKWave
    pgup/dn   Scroll the output

  GENERAL
    esc       Dismiss an error
    ?         Toggle help
    q         Quit (closes GTKWave)

  COMMANDS
    benchsim simulate    Run once without the TUI
    benchsim doctor      Check the toolchain
`
	return titleStyle.Render("Help") + "\n" + infoStyle.Render(help) + helpStyle.Render("\n  press any key to return")
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Run starts the TUI and closes the viewer once it exits.
func Run(ctx context.Context, b Backend, opts Options) error {
	p := tea.NewProgram(New(ctx, b, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	b.CloseViewer(context.WithoutCancel(ctx))
	return err
}
