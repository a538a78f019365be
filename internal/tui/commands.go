package tui

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joss/benchsim/internal/gtkw"
	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/message"
	"github.com/joss/benchsim/internal/project"
	"github.com/joss/benchsim/internal/sim"
	"github.com/joss/benchsim/internal/viewer"
)

type op int

const (
	opScan op = iota
	opRun
	opValidate
	opClose
)

func (o op) String() string {
	switch o {
	case opRun:
		return "Simulating"
	case opValidate:
		return "Validating"
	case opClose:
		return "Closing viewer"
	default:
		return "Scanning project"
	}
}

// Message types
type scopeMsg struct {
	target sim.Target
	scope  *project.Scope
	res    message.Result
}

type resultMsg struct {
	op     op
	folder string
	res    message.Result
}

type recentMsg struct {
	folders []string
	err     error
}

type viewerEventMsg viewer.Event

// scanCmd resolves t against the stored defaults and lists its testbenches.
func scanCmd(ctx context.Context, b Backend, tr *i18n.Translator, t sim.Target) tea.Cmd {
	return func() tea.Msg {
		t = b.Resolve(ctx, t)
		msg := scopeMsg{target: t, res: message.OK()}
		if !isDir(t.Folder) {
			msg.res.Fail(message.Error(tr.T(i18n.FolderInvalid)))
			return msg
		}
		scope, err := project.Discover(t.Folder, t.Mode)
		if err != nil {
			msg.res.Fail(message.Error(tr.T(i18n.FolderInvalid)))
			return msg
		}
		msg.scope = scope
		msg.res.Add(message.Log(tr.T(i18n.ProjectLoaded, scope.Mode, len(scope.Testbenches), len(scope.Sources))))
		return msg
	}
}

func runCmd(ctx context.Context, b Backend, size gtkw.Size, t sim.Target) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{op: opRun, folder: t.Folder, res: b.RunSimulation(ctx, size, t)}
	}
}

func validateCmd(ctx context.Context, b Backend, tr *i18n.Translator, t sim.Target) tea.Cmd {
	return func() tea.Msg {
		res, plan := b.BuildPlan(ctx, t, true)
		if plan != nil {
			res.Add(message.New(message.LevelSuccess, tr.T(i18n.ValidationSuccess,
				plan.Mode, filepath.Base(plan.Testbench), len(plan.CompileFiles))))
		}
		return resultMsg{op: opValidate, folder: t.Folder, res: res}
	}
}

func closeCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{op: opClose, res: b.CloseViewer(ctx)}
	}
}

func recentCmd(ctx context.Context, recent RecentFunc) tea.Cmd {
	return func() tea.Msg {
		if recent == nil {
			return recentMsg{}
		}
		folders, err := recent(ctx)
		return recentMsg{folders: folders, err: err}
	}
}

// waitViewerEvent blocks until the viewer session reports something.
func waitViewerEvent(events <-chan viewer.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return viewerEventMsg(ev)
	}
}
