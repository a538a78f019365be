// Package sim sequences a simulation run: plan, compile, simulate, locate
// the dump, write the viewer save file and (re)launch the viewer.
package sim

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joss/benchsim/internal/config"
	"github.com/joss/benchsim/internal/exec"
	"github.com/joss/benchsim/internal/gtkw"
	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/logging"
	"github.com/joss/benchsim/internal/message"
	"github.com/joss/benchsim/internal/project"
	"github.com/joss/benchsim/internal/settings"
	"github.com/joss/benchsim/internal/viewer"
)

// Stages recorded in run history.
const (
	StagePlan     = "plan"
	StageCompile  = "compile"
	StageSimulate = "simulate"
	StageDump     = "dump"
	StageSaveFile = "savefile"
	StageViewer   = "viewer"
)

// Settings is the part of the settings store the orchestrator reads and
// updates.
type Settings interface {
	Load(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, updates map[settings.Key]string) error
	PushRecent(ctx context.Context, folder string) error
}

// History records finished runs.
type History interface {
	Add(ctx context.Context, run settings.Run) error
}

// Target selects what to simulate. Empty fields fall back to the last-used
// values in settings.
type Target struct {
	Folder    string
	Mode      project.Mode
	Testbench string
}

// Orchestrator owns the viewer session and runs the pipeline. Calls are
// serialized.
type Orchestrator struct {
	mu       sync.Mutex
	runner   exec.Runner
	session  *viewer.Session
	settings Settings
	history  History
	log      *logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSettings supplies tool paths and preferences, and receives last-used
// updates after successful runs.
func WithSettings(s Settings) Option {
	return func(o *Orchestrator) { o.settings = s }
}

// WithHistory records every run.
func WithHistory(h History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// New creates an orchestrator that runs tools through runner.
func New(runner exec.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:  runner,
		session: viewer.NewSession(runner),
		log:     logging.New("sim"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session exposes the viewer session, e.g. to drain its events.
func (o *Orchestrator) Session() *viewer.Session {
	return o.session
}

func (o *Orchestrator) load(ctx context.Context) settings.Settings {
	var cfg settings.Settings
	if o.settings != nil {
		var err error
		if cfg, err = o.settings.Load(ctx); err != nil {
			o.log.Warn("settings_load_failed", nil, err)
		}
	}
	env := config.Env()
	if env.Compiler != "" {
		cfg.Compiler = env.Compiler
	}
	if env.Viewer != "" {
		cfg.Viewer = env.Viewer
	}
	if env.Lang != "" {
		cfg.Language = env.Lang
	}
	return cfg
}

// Config returns the stored settings with environment overrides applied.
func (o *Orchestrator) Config(ctx context.Context) settings.Settings {
	return o.load(ctx)
}

// Translator returns the translator for the configured language.
func (o *Orchestrator) Translator(ctx context.Context) *i18n.Translator {
	return i18n.New(o.load(ctx).Language)
}

func (t Target) resolve(cfg settings.Settings) Target {
	if strings.TrimSpace(t.Folder) == "" {
		t.Folder = cfg.Folder
	}
	if t.Mode == "" {
		t.Mode, _ = project.ParseMode(cfg.Mode)
	}
	if t.Testbench == "" {
		t.Testbench = cfg.Testbench
	}
	return t
}

// Resolve fills the empty fields of t from the stored last-used target.
func (o *Orchestrator) Resolve(ctx context.Context, t Target) Target {
	return t.resolve(o.load(ctx))
}

// BuildPlan validates t against the configured tools without running
// anything.
func (o *Orchestrator) BuildPlan(ctx context.Context, t Target, requireTools bool) (message.Result, *project.Plan) {
	cfg := o.load(ctx)
	return o.plan(cfg, t.resolve(cfg), requireTools)
}

func (o *Orchestrator) plan(cfg settings.Settings, t Target, requireTools bool) (message.Result, *project.Plan) {
	return project.BuildPlan(project.PlanRequest{
		Folder:       t.Folder,
		Mode:         t.Mode,
		Testbench:    t.Testbench,
		RequireTools: requireTools,
		Tools:        project.Tools{Compiler: cfg.Compiler, Viewer: cfg.Viewer},
		Lang:         i18n.New(cfg.Language),
	})
}

// RunSimulation executes the whole pipeline. The first failing stage ends
// the run; its error is the last message in the result.
func (o *Orchestrator) RunSimulation(ctx context.Context, size gtkw.Size, t Target) message.Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx = logging.WithRunID(ctx, "")
	log := logging.FromContext(ctx, "sim")
	start := time.Now()

	cfg := o.load(ctx)
	t = t.resolve(cfg)
	tr := i18n.New(cfg.Language)

	run := settings.Run{
		ID:        logging.GetRunID(ctx),
		Folder:    t.Folder,
		Mode:      string(t.Mode),
		Testbench: t.Testbench,
		Stage:     StagePlan,
		StartedAt: start,
	}
	res, plan := o.plan(cfg, t, true)
	if plan != nil {
		log = log.WithProject(plan.Folder)
		run.Folder, run.Mode, run.Testbench = plan.Folder, string(plan.Mode), plan.Testbench
		res = o.execute(ctx, log, tr, size, plan, &run)
	}

	run.Success = res.Success
	run.Duration = time.Since(start)
	o.record(ctx, run)
	log.TimedEvent("run_finished", start, map[string]interface{}{"success": res.Success, "stage": run.Stage})

	if res.Success {
		o.remember(ctx, t, plan)
	}
	return res
}

func (o *Orchestrator) execute(ctx context.Context, log *logging.Logger, tr *i18n.Translator, size gtkw.Size, plan *project.Plan, run *settings.Run) message.Result {
	res := message.OK()
	output := filepath.Join(plan.Folder, OutputName)
	saveFile := filepath.Join(plan.Folder, SaveFileName)

	run.Stage = StageCompile
	res.Add(message.Log(tr.T(i18n.Compiling, len(plan.CompileFiles), plan.Mode)))
	stageStart := time.Now()
	_, stderr, err := o.runner.RunSeparate(ctx, plan.Folder, plan.Tools.Compiler, CompileArgs(output, plan.CompileFiles)...)
	log.StageEvent(StageCompile, stageStart, exec.ExitCode(err), err)
	if err != nil {
		detail := failureDetail(stderr, err)
		return res.Fail(message.Error(tr.T(i18n.CompileError, detail)).
			WithAux(message.Aux{Stage: message.StageCompile, Stderr: detail}))
	}

	before := SnapshotDumps(plan.Folder)

	run.Stage = StageSimulate
	res.Add(message.Log(tr.T(i18n.Running)))
	stageStart = time.Now()
	_, stderr, err = o.runner.RunSeparate(ctx, plan.Folder, SimulatorPath(plan.Tools.Compiler), output)
	log.StageEvent(StageSimulate, stageStart, exec.ExitCode(err), err)
	if err != nil {
		detail := failureDetail(stderr, err)
		return res.Fail(message.Error(tr.T(i18n.SimError, detail)).
			WithAux(message.Aux{Stage: message.StageSimulate, Stderr: detail}))
	}

	run.Stage = StageDump
	dump := FindRecentDump(plan.Folder, before)
	if dump == "" {
		return res.Fail(message.Error(tr.T(i18n.NoDump)))
	}

	run.Stage = StageSaveFile
	top := TopModule(plan.Testbench)
	if err := gtkw.Generate(dump, saveFile, size, top); err != nil {
		log.Error("savefile_failed", map[string]interface{}{"dump": dump}, err)
		return res.Fail(message.Error(tr.T(i18n.ConfigError)))
	}
	log.Debug("savefile_written", map[string]interface{}{"dump": dump, "top": top, "path": saveFile})

	run.Stage = StageViewer
	if o.session.Alive() {
		res.Add(message.New(message.LevelSuccess, tr.T(i18n.SimUpdated), message.TagToast))
		res.Add(message.Log(tr.T(i18n.ViewerRestarting)))
		if err := o.session.Terminate(viewer.TerminateGrace); err != nil {
			log.Warn("viewer_stop_failed", nil, err)
		}
	}

	res.Add(message.Log(tr.T(i18n.OpeningViewer, fmt.Sprintf("%q %q", plan.Tools.Viewer, saveFile))))
	if err := o.session.Launch(ctx, plan.Folder, plan.Tools.Viewer, saveFile); err != nil {
		log.Error("viewer_start_failed", nil, err)
		return res.Fail(message.Error(tr.T(i18n.ViewerStartError, err)))
	}
	return res
}

// failureDetail is the text shown for a failed stage: the tool's stderr, or
// the start error when the process never ran.
func failureDetail(stderr []byte, err error) string {
	if len(stderr) == 0 && exec.ExitCode(err) == -1 {
		return err.Error()
	}
	return string(stderr)
}

func (o *Orchestrator) record(ctx context.Context, run settings.Run) {
	if o.history == nil {
		return
	}
	if err := o.history.Add(ctx, run); err != nil {
		o.log.Warn("history_write_failed", map[string]interface{}{"run": run.ID}, err)
	}
}

// remember stores the last-used target after a successful run.
func (o *Orchestrator) remember(ctx context.Context, t Target, plan *project.Plan) {
	if o.settings == nil {
		return
	}
	mode := t.Mode
	if mode == "" {
		mode = project.ModeAuto
	}
	err := o.settings.Update(ctx, map[settings.Key]string{
		settings.KeyFolder:    plan.Folder,
		settings.KeyMode:      string(mode),
		settings.KeyTestbench: plan.Testbench,
	})
	if err == nil {
		err = o.settings.PushRecent(ctx, plan.Folder)
	}
	if err != nil {
		o.log.Warn("settings_update_failed", nil, err)
	}
}

// CloseViewer stops the viewer if one is running. Failures are reported as
// log messages; the result is always successful.
func (o *Orchestrator) CloseViewer(ctx context.Context) message.Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	res := message.OK()
	if !o.session.Alive() {
		return res
	}
	cfg := o.load(ctx)
	tr := i18n.New(cfg.Language)

	res.Add(message.Log(tr.T(i18n.ViewerClosing)))
	viewer.KillByName(ctx, o.runner, cfg.Viewer)

	if err := o.session.Kill(viewer.CloseGrace); err != nil {
		o.log.Warn("viewer_close_failed", nil, err)
		res.Add(message.Log(tr.T(i18n.ViewerCloseError, err)))
		return res
	}
	res.Add(message.Log(tr.T(i18n.ViewerClosed)))
	return res
}
