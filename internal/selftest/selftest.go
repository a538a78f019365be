// Package selftest validates the tools and storage a simulation run depends on.
package selftest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/joss/benchsim/internal/exec"
	"github.com/joss/benchsim/internal/settings"
	"github.com/joss/benchsim/internal/sim"
	"github.com/joss/benchsim/internal/store"
)

// Prober is the part of the settings store the check needs.
type Prober interface {
	Ping(ctx context.Context) error
	Path() string
}

// Options configure a check. Compiler and Viewer are the configured paths.
// Store and History are optional.
type Options struct {
	Runner   exec.Runner
	Compiler string
	Viewer   string
	Store    Prober
	History  store.Reader[settings.Run]
}

// versionTimeout bounds each probe that talks to a tool or the database.
const versionTimeout = 5 * time.Second

// Environment describes the simulation environment.
type Environment struct {
	HasTTY          bool
	Compiler        string
	CompilerVersion string
	Simulator       string // resolved path, "" when missing
	Viewer          string
	StorePath       string
	StoreOK         bool
	KillTool        string // resolved path, "" when missing
	LastFailure     *Failure
	Warnings        []string
	Errors          []string
}

// Check performs a complete environment validation.
func Check(ctx context.Context, opts Options) *Environment {
	env := &Environment{
		Compiler: opts.Compiler,
		Viewer:   opts.Viewer,
	}

	env.HasTTY = term.IsTerminal(int(os.Stdin.Fd()))

	env.checkCompiler(ctx, opts.Runner)
	env.checkSimulator(opts.Runner)
	env.checkViewer()
	env.checkStore(ctx, opts.Store)
	env.checkKillTool(opts.Runner)
	env.LastFailure = lastFailure(ctx, opts.History)

	return env
}

func (e *Environment) checkCompiler(ctx context.Context, runner exec.Runner) {
	if e.Compiler == "" {
		e.Errors = append(e.Errors, "Icarus Verilog path is not configured")
		return
	}
	if !isFile(e.Compiler) {
		e.Errors = append(e.Errors, fmt.Sprintf("Icarus Verilog not found at %s", e.Compiler))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	// -V prints the banner even when it complains about missing sources.
	out, _ := runner.Run(ctx, e.Compiler, "-V")
	if line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n"); line != "" {
		e.CompilerVersion = strings.TrimSpace(line)
	} else {
		e.Warnings = append(e.Warnings, "Could not read the Icarus Verilog version")
	}
}

func (e *Environment) checkSimulator(runner exec.Runner) {
	if e.Compiler == "" {
		return
	}
	p := sim.SimulatorPath(e.Compiler)
	if filepath.IsAbs(p) {
		e.Simulator = p
		return
	}
	if found, err := runner.LookPath(p); err == nil {
		e.Simulator = found
		e.Warnings = append(e.Warnings, fmt.Sprintf("%s is not next to the compiler, using %s from PATH", p, found))
		return
	}
	e.Errors = append(e.Errors, fmt.Sprintf("%s not found next to the compiler or on PATH", p))
}

func (e *Environment) checkViewer() {
	switch {
	case e.Viewer == "":
		e.Errors = append(e.Errors, "GTKWave path is not configured")
	case !isFile(e.Viewer):
		e.Errors = append(e.Errors, fmt.Sprintf("GTKWave not found at %s", e.Viewer))
	}
}

func (e *Environment) checkStore(ctx context.Context, st Prober) {
	if st == nil {
		e.Warnings = append(e.Warnings, "Settings store not opened")
		return
	}
	e.StorePath = st.Path()

	if err := st.Ping(ctx); err != nil {
		e.Errors = append(e.Errors, fmt.Sprintf("Settings store unreachable: %v", err))
		return
	}
	f, err := os.CreateTemp(filepath.Dir(e.StorePath), ".probe-*")
	if err != nil {
		e.Errors = append(e.Errors, fmt.Sprintf("Settings directory not writable: %v", err))
		return
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	e.StoreOK = true
}

func (e *Environment) checkKillTool(runner exec.Runner) {
	tool := "pkill"
	if runtime.GOOS == "windows" {
		tool = "taskkill"
	}
	if p, err := runner.LookPath(tool); err == nil {
		e.KillTool = p
		return
	}
	e.Warnings = append(e.Warnings, fmt.Sprintf("%s not on PATH, stray viewers may survive a close", tool))
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// IsHealthy returns true if a simulation can run end to end.
func (e *Environment) IsHealthy() bool {
	return len(e.Errors) == 0
}

// Summary returns a human-readable summary.
func (e *Environment) Summary() string {
	var sb strings.Builder

	sb.WriteString("BENCHSIM ENVIRONMENT CHECK\n")
	sb.WriteString(strings.Repeat("─", 40) + "\n")

	ttyStatus := "No (use 'simulate' instead of 'tui')"
	if e.HasTTY {
		ttyStatus = "Yes (interactive mode available)"
	}
	sb.WriteString(fmt.Sprintf("TTY:          %s\n", ttyStatus))

	sb.WriteString(fmt.Sprintf("Compiler:     %s\n", orMissing(e.Compiler)))
	if e.CompilerVersion != "" {
		sb.WriteString(fmt.Sprintf("Version:      %s\n", e.CompilerVersion))
	}
	sb.WriteString(fmt.Sprintf("Simulator:    %s\n", orMissing(e.Simulator)))
	sb.WriteString(fmt.Sprintf("Viewer:       %s\n", orMissing(e.Viewer)))

	storeStatus := "Unavailable"
	if e.StoreOK {
		storeStatus = "OK"
	}
	sb.WriteString(fmt.Sprintf("Settings:     %s %s\n", storeStatus, e.StorePath))
	sb.WriteString(fmt.Sprintf("Kill tool:    %s\n", orMissing(e.KillTool)))
	if f := e.LastFailure; f != nil {
		sb.WriteString(fmt.Sprintf("Last failure: %s stage in %s (%s)\n",
			f.Stage, f.Folder, f.At.Local().Format("2006-01-02 15:04")))
	}

	if len(e.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range e.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", w))
		}
	}

	if len(e.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, err := range e.Errors {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", err))
		}
	}

	sb.WriteString("\n")
	if e.IsHealthy() {
		sb.WriteString("Status: HEALTHY\n")
	} else {
		sb.WriteString("Status: UNHEALTHY - fix errors above\n")
	}

	return sb.String()
}

func orMissing(s string) string {
	if s == "" {
		return "NOT FOUND"
	}
	return s
}

// QuickCheck returns a one-line status suitable for non-verbose output.
func (e *Environment) QuickCheck() string {
	if !e.IsHealthy() {
		return fmt.Sprintf("Environment unhealthy: %s", strings.Join(e.Errors, "; "))
	}

	mode := "batch"
	if e.HasTTY {
		mode = "interactive"
	}

	store := "store:down"
	if e.StoreOK {
		store = "store:up"
	}

	return fmt.Sprintf("tools:ok mode:%s %s", mode, store)
}
