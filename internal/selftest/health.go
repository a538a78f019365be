package selftest

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/joss/benchsim/internal/settings"
	"github.com/joss/benchsim/internal/sim"
	"github.com/joss/benchsim/internal/store"
)

// State is the health of one component.
type State string

const (
	StateOK       State = "ok"
	StateDegraded State = "degraded"
	StateError    State = "error"
)

// Overall report status.
const (
	Healthy   = "healthy"
	Degraded  = "degraded"
	Unhealthy = "unhealthy"
)

// Component is the health of one dependency.
type Component struct {
	State   State  `json:"status"`
	Latency int64  `json:"latency_ms,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failure is the most recent failed run.
type Failure struct {
	Run    string    `json:"run"`
	Folder string    `json:"folder"`
	Stage  string    `json:"stage"`
	At     time.Time `json:"at"`
}

// Report is the machine-readable result of CheckHealth.
type Report struct {
	Status      string               `json:"status"`
	Components  map[string]Component `json:"components"`
	LastFailure *Failure             `json:"last_failure,omitempty"`
	ElapsedMS   int64                `json:"elapsed_ms"`
	Timestamp   string               `json:"timestamp"`
}

// CheckHealth probes each component concurrently and times it.
func CheckHealth(ctx context.Context, opts Options) *Report {
	start := time.Now()
	report := &Report{
		Status:     Healthy,
		Components: make(map[string]Component),
		Timestamp:  start.UTC().Format(time.RFC3339),
	}

	checks := map[string]func(context.Context) Component{
		"compiler":  func(ctx context.Context) Component { return checkCompiler(ctx, opts) },
		"simulator": func(context.Context) Component { return checkSimulator(opts) },
		"viewer":    func(context.Context) Component { return checkViewer(opts) },
		"settings":  func(ctx context.Context) Component { return checkSettings(ctx, opts) },
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check func(context.Context) Component) {
			defer wg.Done()
			c := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			report.Components[name] = c
			switch {
			case c.State == StateError:
				report.Status = Unhealthy
			case c.State == StateDegraded && report.Status == Healthy:
				report.Status = Degraded
			}
		}(name, check)
	}
	wg.Wait()

	report.LastFailure = lastFailure(ctx, opts.History)
	report.ElapsedMS = time.Since(start).Milliseconds()
	return report
}

// WriteJSON encodes the report, indented, to w.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// lastFailure returns the newest failed run, or nil when there is none or
// the history cannot be read.
func lastFailure(ctx context.Context, history store.Reader[settings.Run]) *Failure {
	if history == nil {
		return nil
	}
	runs, err := history.List(ctx, store.DefaultFilter().WithLimit(1).WithWhere("success", false))
	if err != nil || len(runs) == 0 {
		return nil
	}
	r := runs[0]
	return &Failure{Run: r.ID, Folder: r.Folder, Stage: r.Stage, At: r.StartedAt}
}

func checkCompiler(ctx context.Context, opts Options) Component {
	start := time.Now()
	if opts.Compiler == "" {
		return Component{State: StateError, Error: "not configured"}
	}
	if !isFile(opts.Compiler) {
		return Component{State: StateError, Path: opts.Compiler, Error: "not a file"}
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, _ := opts.Runner.Run(ctx, opts.Compiler, "-V")
	latency := time.Since(start).Milliseconds()
	if len(out) == 0 {
		return Component{State: StateDegraded, Latency: latency, Path: opts.Compiler, Error: "no version banner"}
	}
	return Component{State: StateOK, Latency: latency, Path: opts.Compiler}
}

func checkSimulator(opts Options) Component {
	if opts.Compiler == "" {
		return Component{State: StateError, Error: "compiler not configured"}
	}
	p := sim.SimulatorPath(opts.Compiler)
	if isFile(p) {
		return Component{State: StateOK, Path: p}
	}
	if found, err := opts.Runner.LookPath(p); err == nil {
		return Component{State: StateDegraded, Path: found, Error: "resolved through PATH"}
	}
	return Component{State: StateError, Path: p, Error: "not found"}
}

func checkViewer(opts Options) Component {
	switch {
	case opts.Viewer == "":
		return Component{State: StateError, Error: "not configured"}
	case !isFile(opts.Viewer):
		return Component{State: StateError, Path: opts.Viewer, Error: "not a file"}
	}
	return Component{State: StateOK, Path: opts.Viewer}
}

// slowStore marks a reachable database as degraded.
const slowStore = 100 * time.Millisecond

func checkSettings(ctx context.Context, opts Options) Component {
	if opts.Store == nil {
		return Component{State: StateDegraded, Error: "not opened"}
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	err := opts.Store.Ping(ctx)
	elapsed := time.Since(start)
	c := Component{State: StateOK, Latency: elapsed.Milliseconds(), Path: opts.Store.Path()}
	switch {
	case err != nil:
		c.State, c.Error = StateError, err.Error()
	case elapsed > slowStore:
		c.State = StateDegraded
	}
	return c
}
