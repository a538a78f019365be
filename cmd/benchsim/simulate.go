package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joss/benchsim/internal/config"
	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/message"
	"github.com/joss/benchsim/internal/render"
	"github.com/joss/benchsim/internal/runtime"
	"github.com/joss/benchsim/internal/tui"
	"github.com/joss/benchsim/internal/viewer"
)

func simulateCmd() *cobra.Command {
	var flags targetFlags
	var size sizeFlags
	var detach bool

	cmd := &cobra.Command{
		Use:   "simulate [folder]",
		Short: "Compile, simulate and open the waveform in GTKWave",
		Long: `Run the full pipeline for a project:

  1. compile the sources and testbench with Icarus Verilog
  2. run the compiled simulation with vvp
  3. pick the .vcd dump the run wrote
  4. write a GTKWave save file with the testbench signals
  5. open GTKWave, restarting it if it is already open

Without --detach the command waits until GTKWave is closed; Ctrl+C closes
GTKWave and exits. Folder, mode and testbench default to the last run.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mgr := runtime.Global()
			stop := mgr.ListenForSignals()
			defer stop()

			ctx := mgr.Context()
			t := flags.target(args)
			d := dispatcher(ctx)

			res := orch.RunSimulation(ctx, size.size(), t)
			d.Dispatch(res, orch.Resolve(ctx, t).Folder)
			if !res.Success {
				exit(1)
			}
			if detach {
				return
			}

			mgr.Register("viewer", func(ctx context.Context) error {
				d.Dispatch(orch.CloseViewer(ctx), "")
				return nil
			})
			if waitForViewer(mgr, d) {
				exit(mgr.ExitCode())
			}
		},
	}

	flags.bind(cmd, true)
	size.bind(cmd)
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "Leave GTKWave running and return immediately")
	return cmd
}

// waitForViewer blocks until the viewer exits or shutdown completes. It
// reports whether a signal ended the wait.
func waitForViewer(mgr *runtime.ShutdownManager, d *render.Dispatcher) bool {
	tr := orch.Translator(context.Background())
	render.Stdout().Empty("Waiting for GTKWave to close (Ctrl+C closes it)...")

	events := orch.Session().Events()
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case viewer.EventOutput:
				if config.Env().Debug {
					render.Stdout().Empty("gtkwave │ " + ev.Line)
				}
			case viewer.EventExited:
				d.Handle(message.Log(tr.T(i18n.ViewerExited, ev.ExitCode)))
				return false
			}
		case <-mgr.Done():
			if err := mgr.Err(); err != nil {
				log.Warn("shutdown_errors", nil, err)
			}
			return true
		}
	}
}

func tuiCmd() *cobra.Command {
	var flags targetFlags
	var size sizeFlags

	cmd := &cobra.Command{
		Use:   "tui [folder]",
		Short: "Launch the interactive terminal UI",
		Long:  "Start the Bubble Tea interface: pick a testbench, run, validate and close GTKWave from one screen.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				exitOnError("no_tty", fmt.Errorf("tui needs an interactive terminal, use 'benchsim simulate' instead"))
			}

			opts := tui.Options{
				Target: flags.target(args),
				Size:   size.size(),
			}
			if store != nil {
				opts.Recent = store.Recent
			}

			if err := tui.Run(context.Background(), orch, opts); err != nil {
				exitOnError("tui_failed", err)
			}
		},
	}

	flags.bind(cmd, true)
	size.bind(cmd)
	return cmd
}
