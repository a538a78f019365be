package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joss/benchsim/internal/gtkw"
	"github.com/joss/benchsim/internal/project"
	"github.com/joss/benchsim/internal/render"
	"github.com/joss/benchsim/internal/sim"
)

// exitOnError logs err and prints it, then exits.
func exitOnError(event string, err error) {
	log.Error(event, nil, err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	teardown()
	os.Exit(1)
}

// exit closes the store and log before leaving with code.
func exit(code int) {
	teardown()
	os.Exit(code)
}

// requireStore exits when the settings database could not be opened.
func requireStore() {
	if store == nil {
		exitOnError("store_unavailable", fmt.Errorf("settings database unavailable, see 'benchsim doctor'"))
	}
}

// targetFlags are shared by every command that acts on a project.
type targetFlags struct {
	mode      string
	testbench string
}

func (f *targetFlags) bind(cmd *cobra.Command, withTestbench bool) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Project mode: auto, icestudio or generic (default: last used)")
	if withTestbench {
		cmd.Flags().StringVarP(&f.testbench, "tb", "t", "", "Testbench file (default: last used, then main_tb.v)")
	}
}

// target builds the requested target. The folder comes from the optional
// positional argument; empty fields fall back to the last-used values.
func (f *targetFlags) target(args []string) sim.Target {
	var t sim.Target
	if len(args) > 0 {
		t.Folder = absPath(args[0])
	}
	if f.mode != "" {
		mode, err := project.ParseMode(f.mode)
		if err != nil {
			exitOnError("bad_mode", err)
		}
		t.Mode = mode
	}
	if f.testbench != "" {
		t.Testbench = absPath(f.testbench)
	}
	return t
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// dispatcher prints results in the configured language.
func dispatcher(ctx context.Context) *render.Dispatcher {
	return render.NewDispatcher(os.Stdout, orch.Translator(ctx))
}

// sizeFlags set the viewer window size.
type sizeFlags struct {
	width  int
	height int
}

func (f *sizeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.width, "width", gtkw.DefaultSize.Width, "GTKWave window width in pixels")
	cmd.Flags().IntVar(&f.height, "height", gtkw.DefaultSize.Height, "GTKWave window height in pixels")
}

func (f *sizeFlags) size() gtkw.Size {
	s := gtkw.Size{Width: f.width, Height: f.height}
	if s.Width <= 0 || s.Height <= 0 {
		return gtkw.DefaultSize
	}
	return s
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
