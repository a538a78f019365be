// Package main provides the BenchSim CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joss/benchsim/internal/config"
	"github.com/joss/benchsim/internal/exec"
	"github.com/joss/benchsim/internal/logging"
	"github.com/joss/benchsim/internal/render"
	"github.com/joss/benchsim/internal/settings"
	"github.com/joss/benchsim/internal/sim"
)

var (
	version   = "0.1.0"
	noColor   bool
	store     *settings.Store
	orch      *sim.Orchestrator
	logCloser io.Closer
	log       = logging.New("cli")
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "benchsim",
		Short: "Compile, simulate and view Verilog testbenches",
		Long: `BenchSim: one-shot Verilog simulation with Icarus Verilog and GTKWave.

Usage modes:
  benchsim simulate [folder]   Compile, run and open the waveform viewer
  benchsim tui [folder]        Interactive terminal interface
  benchsim <command>           Run a specific command (see below)

Use 'benchsim doctor' to check the toolchain.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardown()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "project", Title: "Project:"},
		&cobra.Group{ID: "simulation", Title: "Simulation:"},
		&cobra.Group{ID: "settings", Title: "Settings:"},
	)

	// Project commands
	discover := discoverCmd()
	discover.GroupID = "project"
	rootCmd.AddCommand(discover)

	validate := validateCmd()
	validate.GroupID = "project"
	rootCmd.AddCommand(validate)

	// Simulation commands
	simulate := simulateCmd()
	simulate.GroupID = "simulation"
	rootCmd.AddCommand(simulate)

	tuiC := tuiCmd()
	tuiC.GroupID = "simulation"
	rootCmd.AddCommand(tuiC)

	history := historyCmd()
	history.GroupID = "simulation"
	rootCmd.AddCommand(history)

	// Settings commands
	cfg := configCmd()
	cfg.GroupID = "settings"
	rootCmd.AddCommand(cfg)

	recent := recentCmd()
	recent.GroupID = "settings"
	rootCmd.AddCommand(recent)

	doctor := doctorCmd()
	doctor.GroupID = "settings"
	rootCmd.AddCommand(doctor)

	// Ungrouped
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup wires logging, colors, the settings store and the orchestrator.
// A missing store is not fatal: commands that need it check requireStore.
func setup(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	env := config.Env()
	paths := config.GetPaths()

	logging.SetDebug(env.Debug)
	if c, err := logging.Setup(paths.Logs, env.Debug); err == nil {
		logCloser = c
	} else {
		fmt.Fprintf(os.Stderr, "Warning: logging to stderr only: %v\n", err)
	}
	render.ConfigureColor(noColor || env.NoColor)

	var opts []sim.Option
	st, err := settings.Open(paths.DB)
	if err != nil {
		log.Warn("settings_open_failed", map[string]interface{}{"path": paths.DB}, err)
	} else {
		store = st
		opts = append(opts, sim.WithSettings(st), sim.WithHistory(st.Runs()))
		if imported, err := st.ImportLegacyOnce(ctx, paths.LegacyConfig); err != nil {
			log.Warn("legacy_import_failed", nil, err)
		} else if imported != "" {
			log.Info("legacy_imported", map[string]interface{}{"path": imported})
		}
	}

	orch = sim.New(exec.NewOSRunner(), opts...)
}

func teardown() {
	if store != nil {
		store.Close()
	}
	if logCloser != nil {
		logCloser.Close()
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show BenchSim version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("benchsim version %s\n", version)
		},
	}
}
