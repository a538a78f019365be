package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joss/benchsim/internal/exec"
	"github.com/joss/benchsim/internal/selftest"
)

func doctorCmd() *cobra.Command {
	var verbose bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check Icarus Verilog, GTKWave and the settings store",
		Long: `Check that everything a simulation needs is in place.

Exit status is 1 when a simulation could not run. --json prints a
per-component health report for scripts.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := orch.Config(ctx)

			opts := selftest.Options{
				Runner:   exec.NewOSRunner(),
				Compiler: cfg.Compiler,
				Viewer:   cfg.Viewer,
			}
			// A nil *settings.Store must not become a non-nil interface.
			if store != nil {
				opts.Store = store
				opts.History = store.Runs()
			}

			if asJSON {
				h := selftest.CheckHealth(ctx, opts)
				if err := h.WriteJSON(os.Stdout); err != nil {
					exitOnError("doctor_json_failed", err)
				}
				if h.Status == selftest.Unhealthy {
					exit(1)
				}
				return
			}

			env := selftest.Check(ctx, opts)
			if verbose {
				fmt.Print(env.Summary())
			} else {
				fmt.Println(env.QuickCheck())
			}
			log.Info("doctor", map[string]interface{}{
				"healthy":  env.IsHealthy(),
				"warnings": len(env.Warnings),
			})
			if !env.IsHealthy() {
				exit(1)
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every check")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print a JSON health report")
	return cmd
}
