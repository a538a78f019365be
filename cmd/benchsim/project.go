package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/message"
	"github.com/joss/benchsim/internal/project"
	"github.com/joss/benchsim/internal/render"
	bstrings "github.com/joss/benchsim/internal/strings"
)

func discoverCmd() *cobra.Command {
	var flags targetFlags

	cmd := &cobra.Command{
		Use:   "discover [folder]",
		Short: "List the testbenches and sources of a project",
		Long: `Scan a project folder the same way a simulation does.

The root folder is scanned without recursion. In icestudio mode (detected
when an ice-build directory exists) the ice-build tree is searched too.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			t := orch.Resolve(ctx, flags.target(args))
			d := dispatcher(ctx)
			tr := orch.Translator(ctx)

			if !isDir(t.Folder) {
				r := message.OK()
				d.Dispatch(r.Fail(message.Error(tr.T(i18n.FolderInvalid))), "")
				exit(1)
			}
			scope, err := project.Discover(t.Folder, t.Mode)
			if err != nil {
				exitOnError("discover_failed", err)
			}

			w := render.Stdout()
			w.Header("project")
			w.Field("Folder", scope.Folder)
			w.Field("Mode", scope.Mode)

			w.Files("testbenches", scope.Testbenches, scope.Folder, func(tb string) bool {
				return tb == scope.Preferred
			})
			var sources []string
			for _, src := range scope.Sources {
				if !project.IsTestbench(src) {
					sources = append(sources, src)
				}
			}
			w.Files("sources", sources, scope.Folder, nil)
			w.Line()

			d.Handle(message.Log(tr.T(i18n.ProjectLoaded, scope.Mode, len(scope.Testbenches), len(scope.Sources))))
		},
	}

	flags.bind(cmd, false)
	return cmd
}

func validateCmd() *cobra.Command {
	var flags targetFlags
	var noTools bool

	cmd := &cobra.Command{
		Use:   "validate [folder]",
		Short: "Check a project and the toolchain without running anything",
		Long: `Build the compile plan for a project and print it.

Validation stops at the first problem, which is reported as a single error.
Exit status is 1 when the project cannot be simulated.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			t := flags.target(args)
			d := dispatcher(ctx)

			res, plan := orch.BuildPlan(ctx, t, !noTools)
			d.Dispatch(res, t.Folder)
			if plan == nil {
				exit(1)
			}

			w := render.Stdout()
			w.Header("compile plan")
			w.Field("Folder", plan.Folder)
			w.Field("Mode", plan.Mode)
			w.Field("Testbench", orNone(bstrings.ShortPath(plan.Testbench, plan.Folder)))
			if !noTools {
				w.Field("Compiler", plan.Tools.Compiler)
				w.Field("Viewer", plan.Tools.Viewer)
			}
			w.Files("files", plan.CompileFiles, plan.Folder, func(f string) bool {
				return f == plan.Testbench
			})
			w.Line()

			tr := orch.Translator(ctx)
			d.Handle(message.New(message.LevelSuccess, tr.T(i18n.ValidationSuccess,
				plan.Mode, filepath.Base(plan.Testbench), len(plan.CompileFiles))))
		},
	}

	flags.bind(cmd, true)
	cmd.Flags().BoolVar(&noTools, "no-tools", false, "Skip the Icarus Verilog and GTKWave path checks")
	return cmd
}

func orNone(s string) string {
	if s == "" || s == "." {
		return "(none)"
	}
	return s
}
