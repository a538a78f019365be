package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joss/benchsim/internal/backup"
	"github.com/joss/benchsim/internal/config"
	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/project"
	"github.com/joss/benchsim/internal/render"
	"github.com/joss/benchsim/internal/settings"
	bstore "github.com/joss/benchsim/internal/store"
	bstrings "github.com/joss/benchsim/internal/strings"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change persisted settings",
		Long: `Settings live in a SQLite database under ~/.benchsim/data.

BENCHSIM_IVERILOG, BENCHSIM_GTKWAVE and BENCHSIM_LANG override the stored
values for the current process.`,
	}

	// benchsim config show
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print every setting",
		Run: func(cmd *cobra.Command, args []string) {
			requireStore()
			ctx := context.Background()

			stored, err := store.Load(ctx)
			if err != nil {
				exitOnError("config_load_failed", err)
			}
			effective := orch.Config(ctx)

			w := render.Stdout()
			w.Header("settings")
			for _, k := range settings.Keys {
				v := effective.Value(k)
				if v != stored.Value(k) {
					v += " (env)"
				}
				if v == "" {
					v = "-"
				}
				w.Field(string(k), v)
			}
			w.Line()
			w.Field("database", store.Path())
			w.Field("logs", config.GetPaths().Logs)
		},
	}

	// benchsim config set <key> <value>
	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Long: `Change a setting. Keys:

  verilog_folder  project folder used when none is given
  project_mode    auto, icestudio or generic
  selected_tb     testbench used when none is given
  iverilog_path   Icarus Verilog compiler binary
  gtkwave_path    GTKWave binary
  language        en or es
  theme           dark or light`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			requireStore()
			key, err := settings.ParseKey(args[0])
			if err != nil {
				exitOnError("config_bad_key", err)
			}
			value, err := normalizeSetting(key, args[1])
			if err != nil {
				exitOnError("config_bad_value", err)
			}
			if err := store.Set(context.Background(), key, value); err != nil {
				exitOnError("config_set_failed", err)
			}
			log.Info("config_set", map[string]interface{}{"key": string(key)})
			fmt.Printf("%s = %s\n", key, value)
		},
	}

	// benchsim config import-legacy [file...]
	importCmd := &cobra.Command{
		Use:   "import-legacy [file...]",
		Short: "Import the desktop app's JSON settings",
		Long: `Copy settings and recent projects from a JSON config written by the
desktop app. Without arguments the standard locations are searched; the
first file found is imported. Import also runs once automatically.`,
		Run: func(cmd *cobra.Command, args []string) {
			requireStore()
			paths := args
			if len(paths) == 0 {
				paths = config.GetPaths().LegacyConfig
			}
			for i, p := range paths {
				paths[i] = absPath(p)
			}

			imported, err := store.ImportLegacy(context.Background(), paths)
			if err != nil {
				exitOnError("legacy_import_failed", err)
			}
			if imported == "" {
				render.Stdout().Empty("No legacy config found")
				return
			}
			fmt.Printf("Imported %s\n", imported)
		},
	}

	cmd.AddCommand(showCmd, setCmd, importCmd, exportBackupCmd(), restoreBackupCmd(), inspectBackupCmd())
	return cmd
}

func parseSections(names []string) []backup.Section {
	var out []backup.Section
	for _, n := range names {
		sec, err := backup.ParseSection(n)
		if err != nil {
			exitOnError("backup_bad_section", err)
		}
		out = append(out, sec)
	}
	return out
}

func printBackup(meta *backup.Metadata) {
	w := render.Stdout()
	w.Field("Created", meta.CreatedAt.Local().Format("2006-01-02 15:04"))
	if meta.Description != "" {
		w.Field("Note", meta.Description)
	}
	for _, sec := range meta.Sections {
		w.Field(string(sec), meta.Counts[string(sec)])
	}
}

// benchsim config export <file>
func exportBackupCmd() *cobra.Command {
	var sections []string
	var note string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write settings, recent projects and run history to a .tar.gz",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			requireStore()
			meta, err := backup.NewManager(store).Export(context.Background(), parseSections(sections), absPath(args[0]), note)
			if err != nil {
				exitOnError("backup_export_failed", err)
			}
			render.Stdout().Header("exported %s", args[0])
			printBackup(meta)
		},
	}

	cmd.Flags().StringSliceVarP(&sections, "section", "s", []string{"all"}, "Sections: settings, recent, runs or all")
	cmd.Flags().StringVar(&note, "note", "", "Description stored in the archive")
	return cmd
}

// benchsim config import <file>
func restoreBackupCmd() *cobra.Command {
	var sections []string
	var merge bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore an archive written by 'config export'",
		Long: `Restore an archive written by 'config export'.

Each restored section replaces what is stored unless --merge is given.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			requireStore()
			meta, err := backup.NewManager(store).Import(context.Background(), absPath(args[0]), parseSections(sections), merge)
			if err != nil {
				exitOnError("backup_import_failed", err)
			}
			log.Info("backup_imported", map[string]interface{}{"path": args[0], "merge": merge})
			render.Stdout().Header("imported %s", args[0])
			printBackup(meta)
		},
	}

	cmd.Flags().StringSliceVarP(&sections, "section", "s", nil, "Sections to restore (default: all in the archive)")
	cmd.Flags().BoolVar(&merge, "merge", false, "Add to the current data instead of replacing it")
	return cmd
}

// benchsim config inspect <file>
func inspectBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show what an archive contains",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			meta, err := backup.NewManager(store).List(absPath(args[0]))
			if err != nil {
				exitOnError("backup_inspect_failed", err)
			}
			render.Stdout().Header("backup v%s", meta.Version)
			printBackup(meta)
		},
	}
}

// normalizeSetting validates value for key and returns the stored form.
func normalizeSetting(key settings.Key, value string) (string, error) {
	switch key {
	case settings.KeyMode:
		mode, err := project.ParseMode(value)
		return string(mode), err
	case settings.KeyLanguage:
		if i18n.Normalize(value) != value {
			return "", fmt.Errorf("unsupported language %q (want en or es)", value)
		}
	case settings.KeyTheme:
		if value != "dark" && value != "light" {
			return "", fmt.Errorf("unknown theme %q (want dark or light)", value)
		}
	case settings.KeyFolder, settings.KeyTestbench, settings.KeyCompiler, settings.KeyViewer:
		if value != "" {
			value = absPath(value)
		}
	}
	return value, nil
}

func recentCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently simulated projects",
		Run: func(cmd *cobra.Command, args []string) {
			requireStore()
			ctx := context.Background()

			if clear {
				if err := store.ClearRecent(ctx); err != nil {
					exitOnError("recent_clear_failed", err)
				}
				fmt.Println("Recent projects cleared")
				return
			}

			folders, err := store.Recent(ctx)
			if err != nil {
				exitOnError("recent_failed", err)
			}
			w := render.Stdout()
			w.Header("recent projects")
			if len(folders) == 0 {
				w.Empty("No recent projects")
				return
			}
			for i, f := range folders {
				w.Println("%2d. %s", i+1, f)
			}
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Forget every recent project")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	var folder string
	var failed bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent simulation runs",
		Run: func(cmd *cobra.Command, args []string) {
			requireStore()
			ctx := context.Background()
			runs := store.Runs()

			f := bstore.DefaultFilter().WithLimit(limit)
			if folder != "" {
				f = f.WithWhere("folder", absPath(folder))
			}
			if failed {
				f = f.WithWhere("success", false)
			}

			list, err := runs.List(ctx, f)
			if err != nil {
				exitOnError("history_failed", err)
			}
			total, err := runs.Count(ctx, f)
			if err != nil {
				exitOnError("history_failed", err)
			}

			w := render.Stdout()
			w.Header("runs (%d of %d)", len(list), total)
			if len(list) == 0 {
				w.Empty("No runs recorded")
				return
			}
			for _, r := range list {
				tb := "-"
				if r.Testbench != "" {
					tb = filepath.Base(r.Testbench)
				}
				w.Println("%s %s  %-9s %-8s %-14s %6s  %s",
					render.BoolIcon(r.Success),
					r.StartedAt.Local().Format("Jan 02 15:04"),
					r.Mode,
					r.Stage,
					bstrings.Truncate(tb, 14),
					render.FormatDuration(r.Duration),
					r.Folder,
				)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show")
	cmd.Flags().StringVar(&folder, "folder", "", "Only runs of this project folder")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed runs")
	return cmd
}
