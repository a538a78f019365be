package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/benchsim/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "benchsim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mkdirs(t *testing.T, names ...string) []string {
	t.Helper()
	base := t.TempDir()
	var out []string
	for _, n := range names {
		p := filepath.Join(base, n)
		require.NoError(t, os.MkdirAll(p, 0755))
		out = append(out, p)
	}
	return out
}

func TestOpenAndPing(t *testing.T) {
	s := openTemp(t)
	assert.NoError(t, s.Ping(context.Background()))
	assert.FileExists(t, s.Path())
}

func TestGetSetDefaults(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	mode, err := s.Get(ctx, KeyMode)
	require.NoError(t, err)
	assert.Equal(t, "auto", mode)

	_, err = s.Get(ctx, KeyCompiler)
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, s.Set(ctx, KeyCompiler, "/usr/bin/iverilog"))
	require.NoError(t, s.Set(ctx, KeyCompiler, "/opt/bin/iverilog"))
	v, err := s.Get(ctx, KeyCompiler)
	require.NoError(t, err)
	assert.Equal(t, "/opt/bin/iverilog", v)
}

func TestLoadAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Update(ctx, map[Key]string{
		KeyFolder:    "/work/blink",
		KeyTestbench: "/work/blink/main_tb.v",
		KeyLanguage:  "es",
	}))

	cfg, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		Folder:    "/work/blink",
		Mode:      "auto",
		Testbench: "/work/blink/main_tb.v",
		Language:  "es",
		Theme:     "dark",
	}, cfg)
	assert.Equal(t, "es", cfg.Value(KeyLanguage))
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("gtkwave_path")
	require.NoError(t, err)
	assert.Equal(t, KeyViewer, k)

	_, err = ParseKey("editor_font")
	assert.ErrorIs(t, err, store.ErrInvalidKey)
}

func TestRecentProjects(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	dirs := mkdirs(t, "a", "b", "c")

	for _, d := range dirs {
		require.NoError(t, s.PushRecent(ctx, d))
	}
	require.NoError(t, s.PushRecent(ctx, dirs[0]))

	recent, err := s.Recent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{dirs[0], dirs[2], dirs[1]}, recent)

	require.NoError(t, s.ClearRecent(ctx))
	recent, err = s.Recent(ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRecentProjectsLimit(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	var names []string
	for i := 0; i < RecentLimit+3; i++ {
		names = append(names, string(rune('a'+i)))
	}
	dirs := mkdirs(t, names...)
	for _, d := range dirs {
		require.NoError(t, s.PushRecent(ctx, d))
	}

	recent, err := s.Recent(ctx)
	require.NoError(t, err)
	require.Len(t, recent, RecentLimit)
	assert.Equal(t, dirs[len(dirs)-1], recent[0])
}

func TestRecentProjectsPrunesMissing(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	dirs := mkdirs(t, "keep", "gone")

	require.NoError(t, s.PushRecent(ctx, dirs[0]))
	require.NoError(t, s.PushRecent(ctx, dirs[1]))
	require.NoError(t, os.RemoveAll(dirs[1]))

	recent, err := s.Recent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{dirs[0]}, recent)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	runs := s.Runs()
	start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, runs.Add(ctx, Run{ID: "01A", Folder: "/p", Mode: "generic", Testbench: "/p/a_tb.v",
		Stage: "viewer", Success: true, StartedAt: start, Duration: 1500 * time.Millisecond}))
	require.NoError(t, runs.Add(ctx, Run{ID: "01B", Folder: "/p", Mode: "generic", Testbench: "/p/a_tb.v",
		Stage: "compile", Success: false, StartedAt: start.Add(time.Minute)}))
	require.NoError(t, runs.Add(ctx, Run{ID: "01C", Folder: "/q", Mode: "icestudio", Testbench: "/q/main_tb.v",
		Stage: "viewer", Success: true, StartedAt: start.Add(2 * time.Minute)}))

	got, err := runs.Get(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, "/p/a_tb.v", got.Testbench)
	assert.True(t, got.Success)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, start.Equal(got.StartedAt))

	_, err = runs.Get(ctx, "nope")
	assert.True(t, store.IsNotFound(err))

	list, err := runs.List(ctx, store.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "01C", list[0].ID)

	list, err = runs.List(ctx, store.DefaultFilter().WithLimit(1).WithOffset(1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "01B", list[0].ID)

	n, err := runs.Count(ctx, store.Filter{}.WithWhere("folder", "/p").WithWhere("success", true))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = runs.List(ctx, store.Filter{}.WithWhere("nope", 1))
	assert.ErrorIs(t, err, store.ErrInvalidKey)

	assert.ErrorIs(t, runs.Add(ctx, Run{}), store.ErrInvalidKey)

	require.NoError(t, runs.Clear(ctx))
	n, err = runs.Count(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportLegacy(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	dirs := mkdirs(t, "old", "new")

	cfgDir := t.TempDir()
	legacy := filepath.Join(cfgDir, "VerilogSimulator", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(legacy), 0755))
	require.NoError(t, os.WriteFile(legacy, []byte(`{
		"verilog_folder": "`+filepath.ToSlash(dirs[1])+`",
		"iverilog_path": "/usr/bin/iverilog",
		"gtkwave_path": "/usr/bin/gtkwave",
		"project_mode": "icestudio",
		"window_geometry": [1, 2],
		"language": 3,
		"recent_projects": ["`+filepath.ToSlash(dirs[1])+`", "`+filepath.ToSlash(dirs[0])+`"]
	}`), 0644))

	paths := []string{filepath.Join(cfgDir, "BenchSim", "config.json"), legacy}

	imported, err := s.ImportLegacyOnce(ctx, paths)
	require.NoError(t, err)
	assert.Equal(t, legacy, imported)

	cfg, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/iverilog", cfg.Compiler)
	assert.Equal(t, "/usr/bin/gtkwave", cfg.Viewer)
	assert.Equal(t, "icestudio", cfg.Mode)
	assert.Equal(t, "en", cfg.Language)

	recent, err := s.Recent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Clean(dirs[1]), filepath.Clean(dirs[0])}, recent)

	// Second call is a no-op even if the user changed settings since.
	require.NoError(t, s.Set(ctx, KeyCompiler, "/custom/iverilog"))
	imported, err = s.ImportLegacyOnce(ctx, paths)
	require.NoError(t, err)
	assert.Empty(t, imported)
	v, _ := s.Get(ctx, KeyCompiler)
	assert.Equal(t, "/custom/iverilog", v)
}

func TestImportLegacyNothingToImport(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	imported, err := s.ImportLegacy(ctx, []string{filepath.Join(t.TempDir(), "missing.json")})
	require.NoError(t, err)
	assert.Empty(t, imported)
}

func TestImportLegacyBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := openTemp(t).ImportLegacy(context.Background(), []string{path})
	assert.Error(t, err)
}
