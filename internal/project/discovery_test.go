package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tempProject creates a canonical temp dir holding the given files.
func tempProject(t *testing.T, files ...string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for _, f := range files {
		writeFile(t, filepath.Join(dir, f), "module x; endmodule\n")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"Icestudio", ModeIcestudio, false},
		{" generic ", ModeGeneric, false},
		{"vivado", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscoverGeneric(t *testing.T) {
	dir := tempProject(t, "alu.v", "adder.v", "alu_tb.v", "adder_tb.v", "sub/nested.v", "notes.txt")

	scope, err := Discover(dir, ModeAuto)
	require.NoError(t, err)

	assert.Equal(t, ModeGeneric, scope.Mode)
	assert.Equal(t, []string{
		filepath.Join(dir, "adder_tb.v"),
		filepath.Join(dir, "alu_tb.v"),
	}, scope.Testbenches)
	// Testbenches match the source glob too; nested files are not scanned.
	assert.Equal(t, []string{
		filepath.Join(dir, "adder.v"),
		filepath.Join(dir, "adder_tb.v"),
		filepath.Join(dir, "alu.v"),
		filepath.Join(dir, "alu_tb.v"),
	}, scope.Sources)
	assert.Equal(t, filepath.Join(dir, "adder_tb.v"), scope.Preferred)
}

func TestDiscoverPrefersMainTestbench(t *testing.T) {
	dir := tempProject(t, "a_tb.v", "b_tb.v", "main_tb.v", "z_tb.v", "main.v")

	scope, err := Discover(dir, ModeGeneric)
	require.NoError(t, err)

	assert.Len(t, scope.Testbenches, 4)
	assert.Equal(t, filepath.Join(dir, MainTestbench), scope.Preferred)
}

func TestDiscoverEmpty(t *testing.T) {
	dir := tempProject(t)

	scope, err := Discover(dir, ModeAuto)
	require.NoError(t, err)

	assert.Equal(t, ModeGeneric, scope.Mode)
	assert.Empty(t, scope.Testbenches)
	assert.Empty(t, scope.Sources)
	assert.Empty(t, scope.Preferred)
}

func TestDiscoverSourcesOnly(t *testing.T) {
	dir := tempProject(t, "top.v", "uart.v")

	scope, err := Discover(dir, ModeAuto)
	require.NoError(t, err)

	assert.Len(t, scope.Sources, 2)
	assert.Empty(t, scope.Testbenches)
	assert.Empty(t, scope.Preferred)
}

func TestDiscoverDeduplicatesSymlinks(t *testing.T) {
	dir := tempProject(t, "core.v", "core_tb.v")
	if err := os.Symlink(filepath.Join(dir, "core.v"), filepath.Join(dir, "alias.v")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "core_tb.v"), filepath.Join(dir, "alias_tb.v")))

	// A second spelling of the same folder must not change the result.
	spelled := filepath.Join(dir, ".", "..", filepath.Base(dir)) + string(filepath.Separator)

	scope, err := Discover(spelled, ModeGeneric)
	require.NoError(t, err)

	assert.Equal(t, dir, scope.Folder)
	assert.Equal(t, []string{filepath.Join(dir, "core_tb.v")}, scope.Testbenches)
	assert.Equal(t, []string{
		filepath.Join(dir, "core.v"),
		filepath.Join(dir, "core_tb.v"),
	}, scope.Sources)
}

func TestDiscoverIcestudio(t *testing.T) {
	dir := tempProject(t,
		"ice-build/blink/main.v",
		"ice-build/blink/main_tb.v",
		"ice-build/blink/lib/prescaler.v",
	)

	scope, err := Discover(dir, ModeAuto)
	require.NoError(t, err)

	assert.Equal(t, ModeIcestudio, scope.Mode)
	assert.Equal(t, []string{filepath.Join(dir, "ice-build/blink/main_tb.v")}, scope.Testbenches)
	assert.Len(t, scope.Sources, 3)
	assert.Contains(t, scope.Sources, filepath.Join(dir, "ice-build/blink/lib/prescaler.v"))
	assert.Equal(t, filepath.Join(dir, "ice-build/blink/main_tb.v"), scope.Preferred)
}

func TestDiscoverForcedGenericIgnoresIceBuild(t *testing.T) {
	dir := tempProject(t, "ice-build/blink/main.v")

	scope, err := Discover(dir, ModeGeneric)
	require.NoError(t, err)

	assert.Equal(t, ModeGeneric, scope.Mode)
	assert.Empty(t, scope.Sources)
}

func TestIsTestbench(t *testing.T) {
	assert.True(t, IsTestbench("/a/b/main_tb.v"))
	assert.False(t, IsTestbench("/a/b/main.v"))
	assert.False(t, IsTestbench("/a/b_tb.v/main.v"))
}
