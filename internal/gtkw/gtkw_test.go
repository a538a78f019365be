package gtkw

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/benchsim/internal/vcd"
)

const dump = `$timescale 1ns $end
$scope module blink_tb $end
$var reg 1 ! clk $end
$var wire 1 " led $end
$var reg 1 # rst $end
$var integer 32 $ DURATION $end
$scope module dut $end
$var wire 1 % clk $end
$var wire 8 & v0a1b2c3 [7:0] $end
$upscope $end
$upscope $end
$scope module glbl $end
$var reg 1 ' GSR $end
$upscope $end
$enddefinitions $end
#0
`

func vars(names ...string) []vcd.Var {
	var out []vcd.Var
	for _, n := range names {
		typ, name, _ := strings.Cut(n, " ")
		out = append(out, vcd.Var{Type: typ, Size: 1, Name: name})
	}
	return out
}

func TestSelectScopedToTop(t *testing.T) {
	sel := Select(vars("reg tb.clk", "wire tb.dut.q", "reg other.x", "wire tb.a"), "tb")

	assert.Equal(t, []string{"tb.clk"}, sel.Regs)
	assert.Equal(t, []string{"tb.a", "tb.dut.q"}, sel.Wires)
}

func TestSelectUnknownTopFallsBackToAll(t *testing.T) {
	sel := Select(vars("reg tb.clk", "wire other.y"), "missing")

	assert.Equal(t, []string{"tb.clk"}, sel.Regs)
	assert.Equal(t, []string{"other.y"}, sel.Wires)
}

func TestSelectNoTop(t *testing.T) {
	sel := Select(vars("reg b.x", "reg a.x"), "")
	assert.Equal(t, []string{"a.x", "b.x"}, sel.Regs)
	assert.Empty(t, sel.Wires)
}

func TestSelectUnclassifiedLastResort(t *testing.T) {
	sel := Select(vars("integer tb.i", "real tb.r", "parameter tb.P"), "tb")

	assert.Empty(t, sel.Regs)
	assert.Equal(t, []string{"tb.P", "tb.i", "tb.r"}, sel.Wires)
}

func TestSelectExcludesInternalNames(t *testing.T) {
	sel := Select(vars(
		"wire tb.v1234abcd",
		"wire tb.dut.w12",
		"reg tb.VINIT",
		"reg tb.DURATION",
		"wire tb.ok",
	), "tb")

	assert.Empty(t, sel.Regs)
	assert.Equal(t, []string{"tb.ok"}, sel.Wires)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "blink_tb.vcd")
	outPath := filepath.Join(dir, "simulation.gtkw")
	require.NoError(t, os.WriteFile(dumpPath, []byte(dump), 0644))

	require.NoError(t, Generate(dumpPath, outPath, Size{Width: 1920, Height: 1080}, "blink_tb"))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, `[dumpfile] "blink_tb.vcd"
[size] 1920 1080
blink_tb.clk
blink_tb.rst
blink_tb.dut.clk
blink_tb.led
`, string(data))
}

func TestGenerateMissingDump(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "simulation.gtkw")

	err := Generate(filepath.Join(dir, "none.vcd"), outPath, DefaultSize, "")

	assert.ErrorIs(t, err, ErrDumpNotFound)
	assert.NoFileExists(t, outPath)
}

func TestGenerateUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "a.vcd")
	require.NoError(t, os.WriteFile(dumpPath, []byte(dump), 0644))

	err := Generate(dumpPath, filepath.Join(dir, "no", "such", "dir.gtkw"), DefaultSize, "")
	assert.Error(t, err)
}
