package sim

import (
	"os"
	"path/filepath"
	"runtime"
)

// Artifacts written into the project folder.
const (
	OutputName   = "simulation.out"
	SaveFileName = "simulation.gtkw"

	// vcdMacro stays a bare token: testbenches re-stringify it themselves,
	// e.g. `DUMPSTR(`VCD_OUTPUT).
	vcdMacro = "-DVCD_OUTPUT=simulation"
)

// CompileArgs returns the compiler arguments for files.
func CompileArgs(output string, files []string) []string {
	args := make([]string, 0, len(files)+3)
	args = append(args, "-o", output, vcdMacro)
	return append(args, files...)
}

// SimulatorName is the runtime binary name for this platform.
func SimulatorName() string {
	if runtime.GOOS == "windows" {
		return "vvp.exe"
	}
	return "vvp"
}

// SimulatorPath returns the simulator installed next to compiler, or the
// bare binary name so the OS resolves it through PATH.
func SimulatorPath(compiler string) string {
	name := SimulatorName()
	p := filepath.Join(filepath.Dir(compiler), name)
	if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
		return p
	}
	return name
}
