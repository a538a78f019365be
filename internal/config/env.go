// Package config provides centralized configuration management.
// All BENCHSIM_* environment lookups go through Env.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

// BenchEnv holds all BenchSim environment variables.
type BenchEnv struct {
	// Home overrides the BenchSim home directory (BENCHSIM_HOME)
	Home string

	// Lang forces the UI language, e.g. "es" (BENCHSIM_LANG)
	Lang string

	// Debug echoes structured logs to stderr (BENCHSIM_DEBUG)
	Debug bool

	// Compiler overrides the stored iverilog path (BENCHSIM_IVERILOG)
	Compiler string

	// Viewer overrides the stored gtkwave path (BENCHSIM_GTKWAVE)
	Viewer string

	// NoColor disables colored output (NO_COLOR)
	NoColor bool
}

var (
	env     *BenchEnv
	envOnce sync.Once
)

// Env returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Env() *BenchEnv {
	envOnce.Do(func() {
		env = &BenchEnv{
			Home:     os.Getenv("BENCHSIM_HOME"),
			Lang:     os.Getenv("BENCHSIM_LANG"),
			Debug:    truthy(os.Getenv("BENCHSIM_DEBUG")),
			Compiler: os.Getenv("BENCHSIM_IVERILOG"),
			Viewer:   os.Getenv("BENCHSIM_GTKWAVE"),
			NoColor:  os.Getenv("NO_COLOR") != "",
		}
	})
	return env
}

// ResetEnv resets the cached environment and paths (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
	pathsOnce = sync.Once{}
	paths = nil
}

func truthy(v string) bool {
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Paths holds standard BenchSim directory paths.
type Paths struct {
	// Home is the BenchSim home directory (~/.benchsim)
	Home string

	// Data is the data directory (~/.benchsim/data)
	Data string

	// Logs is the log directory (~/.benchsim/logs)
	Logs string

	// DB is the settings database (~/.benchsim/data/benchsim.db)
	DB string

	// LegacyConfig lists JSON config files written by the desktop app,
	// in lookup order.
	LegacyConfig []string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		benchHome := Env().Home
		if benchHome == "" {
			benchHome = filepath.Join(home, ".benchsim")
		}

		cfgDir, err := os.UserConfigDir()
		if err != nil {
			cfgDir = filepath.Join(home, ".config")
		}

		data := filepath.Join(benchHome, "data")
		paths = &Paths{
			Home: benchHome,
			Data: data,
			Logs: filepath.Join(benchHome, "logs"),
			DB:   filepath.Join(data, "benchsim.db"),
			LegacyConfig: []string{
				filepath.Join(cfgDir, "BenchSim", "config.json"),
				filepath.Join(cfgDir, "VerilogSimulator", "config.json"),
			},
		}
	})
	return paths
}

// Path returns a path under the BenchSim home directory.
func Path(parts ...string) string {
	p := GetPaths()
	allParts := append([]string{p.Home}, parts...)
	return filepath.Join(allParts...)
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
