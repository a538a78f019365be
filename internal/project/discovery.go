// Package project discovers Verilog sources and testbenches in a project
// folder and turns them into a compile plan.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Mode selects how a project folder is laid out.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeIcestudio Mode = "icestudio"
	ModeGeneric   Mode = "generic"
)

// Layout conventions.
const (
	IceBuildDir     = "ice-build"
	MainTestbench   = "main_tb.v"
	MainSource      = "main.v"
	TestbenchSuffix = "_tb.v"

	sourcePattern    = "*.v"
	testbenchPattern = "*" + TestbenchSuffix
)

// ParseMode validates a mode name. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeIcestudio, ModeGeneric:
		return m, nil
	default:
		return "", fmt.Errorf("unknown project mode %q (want auto, icestudio or generic)", s)
	}
}

// Scope is the result of scanning a project folder. It is recomputed on
// every call and never persisted.
type Scope struct {
	Folder      string // canonical project folder
	Mode        Mode   // never ModeAuto
	Testbenches []string
	Sources     []string
	Preferred   string // empty when no testbench exists
}

// IsTestbench reports whether path follows the testbench naming convention.
func IsTestbench(path string) bool {
	return strings.HasSuffix(filepath.Base(path), TestbenchSuffix)
}

// ResolveMode turns auto into a concrete mode for folder.
func ResolveMode(folder string, mode Mode) Mode {
	if mode == "" || mode == ModeAuto {
		if isDir(filepath.Join(folder, IceBuildDir)) {
			return ModeIcestudio
		}
		return ModeGeneric
	}
	return mode
}

// Discover scans folder for testbenches and sources. The root is scanned
// without recursion; in icestudio mode the ice-build tree is also searched
// recursively. The caller is expected to pass an existing directory.
func Discover(folder string, mode Mode) (*Scope, error) {
	base, err := canonical(folder)
	if err != nil {
		return nil, fmt.Errorf("resolve folder: %w", err)
	}

	scope := &Scope{Folder: base, Mode: ResolveMode(base, mode)}

	tbs := globIn(base, testbenchPattern)
	srcs := globIn(base, sourcePattern)
	if scope.Mode == ModeIcestudio {
		iceBuild := filepath.Join(base, IceBuildDir)
		if isDir(iceBuild) {
			tbs = append(tbs, globIn(iceBuild, "**/"+testbenchPattern)...)
			srcs = append(srcs, globIn(iceBuild, "**/"+sourcePattern)...)
		}
	}

	scope.Testbenches = sortedUnique(tbs)
	scope.Sources = sortedUnique(srcs)

	if main, err := canonical(filepath.Join(base, MainTestbench)); err == nil && contains(scope.Testbenches, main) {
		scope.Preferred = main
	} else if len(scope.Testbenches) > 0 {
		scope.Preferred = scope.Testbenches[0]
	}

	return scope, nil
}

// globIn returns the files under dir matching pattern as absolute paths.
// Unreadable directories are skipped.
func globIn(dir, pattern string) []string {
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return out
}

// canonical resolves path to an absolute path with symlinks and relative
// segments removed. Dangling links keep their absolute, cleaned spelling.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// sortedUnique canonicalizes, deduplicates and sorts paths.
func sortedUnique(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		c, err := canonical(p)
		if err != nil {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// subdirs lists the directories directly under dir, following symlinks.
func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if isDir(p) {
			out = append(out, p)
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func contains(list []string, s string) bool {
	i := sort.SearchStrings(list, s)
	return i < len(list) && list[i] == s
}
