// Package gtkw writes GTKWave save files for a simulation dump.
package gtkw

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joss/benchsim/internal/vcd"
)

// ErrDumpNotFound is returned when the dump file does not exist.
var ErrDumpNotFound = errors.New("dump file not found")

// Size is the viewer window size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize is used when the screen size is unknown.
var DefaultSize = Size{Width: 1280, Height: 800}

// internalName matches identifiers synthesized by the compiler.
var internalName = regexp.MustCompile(`(?i)\.v[a-f0-9]{6,}|\.w\d+|\.vinit`)

const durationSignal = "DURATION"

// Selection is the set of signals shown in the viewer, each sorted.
type Selection struct {
	Regs  []string
	Wires []string
}

// Select picks the signals to display. Signals under "<top>." win when top
// is known; otherwise all regs and wires; failing that, every name.
func Select(vars []vcd.Var, top string) Selection {
	regs := map[string]struct{}{}
	wires := map[string]struct{}{}
	all := map[string]struct{}{}

	for _, v := range vars {
		if strings.Contains(v.Name, durationSignal) || internalName.MatchString(v.Name) {
			continue
		}
		all[v.Name] = struct{}{}
		switch v.Type {
		case "reg":
			regs[v.Name] = struct{}{}
		case "wire":
			wires[v.Name] = struct{}{}
		}
	}

	var sel Selection
	if top != "" {
		prefix := top + "."
		sel.Regs = withPrefix(regs, prefix)
		sel.Wires = withPrefix(wires, prefix)
	}
	if len(sel.Regs) == 0 && len(sel.Wires) == 0 {
		sel.Regs = withPrefix(regs, "")
		sel.Wires = withPrefix(wires, "")
	}
	if len(sel.Regs) == 0 && len(sel.Wires) == 0 {
		sel.Wires = withPrefix(all, "")
	}
	return sel
}

func withPrefix(set map[string]struct{}, prefix string) []string {
	var out []string
	for name := range set {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Render produces the save file text for dumpPath.
func Render(dumpPath string, size Size, sel Selection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[dumpfile] \"%s\"\n", filepath.Base(dumpPath))
	fmt.Fprintf(&sb, "[size] %d %d\n", size.Width, size.Height)
	for _, name := range sel.Regs {
		sb.WriteString(name + "\n")
	}
	for _, name := range sel.Wires {
		sb.WriteString(name + "\n")
	}
	return sb.String()
}

// Generate parses dumpPath and writes a save file to outPath. Nothing is
// written when the dump is missing or unreadable.
func Generate(dumpPath, outPath string, size Size, top string) error {
	if _, err := os.Stat(dumpPath); err != nil {
		if os.IsNotExist(err) {
			return ErrDumpNotFound
		}
		return fmt.Errorf("stat dump: %w", err)
	}

	h, err := vcd.ParseFile(dumpPath)
	if err != nil {
		return fmt.Errorf("parse dump: %w", err)
	}

	text := Render(dumpPath, size, Select(h.Vars, top))
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("write save file: %w", err)
	}
	return nil
}
