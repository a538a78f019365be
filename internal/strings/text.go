// Package strings provides text helpers shared by the CLI and TUI.
// Widths are terminal cells, so colored and wide text measure correctly.
package strings

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// Width returns the number of cells s occupies, ignoring escape codes.
func Width(s string) int {
	return ansi.StringWidth(s)
}

// Truncate shortens s to at most n cells, ending in "...".
// n below 4 is raised to 4.
func Truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	return ansi.Truncate(s, n, ellipsis)
}

// TruncatePath shortens a path to at most n cells by dropping leading
// characters, so the folder name stays visible.
func TruncatePath(p string, n int) string {
	if n < 4 {
		n = 4
	}
	if ansi.StringWidth(p) <= n {
		return p
	}
	runes := []rune(p)
	keep := n - len(ellipsis)
	width := 0
	i := len(runes)
	for i > 0 {
		w := ansi.StringWidth(string(runes[i-1]))
		if width+w > keep {
			break
		}
		width += w
		i--
	}
	return ellipsis + string(runes[i:])
}

// WordWrap wraps s at width cells, breaking on spaces and splitting words
// longer than a line. Existing newlines are kept.
func WordWrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wrap(s, width, "")
}

// ShortPath renders path relative to base when it lies inside it.
func ShortPath(path, base string) string {
	if base == "" {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
