// Package render prints command output: headers, aligned fields, file
// lists and the message dispatcher.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	bstrings "github.com/joss/benchsim/internal/strings"
)

// Writer wraps an io.Writer with formatting utilities.
type Writer struct {
	out io.Writer
}

// NewWriter creates a Writer that writes to the given io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// Stdout returns a Writer that writes to os.Stdout.
func Stdout() *Writer {
	return NewWriter(os.Stdout)
}

// Println writes formatted text with newline.
func (w *Writer) Println(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Line writes a blank line.
func (w *Writer) Line() {
	fmt.Fprintln(w.out)
}

// Header writes a header line.
func (w *Writer) Header(title string, args ...any) {
	if len(args) > 0 {
		title = fmt.Sprintf(title, args...)
	}
	fmt.Fprintln(w.out, color.CyanString(strings.ToUpper(title)))
	fmt.Fprintln(w.out, strings.Repeat("─", 40))
}

// Section writes a section header.
func (w *Writer) Section(title string) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, strings.ToUpper(title)+":")
}

// Item writes an indented item line.
func (w *Writer) Item(format string, args ...any) {
	fmt.Fprintf(w.out, "  "+format+"\n", args...)
}

// fieldWidth fits the longest setting key.
const fieldWidth = 16

// Field writes an aligned "label: value" line.
func (w *Writer) Field(label string, value any) {
	fmt.Fprintf(w.out, "  %-*s %v\n", fieldWidth, label+":", value)
}

// Files writes a section listing paths relative to base. Paths for which
// marked returns true get a "*" in front; an empty list prints "none".
func (w *Writer) Files(title string, paths []string, base string, marked func(string) bool) {
	w.Section(title)
	if len(paths) == 0 {
		w.Empty("  none")
		return
	}
	for _, p := range paths {
		mark := " "
		if marked != nil && marked(p) {
			mark = color.GreenString("*")
		}
		w.Item("%s %s", mark, bstrings.ShortPath(p, base))
	}
}

// Empty writes an empty state message.
func (w *Writer) Empty(msg string) {
	fmt.Fprintln(w.out, color.HiBlackString(msg))
}

// BoolIcon returns icon for boolean.
func BoolIcon(b bool) string {
	if b {
		return color.GreenString("✓")
	}
	return color.RedString("✗")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 100

// Width returns the terminal width of w, or DefaultWidth.
func Width(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
			return cols
		}
	}
	return DefaultWidth
}

// ConfigureColor disables color when asked or when stdout is not a terminal.
func ConfigureColor(noColor bool) {
	if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}
