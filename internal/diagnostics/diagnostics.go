// Package diagnostics extracts file:line[:col] problems from tool stderr.
package diagnostics

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joss/benchsim/internal/message"
)

var problemLine = regexp.MustCompile(`^(?P<file>(?:[A-Za-z]:)?[^:\n]+):(?P<line>\d+)(?::(?P<col>\d+))?:\s*(?P<msg>.+)$`)

// Problem is one located diagnostic.
type Problem struct {
	File    string // absolute
	Line    int
	Col     int // 1 when the tool gave no column
	Message string
	Stage   message.Stage
}

// Location renders "base.v:line:col".
func (p Problem) Location() string {
	return fmt.Sprintf("%s:%d:%d", filepath.Base(p.File), p.Line, p.Col)
}

func (p Problem) String() string {
	return p.Location() + "  " + p.Message
}

// Parse scans stderr text. Relative file names resolve against folder.
func Parse(stderr, folder string) []Problem {
	var out []Problem
	for _, raw := range strings.Split(stderr, "\n") {
		line := strings.TrimSpace(raw)
		m := problemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		file := strings.Trim(strings.TrimSpace(m[1]), "\"'`")
		if file == "" {
			continue
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(folder, file)
		}
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}

		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		col := 1
		if m[3] != "" {
			if c, err := strconv.Atoi(m[3]); err == nil {
				col = c
			}
		}

		out = append(out, Problem{
			File:    file,
			Line:    n,
			Col:     col,
			Message: strings.TrimSpace(m[4]),
		})
	}
	return out
}

// FromResult collects problems from every message carrying tool stderr.
func FromResult(r message.Result, folder string) []Problem {
	var out []Problem
	for _, aux := range r.Stderr() {
		for _, p := range Parse(aux.Stderr, folder) {
			p.Stage = aux.Stage
			out = append(out, p)
		}
	}
	return out
}
