package sim

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Snapshot maps dump files in a folder to their modification times.
type Snapshot map[string]time.Time

// SnapshotDumps records the *.vcd files directly under folder.
func SnapshotDumps(folder string) Snapshot {
	snap := Snapshot{}
	matches, err := doublestar.Glob(os.DirFS(folder), "*.vcd", doublestar.WithFilesOnly())
	if err != nil {
		return snap
	}
	for _, m := range matches {
		p := filepath.Join(folder, filepath.FromSlash(m))
		if fi, err := os.Stat(p); err == nil {
			snap[p] = fi.ModTime()
		}
	}
	return snap
}

// FindRecentDump picks the dump produced by the last simulator run: the
// newest file that is new or changed since before, else the newest dump
// overall. It returns "" when the folder holds no dump.
func FindRecentDump(folder string, before Snapshot) string {
	current := SnapshotDumps(folder)

	fresh := Snapshot{}
	for p, mtime := range current {
		if prev, ok := before[p]; !ok || mtime.After(prev) {
			fresh[p] = mtime
		}
	}
	if p := newest(fresh); p != "" {
		return p
	}
	return newest(current)
}

// newest returns the most recently modified path; ties go to the
// lexicographically first.
func newest(s Snapshot) string {
	var best string
	var bestTime time.Time
	for p, mtime := range s {
		if best == "" || mtime.After(bestTime) || (mtime.Equal(bestTime) && p < best) {
			best, bestTime = p, mtime
		}
	}
	return best
}

var (
	moduleDecl = regexp.MustCompile(`\bmodule\s+([a-zA-Z_][a-zA-Z0-9_]*)\b`)
	comments   = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)
)

// TopModule returns the first module declared in the testbench source, or
// "" when it cannot be read or declares none.
func TopModule(testbench string) string {
	if testbench == "" {
		return ""
	}
	data, err := os.ReadFile(testbench)
	if err != nil {
		return ""
	}
	m := moduleDecl.FindSubmatch(comments.ReplaceAll(data, nil))
	if m == nil {
		return ""
	}
	return string(m[1])
}
