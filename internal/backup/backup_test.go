package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/benchsim/internal/settings"
	"github.com/joss/benchsim/internal/store"
)

func openStore(t *testing.T) *settings.Store {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "benchsim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *settings.Store) []string {
	t.Helper()
	ctx := context.Background()
	base := t.TempDir()
	a := filepath.Join(base, "alu")
	b := filepath.Join(base, "uart")
	require.NoError(t, os.MkdirAll(a, 0755))
	require.NoError(t, os.MkdirAll(b, 0755))

	require.NoError(t, s.Update(ctx, map[settings.Key]string{
		settings.KeyFolder:   b,
		settings.KeyMode:     "generic",
		settings.KeyCompiler: "/opt/iverilog/bin/iverilog",
	}))
	require.NoError(t, s.PushRecent(ctx, a))
	require.NoError(t, s.PushRecent(ctx, b))

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Runs().Add(ctx, settings.Run{
		ID: "01HRUN0000000000000000000A", Folder: a, Mode: "generic",
		Stage: "viewer", Success: true, StartedAt: started, Duration: 1500 * time.Millisecond,
	}))
	require.NoError(t, s.Runs().Add(ctx, settings.Run{
		ID: "01HRUN0000000000000000000B", Folder: b, Mode: "generic",
		Stage: "compile", StartedAt: started.Add(time.Minute), Duration: 200 * time.Millisecond,
	}))
	return []string{b, a}
}

func TestParseSection(t *testing.T) {
	for _, name := range []string{"settings", "recent", "runs", "all"} {
		sec, err := ParseSection(name)
		require.NoError(t, err)
		assert.Equal(t, Section(name), sec)
	}
	_, err := ParseSection("vectors")
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	assert.True(t, contains(Sections, SectionRuns))
	assert.False(t, contains(Sections, SectionAll))
	assert.False(t, contains(nil, SectionRuns))
}

func TestAddToTar(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, addToTar(tw, "settings.json", []byte(`{"a":"b"}`), time.Now()))
	require.NoError(t, tw.Close())

	tr := tar.NewReader(&buf)
	header, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "settings.json", header.Name)
	assert.Equal(t, int64(9), header.Size)
}

func TestExportImportRoundtrip(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)
	recent := seed(t, src)

	out := filepath.Join(t.TempDir(), "benchsim-backup.tar.gz")
	meta, err := NewManager(src).Export(ctx, []Section{SectionAll}, out, "before reinstall")
	require.NoError(t, err)
	assert.Equal(t, Sections, meta.Sections)
	assert.Equal(t, 2, meta.Counts["recent"])
	assert.Equal(t, 2, meta.Counts["runs"])
	assert.Equal(t, len(settings.Keys), meta.Counts["settings"])

	dst := openStore(t)
	got, err := NewManager(dst).Import(ctx, out, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "before reinstall", got.Description)

	s, err := dst.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, recent[0], s.Folder)
	assert.Equal(t, "generic", s.Mode)
	assert.Equal(t, "/opt/iverilog/bin/iverilog", s.Compiler)

	folders, err := dst.Recent(ctx)
	require.NoError(t, err)
	assert.Equal(t, recent, folders)

	runs, err := dst.Runs().List(ctx, store.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "01HRUN0000000000000000000B", runs[0].ID)
	assert.False(t, runs[0].Success)
	assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)
}

func TestImportMergeSkipsKnownRuns(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seed(t, s)

	out := filepath.Join(t.TempDir(), "runs.tar.gz")
	_, err := NewManager(s).Export(ctx, []Section{SectionRuns}, out, "")
	require.NoError(t, err)

	_, err = NewManager(s).Import(ctx, out, nil, true)
	require.NoError(t, err)

	n, err := s.Runs().Count(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportReplaceClearsSection(t *testing.T) {
	ctx := context.Background()
	empty := openStore(t)
	out := filepath.Join(t.TempDir(), "empty.tar.gz")
	_, err := NewManager(empty).Export(ctx, []Section{SectionRecent, SectionRuns}, out, "")
	require.NoError(t, err)

	s := openStore(t)
	seed(t, s)
	_, err = NewManager(s).Import(ctx, out, []Section{SectionRuns}, false)
	require.NoError(t, err)

	n, err := s.Runs().Count(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	folders, err := s.Recent(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 2, "recent was not selected and stays untouched")
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	out := filepath.Join(t.TempDir(), "settings.tar.gz")
	_, err := NewManager(s).Export(ctx, []Section{SectionSettings}, out, "only settings")
	require.NoError(t, err)

	meta, err := NewManager(s).List(out)
	require.NoError(t, err)
	assert.Equal(t, formatVersion, meta.Version)
	assert.Equal(t, []Section{SectionSettings}, meta.Sections)
	assert.Equal(t, "only settings", meta.Description)
}

func TestListInvalidFile(t *testing.T) {
	_, err := NewManager(nil).List(filepath.Join(t.TempDir(), "missing.tar.gz"))
	assert.Error(t, err)
}

func TestListInvalidGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0644))

	_, err := NewManager(nil).List(path)
	assert.Error(t, err)
}

func TestImportMissingMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nometa.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gzw := gzip.NewWriter(f)
	tw := tar.NewWriter(gzw)
	require.NoError(t, addToTar(tw, "runs.json", []byte("[]"), time.Now()))
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	require.NoError(t, f.Close())

	_, err = NewManager(openStore(t)).Import(context.Background(), path, nil, false)
	assert.ErrorContains(t, err, "missing metadata")
}
