// Package backup exports and restores the settings database as a
// gzipped tarball of JSON documents.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joss/benchsim/internal/settings"
	"github.com/joss/benchsim/internal/store"
)

// Section names one part of the settings database.
type Section string

const (
	SectionSettings Section = "settings"
	SectionRecent   Section = "recent"
	SectionRuns     Section = "runs"
	SectionAll      Section = "all"
)

// Sections lists every concrete section in export order.
var Sections = []Section{SectionSettings, SectionRecent, SectionRuns}

// ParseSection validates a section name.
func ParseSection(s string) (Section, error) {
	sec := Section(s)
	if sec == SectionAll || contains(Sections, sec) {
		return sec, nil
	}
	return "", fmt.Errorf("unknown section %q (want settings, recent, runs or all)", s)
}

// Metadata describes a backup archive.
type Metadata struct {
	Version     string         `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	Description string         `json:"description,omitempty"`
	Sections    []Section      `json:"sections"`
	Counts      map[string]int `json:"counts"`
}

const (
	formatVersion = "1"
	metadataFile  = "metadata.json"
)

// Manager handles backup operations against one settings store.
type Manager struct {
	st  *settings.Store
	now func() time.Time
}

// NewManager creates a backup manager.
func NewManager(st *settings.Store) *Manager {
	return &Manager{st: st, now: time.Now}
}

func expand(sections []Section) []Section {
	if len(sections) == 0 || contains(sections, SectionAll) {
		return Sections
	}
	return sections
}

// Export writes the requested sections to outputPath.
func (m *Manager) Export(ctx context.Context, sections []Section, outputPath, description string) (*Metadata, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	defer file.Close()

	gzw := gzip.NewWriter(file)
	tw := tar.NewWriter(gzw)

	meta := &Metadata{
		Version:     formatVersion,
		CreatedAt:   m.now().UTC(),
		Description: description,
		Sections:    expand(sections),
		Counts:      make(map[string]int),
	}

	for _, sec := range meta.Sections {
		data, count, err := m.exportSection(ctx, sec)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", sec, err)
		}
		if err := addToTar(tw, string(sec)+".json", data, meta.CreatedAt); err != nil {
			return nil, fmt.Errorf("adding %s to tar: %w", sec, err)
		}
		meta.Counts[string(sec)] = count
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := addToTar(tw, metadataFile, metaJSON, meta.CreatedAt); err != nil {
		return nil, fmt.Errorf("adding metadata: %w", err)
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, err
	}
	return meta, file.Close()
}

// Import restores sections from inputPath. Without merge each restored
// section replaces the current contents; with merge it is added to them.
func (m *Manager) Import(ctx context.Context, inputPath string, sections []Section, merge bool) (*Metadata, error) {
	meta, files, err := readArchive(inputPath)
	if err != nil {
		return nil, err
	}

	restore := meta.Sections
	if len(sections) > 0 && !contains(sections, SectionAll) {
		restore = sections
	}

	for _, sec := range restore {
		data, ok := files[string(sec)+".json"]
		if !ok {
			continue
		}
		if !merge {
			if err := m.clearSection(ctx, sec); err != nil {
				return nil, fmt.Errorf("clearing %s: %w", sec, err)
			}
		}
		if err := m.importSection(ctx, sec, data); err != nil {
			return nil, fmt.Errorf("importing %s: %w", sec, err)
		}
	}
	return meta, nil
}

// List reads the metadata of a backup without importing it.
func (m *Manager) List(inputPath string) (*Metadata, error) {
	meta, _, err := readArchive(inputPath)
	return meta, err
}

func readArchive(path string) (*Metadata, map[string][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening backup: %w", err)
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	var meta *Metadata
	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading tar: %w", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", header.Name, err)
		}
		if header.Name == metadataFile {
			meta = &Metadata{}
			if err := json.Unmarshal(data, meta); err != nil {
				return nil, nil, fmt.Errorf("parsing metadata: %w", err)
			}
			continue
		}
		files[header.Name] = data
	}

	if meta == nil {
		return nil, nil, fmt.Errorf("backup missing metadata")
	}
	return meta, files, nil
}

func (m *Manager) exportSection(ctx context.Context, sec Section) ([]byte, int, error) {
	var v any
	var n int
	switch sec {
	case SectionSettings:
		s, err := m.st.Load(ctx)
		if err != nil {
			return nil, 0, err
		}
		values := make(map[string]string, len(settings.Keys))
		for _, k := range settings.Keys {
			values[string(k)] = s.Value(k)
		}
		v, n = values, len(values)
	case SectionRecent:
		folders, err := m.st.Recent(ctx)
		if err != nil {
			return nil, 0, err
		}
		if folders == nil {
			folders = []string{}
		}
		v, n = folders, len(folders)
	case SectionRuns:
		runs, err := m.st.Runs().List(ctx, store.Filter{})
		if err != nil {
			return nil, 0, err
		}
		if runs == nil {
			runs = []*settings.Run{}
		}
		v, n = runs, len(runs)
	default:
		return nil, 0, fmt.Errorf("unknown section: %s", sec)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	return data, n, err
}

func (m *Manager) importSection(ctx context.Context, sec Section, data []byte) error {
	switch sec {
	case SectionSettings:
		var values map[string]string
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		updates := make(map[settings.Key]string, len(values))
		for name, v := range values {
			k, err := settings.ParseKey(name)
			if err != nil {
				continue
			}
			updates[k] = v
		}
		return m.st.Update(ctx, updates)

	case SectionRecent:
		var folders []string
		if err := json.Unmarshal(data, &folders); err != nil {
			return err
		}
		// Oldest first so the newest ends up at the front.
		for i := len(folders) - 1; i >= 0; i-- {
			if err := m.st.PushRecent(ctx, folders[i]); err != nil {
				return err
			}
		}
		return nil

	case SectionRuns:
		var runs []settings.Run
		if err := json.Unmarshal(data, &runs); err != nil {
			return err
		}
		r := m.st.Runs()
		for _, run := range runs {
			if _, err := r.Get(ctx, run.ID); err == nil {
				continue
			} else if !store.IsNotFound(err) {
				return err
			}
			if err := r.Add(ctx, run); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown section: %s", sec)
}

func (m *Manager) clearSection(ctx context.Context, sec Section) error {
	switch sec {
	case SectionRecent:
		return m.st.ClearRecent(ctx)
	case SectionRuns:
		return m.st.Runs().Clear(ctx)
	}
	// Settings are overwritten key by key.
	return nil
}

func addToTar(tw *tar.Writer, name string, data []byte, mod time.Time) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: mod,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

func contains(sections []Section, s Section) bool {
	for _, sec := range sections {
		if sec == s {
			return true
		}
	}
	return false
}
