package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ImportLegacy copies the first existing JSON config from paths into the
// store. It returns the imported file, or "" when none exists. Unknown and
// non-string values are skipped.
func (s *Store) ImportLegacy(ctx context.Context, paths []string) (string, error) {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p, err)
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return "", fmt.Errorf("parse %s: %w", p, err)
		}

		updates := map[Key]string{}
		for _, k := range Keys {
			var v string
			if msg, ok := raw[string(k)]; ok && json.Unmarshal(msg, &v) == nil && v != "" {
				updates[k] = v
			}
		}
		if err := s.Update(ctx, updates); err != nil {
			return "", err
		}

		var recent []string
		if msg, ok := raw["recent_projects"]; ok {
			_ = json.Unmarshal(msg, &recent)
		}
		// Oldest first so the front of the list stays the most recent.
		for i := len(recent) - 1; i >= 0; i-- {
			if err := s.PushRecent(ctx, recent[i]); err != nil {
				return "", err
			}
		}

		if err := s.setRaw(ctx, legacyImportedKey, p); err != nil {
			return "", err
		}
		return p, nil
	}
	return "", nil
}

// ImportLegacyOnce imports legacy settings the first time it is called on a
// database; later calls are no-ops.
func (s *Store) ImportLegacyOnce(ctx context.Context, paths []string) (string, error) {
	if _, err := s.getRaw(ctx, legacyImportedKey); err == nil {
		return "", nil
	}
	imported, err := s.ImportLegacy(ctx, paths)
	if err != nil {
		return "", err
	}
	if imported == "" {
		// Remember that there was nothing to import.
		return "", s.setRaw(ctx, legacyImportedKey, "")
	}
	return imported, nil
}
