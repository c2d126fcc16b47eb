package taxonomy

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawEntry is the on-disk YAML shape: one canonical kind per file.
type rawEntry struct {
	Kind      string   `yaml:"kind"`
	RawEvents []string `yaml:"raw_events"`
}

// LoadDir builds a Table from *.yaml files in dir, one kind per file.
// Files are loaded once at startup and fingerprinted for change detection
// in logs — no hot reload. A missing directory yields the built-in default
// table (zero overrides configured). Returns the table and the fingerprints
// keyed by kind.
func LoadDir(dir string) (*Table, map[Kind]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return Default(), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("taxonomy dir: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("taxonomy path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading taxonomy dir: %w", err)
	}

	kinds := make(map[Kind][]string)
	fingerprints := make(map[Kind]string)

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading taxonomy file %s: %w", path, err)
		}

		var raw rawEntry
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("parsing taxonomy file %s: %w", path, err)
		}
		if raw.Kind == "" {
			continue // skip empty / comment-only files
		}

		kind := Kind(raw.Kind)
		if !ValidKind(kind) {
			return nil, nil, fmt.Errorf("taxonomy file %s: unknown kind %q", path, raw.Kind)
		}
		if len(raw.RawEvents) == 0 {
			return nil, nil, fmt.Errorf("taxonomy file %s: kind %q lists no raw_events", path, raw.Kind)
		}
		if _, exists := kinds[kind]; exists {
			return nil, nil, fmt.Errorf("taxonomy file %s: duplicate kind %q (check multiple YAML files)", path, raw.Kind)
		}

		kinds[kind] = raw.RawEvents
		fingerprints[kind] = fmt.Sprintf("%x", sha256.Sum256(data))
	}

	if len(kinds) == 0 {
		return Default(), nil, nil
	}

	table, err := New(kinds)
	if err != nil {
		return nil, nil, err
	}
	return table, fingerprints, nil
}
