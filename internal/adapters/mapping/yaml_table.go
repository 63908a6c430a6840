// Package mapping persists flat string→string lookup tables as YAML files.
package mapping

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Table is a YAML-backed dictionary safe for concurrent use. Reads are served
// from memory; Save rewrites the whole file atomically.
type Table struct {
	path    string
	mu      sync.RWMutex
	entries map[string]string
	saveMu  sync.Mutex
}

// LoadTable reads path. A missing file yields an empty table that Save will
// create; a malformed file is an error.
func LoadTable(path string) (*Table, error) {
	t := &Table{path: path, entries: make(map[string]string)}
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping table %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse mapping table %s: %w", path, err)
	}
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" || v == nil {
			continue
		}
		t.entries[key] = strings.TrimSpace(fmt.Sprint(v))
	}
	return t, nil
}

// NewTable builds an in-memory table, mainly for tests. Save is a no-op when
// path is empty.
func NewTable(path string, entries map[string]string) *Table {
	t := &Table{path: path, entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

// Path returns the backing file path.
func (t *Table) Path() string {
	return t.path
}

// Get looks up key.
func (t *Table) Get(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[key]
	return v, ok
}

// Set stores key in memory only.
func (t *Table) Set(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = value
}

// Keys returns all keys sorted.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Save writes the table to disk through a temp file and rename.
func (t *Table) Save() error {
	if t.path == "" {
		return nil
	}

	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.RLock()
	snapshot := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		snapshot[k] = v
	}
	t.mu.RUnlock()

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode mapping table: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create mapping directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp mapping file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write mapping table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close mapping table: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("failed to replace mapping table: %w", err)
	}
	return nil
}
