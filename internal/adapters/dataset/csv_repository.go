// Package dataset reads and rewrites the tabular clinic dataset.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a CSV file held as ordered columns and rows keyed by column name.
// Columns the application does not know about survive a rewrite untouched.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// EnsureColumn appends name to the header if it is missing.
func (t *Table) EnsureColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// CSVRepository owns one CSV file. Writes are serialized.
type CSVRepository struct {
	path string
	mu   sync.Mutex
}

// NewCSVRepository creates a repository for path.
func NewCSVRepository(path string) *CSVRepository {
	return &CSVRepository{path: path}
}

// Path returns the backing file path.
func (r *CSVRepository) Path() string {
	return r.path
}

// Read loads the whole file. A missing file is a configuration error.
func (r *CSVRepository) Read() (*Table, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("clinic dataset %s does not exist", r.path), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", r.path, err)
	}
	return parse(bytes.TrimPrefix(data, utf8BOM))
}

func parse(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Write replaces the file with table through a temp file and rename.
func (r *CSVRepository) Write(table *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to encode dataset header: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to encode dataset row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp dataset file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace dataset: %w", err)
	}
	return nil
}
