package services

import (
	"regexp"
	"strings"

	"github.com/zatekoja/clinicfinder/internal/adapters/dataset"
	"github.com/zatekoja/clinicfinder/pkg/address"
)

var specialtySeparator = regexp.MustCompile(`[、;；]`)

// SpecialtyIndex maps a normalized address key to the official specialty
// labels registered at that address.
type SpecialtyIndex struct {
	byKey map[string][]string
}

// NewSpecialtyIndex builds the index from a dataset with an address column
// and a specialties (or specialty) column.
func NewSpecialtyIndex(table *dataset.Table) *SpecialtyIndex {
	idx := &SpecialtyIndex{byKey: make(map[string][]string)}
	if table == nil {
		return idx
	}
	column := "specialties"
	if !table.HasColumn(column) {
		column = "specialty"
	}
	for _, row := range table.Rows {
		key := address.Normalize(row["address"])
		if key == "" {
			continue
		}
		var labels []string
		for _, part := range specialtySeparator.Split(row[column], -1) {
			if part = strings.TrimSpace(part); part != "" {
				labels = append(labels, part)
			}
		}
		// Later rows for the same address win.
		idx.byKey[key] = labels
	}
	return idx
}

// LoadSpecialtyIndex reads the index dataset from repo.
func LoadSpecialtyIndex(repo *dataset.CSVRepository) (*SpecialtyIndex, error) {
	table, err := repo.Read()
	if err != nil {
		return nil, err
	}
	return NewSpecialtyIndex(table), nil
}

// Lookup returns the labels for an exact AddressKey, or nil.
func (i *SpecialtyIndex) Lookup(key string) []string {
	if i == nil || key == "" {
		return nil
	}
	return i.byKey[key]
}

// Len returns the number of indexed addresses.
func (i *SpecialtyIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byKey)
}
