// Package samples resolves caller-supplied sample identifiers to positions
// in a genotype store.
package samples

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Mapping is a bijective table between external (caller-facing) sample IDs
// and the internal IDs stored in the genotype store.
type Mapping struct {
	toInternal map[string]string
	toExternal map[string]string
}

// NewMapping builds a mapping from external→internal pairs. Both sides must
// be unique.
func NewMapping(pairs map[string]string) (*Mapping, error) {
	m := &Mapping{
		toInternal: make(map[string]string, len(pairs)),
		toExternal: make(map[string]string, len(pairs)),
	}
	for ext, in := range pairs {
		if err := m.add(ext, in); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Mapping) add(ext, in string) error {
	if _, dup := m.toInternal[ext]; dup {
		return fmt.Errorf("external sample ID %q mapped twice", ext)
	}
	if prev, dup := m.toExternal[in]; dup {
		return fmt.Errorf("internal sample ID %q mapped from both %q and %q", in, prev, ext)
	}
	m.toInternal[ext] = in
	m.toExternal[in] = ext
	return nil
}

// LoadMapping reads a two-column CSV file without header: external ID,
// internal ID.
func LoadMapping(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample ID mapping: %w", err)
	}
	defer f.Close()

	m, err := ReadMapping(f)
	if err != nil {
		return nil, fmt.Errorf("read sample ID mapping %s: %w", path, err)
	}
	return m, nil
}

// ReadMapping parses a mapping table from r.
func ReadMapping(r io.Reader) (*Mapping, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	m := &Mapping{
		toInternal: make(map[string]string),
		toExternal: make(map[string]string),
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected 2 columns, found %d", line, len(rec))
		}
		if err := m.add(strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Internal returns the internal ID for an external ID.
func (m *Mapping) Internal(ext string) (string, bool) {
	in, ok := m.toInternal[ext]
	return in, ok
}

// External returns the external ID for an internal ID.
func (m *Mapping) External(in string) (string, bool) {
	ext, ok := m.toExternal[in]
	return ext, ok
}

// Len returns the number of mapped pairs.
func (m *Mapping) Len() int {
	return len(m.toInternal)
}
