package genotype

import (
	"fmt"
	"math"
	"sort"

	"github.com/willf/bitset"
)

// MemStore is a Store held entirely in memory. It backs tests and small
// datasets and is the reference for the semantics of other backends.
type MemStore struct {
	ChromArr  []string
	PosArr    []int64
	SampleIDs []string
	GT        *Calls

	Ref  []string
	Alt  [][]string
	Qual []float64
	Ann  []string

	// CallFields holds optional per-call integer fields keyed by name.
	CallFields map[string]*CallField
}

// Validate checks array lengths and the coordinate ordering invariant.
func (m *MemStore) Validate() error {
	n := len(m.PosArr)
	if len(m.ChromArr) != n {
		return fmt.Errorf("chrom has %d entries, pos has %d", len(m.ChromArr), n)
	}
	if m.GT == nil {
		return fmt.Errorf("missing GT array")
	}
	if err := m.GT.Check(); err != nil {
		return fmt.Errorf("GT: %w", err)
	}
	if m.GT.Variants != n || m.GT.Samples != len(m.SampleIDs) {
		return fmt.Errorf("GT is %d×%d, expected %d×%d", m.GT.Variants, m.GT.Samples, n, len(m.SampleIDs))
	}
	for name, f := range m.CallFields {
		if f.Variants != n || f.Samples != len(m.SampleIDs) {
			return fmt.Errorf("call field %s is %d×%d, expected %d×%d", name, f.Variants, f.Samples, n, len(m.SampleIDs))
		}
	}
	if m.Ref != nil && len(m.Ref) != n {
		return fmt.Errorf("REF has %d entries, expected %d", len(m.Ref), n)
	}
	if m.Alt != nil && len(m.Alt) != n {
		return fmt.Errorf("ALT has %d entries, expected %d", len(m.Alt), n)
	}
	if m.Qual != nil && len(m.Qual) != n {
		return fmt.Errorf("QUAL has %d entries, expected %d", len(m.Qual), n)
	}
	if m.Ann != nil && len(m.Ann) != n {
		return fmt.Errorf("ANN has %d entries, expected %d", len(m.Ann), n)
	}
	return CheckCoordinates(m.ChromArr, m.PosArr)
}

// CheckCoordinates verifies that each chromosome occupies one contiguous
// block and that positions are non-decreasing inside it.
func CheckCoordinates(chrom []string, pos []int64) error {
	seen := make(map[string]bool)
	for i := range chrom {
		if i > 0 && chrom[i] == chrom[i-1] {
			if pos[i] < pos[i-1] {
				return fmt.Errorf("positions not sorted on chromosome %s at offset %d", chrom[i], i)
			}
			continue
		}
		if seen[chrom[i]] {
			return fmt.Errorf("chromosome %s is not contiguous (offset %d)", chrom[i], i)
		}
		seen[chrom[i]] = true
	}
	return nil
}

func (m *MemStore) Samples() []string { return m.SampleIDs }

func (m *MemStore) Ploidy() Ploidy { return m.GT.Ploidy }

func (m *MemStore) Coordinates() ([]string, []int64, error) {
	return m.ChromArr, m.PosArr, nil
}

func (m *MemStore) ReadBlock(sel Selection, mask *bitset.BitSet) (*Calls, error) {
	if err := sel.Validate(len(m.PosArr)); err != nil {
		return nil, err
	}
	samples := MaskIndices(mask, len(m.SampleIDs))
	out := NewCalls(sel.Len(), len(samples), m.GT.Ploidy)
	for i := 0; i < sel.Len(); i++ {
		v := sel.Offset(i)
		for j, s := range samples {
			copy(out.Call(i, j), m.GT.Call(v, s))
		}
	}
	return out, nil
}

func (m *MemStore) ReadCallField(field string, sel Selection, mask *bitset.BitSet) (*CallField, error) {
	src, ok := m.CallFields[field]
	if !ok {
		return nil, fieldError(field)
	}
	if err := sel.Validate(len(m.PosArr)); err != nil {
		return nil, err
	}
	samples := MaskIndices(mask, len(m.SampleIDs))
	out := NewCallField(field, sel.Len(), len(samples))
	for i := 0; i < sel.Len(); i++ {
		v := sel.Offset(i)
		for j, s := range samples {
			out.Set(i, j, src.At(v, s))
		}
	}
	return out, nil
}

func (m *MemStore) ReadColumn(field string, sel Selection) (*Column, error) {
	if err := sel.Validate(len(m.PosArr)); err != nil {
		return nil, err
	}
	col := &Column{Name: field}
	switch {
	case field == FieldREF && m.Ref != nil:
		col.Strings = make([][]string, sel.Len())
		for i := range col.Strings {
			col.Strings[i] = []string{m.Ref[sel.Offset(i)]}
		}
	case field == FieldALT && m.Alt != nil:
		col.Strings = make([][]string, sel.Len())
		for i := range col.Strings {
			col.Strings[i] = m.Alt[sel.Offset(i)]
		}
	case field == FieldANN && m.Ann != nil:
		col.Strings = make([][]string, sel.Len())
		for i := range col.Strings {
			col.Strings[i] = []string{m.Ann[sel.Offset(i)]}
		}
	case field == FieldQUAL && m.Qual != nil:
		col.Floats = make([]float64, sel.Len())
		for i := range col.Floats {
			col.Floats[i] = m.Qual[sel.Offset(i)]
		}
	default:
		return nil, fieldError(field)
	}
	return col, nil
}

func (m *MemStore) Fields(cat Category) []string {
	var fields []string
	switch cat {
	case CallData:
		fields = append(fields, FieldGT)
		for name := range m.CallFields {
			fields = append(fields, name)
		}
	case VariantData:
		fields = append(fields, "CHROM", "POS")
		if m.Ref != nil {
			fields = append(fields, FieldREF)
		}
		if m.Alt != nil {
			fields = append(fields, FieldALT)
		}
		if m.Qual != nil {
			fields = append(fields, FieldQUAL)
		}
		if m.Ann != nil {
			fields = append(fields, FieldANN)
		}
	}
	sort.Strings(fields)
	return fields
}

// MissingQual is the QUAL value stored for variants without a quality score.
var MissingQual = math.NaN()
