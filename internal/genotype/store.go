package genotype

import (
	"errors"
	"fmt"

	"github.com/willf/bitset"
)

// Category groups the named arrays of a store.
type Category int

const (
	// CallData holds per-call arrays (variant × sample).
	CallData Category = iota
	// VariantData holds per-variant arrays.
	VariantData
)

// Well-known field names.
const (
	FieldGT   = "GT"
	FieldDP   = "DP"
	FieldDV   = "DV"
	FieldREF  = "REF"
	FieldALT  = "ALT"
	FieldQUAL = "QUAL"
	FieldANN  = "ANN"
)

// ErrFieldNotFound is returned when a store does not provide a field.
var ErrFieldNotFound = errors.New("field not found")

// Store is a read-only columnar genotype store. Implementations must be safe
// for concurrent reads once opened.
type Store interface {
	// Samples returns the sample identifiers in store order.
	Samples() []string

	// Ploidy returns the ploidy of the GT array.
	Ploidy() Ploidy

	// Coordinates returns the chromosome and position arrays of the variant
	// axis. Positions are non-decreasing within each chromosome block.
	Coordinates() (chrom []string, pos []int64, err error)

	// ReadBlock reads the GT calls of the selected variants for the samples
	// set in mask (all samples when mask is nil) in one bulk read.
	ReadBlock(sel Selection, mask *bitset.BitSet) (*Calls, error)

	// ReadCallField reads an integer per-call field such as DP.
	ReadCallField(field string, sel Selection, mask *bitset.BitSet) (*CallField, error)

	// ReadColumn reads a per-variant field such as REF, ALT, QUAL or ANN.
	ReadColumn(field string, sel Selection) (*Column, error)

	// Fields lists the available field names of a category.
	Fields(cat Category) []string
}

// Column holds the values of one per-variant field for a selection.
// String fields populate Strings (one or more values per variant), numeric
// fields populate Floats (NaN for missing).
type Column struct {
	Name    string
	Strings [][]string
	Floats  []float64
}

// Len returns the number of variants in the column.
func (c *Column) Len() int {
	if c.Floats != nil {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// First returns the first string value for variant i, or "" if none.
func (c *Column) First(i int) string {
	if i >= len(c.Strings) || len(c.Strings[i]) == 0 {
		return ""
	}
	return c.Strings[i][0]
}

// HasField reports whether the store lists field under cat.
func HasField(s Store, cat Category, field string) bool {
	for _, f := range s.Fields(cat) {
		if f == field {
			return true
		}
	}
	return false
}

// MaskIndices returns the sample indices set in mask, in ascending order.
// A nil mask selects all n samples.
func MaskIndices(mask *bitset.BitSet, n int) []int {
	if mask == nil {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, mask.Count())
	for i, ok := mask.NextSet(0); ok && int(i) < n; i, ok = mask.NextSet(i + 1) {
		idx = append(idx, int(i))
	}
	return idx
}

func fieldError(field string) error {
	return fmt.Errorf("%w: %s", ErrFieldNotFound, field)
}
