// Package alleles converts raw genotype calls into sample-major counts of
// non-reference alleles.
package alleles

import (
	"gonum.org/v1/gonum/mat"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// Missing marks a missing allele count.
const Missing = genotype.Missing

// Matrix holds allele counts, samples × variants, row-major. Values are
// Missing, or 0..ploidy.
//
// Matrix implements mat.Matrix so it can be handed to gonum routines
// directly; At returns the raw count including the -1 sentinel.
type Matrix struct {
	Samples  int
	Variants int
	Data     []int8
}

var _ mat.Matrix = (*Matrix)(nil)

// NewMatrix allocates a zeroed matrix.
func NewMatrix(samples, variants int) *Matrix {
	return &Matrix{Samples: samples, Variants: variants, Data: make([]int8, samples*variants)}
}

// Count returns the allele count for sample s at variant v.
func (m *Matrix) Count(s, v int) int8 {
	return m.Data[s*m.Variants+v]
}

// SetCount stores the allele count for sample s at variant v.
func (m *Matrix) SetCount(s, v int, n int8) {
	m.Data[s*m.Variants+v] = n
}

// Row returns the counts of sample s. The slice aliases Data.
func (m *Matrix) Row(s int) []int8 {
	return m.Data[s*m.Variants : (s+1)*m.Variants]
}

// Column returns a copy of the counts at variant v across samples.
func (m *Matrix) Column(v int) []int8 {
	col := make([]int8, m.Samples)
	for s := range col {
		col[s] = m.Count(s, v)
	}
	return col
}

// Rows returns a copy of the matrix as one slice per sample.
func (m *Matrix) Rows() [][]int8 {
	rows := make([][]int8, m.Samples)
	for s := range rows {
		rows[s] = append([]int8(nil), m.Row(s)...)
	}
	return rows
}

// SelectColumns returns a new matrix holding only the given variant columns,
// in the given order.
func (m *Matrix) SelectColumns(cols []int) *Matrix {
	out := NewMatrix(m.Samples, len(cols))
	for s := 0; s < m.Samples; s++ {
		row := m.Row(s)
		dst := out.Row(s)
		for j, c := range cols {
			dst[j] = row[c]
		}
	}
	return out
}

// Dims implements mat.Matrix.
func (m *Matrix) Dims() (r, c int) {
	return m.Samples, m.Variants
}

// At implements mat.Matrix.
func (m *Matrix) At(i, j int) float64 {
	return float64(m.Count(i, j))
}

// T implements mat.Matrix.
func (m *Matrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}
