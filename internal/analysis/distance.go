// Package analysis derives sample relationships from imputed allele-count
// matrices: Hamming distances and dimensionality reductions.
package analysis

import (
	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/mat"
)

// hamming counts the columns in which rows i of a and j of b differ.
func hamming(a mat.Matrix, i int, b mat.Matrix, j int) int {
	_, c := a.Dims()
	n := 0
	for k := 0; k < c; k++ {
		if a.At(i, k) != b.At(j, k) {
			n++
		}
	}
	return n
}

// DistancesToReference returns, for each row of x, the number of columns
// that differ from the all-reference vector (zero).
func DistancesToReference(x mat.Matrix) []int {
	r, c := x.Dims()
	ref := mat.NewDense(1, max(c, 1), nil)
	out := make([]int, r)
	parallel.Range(0, r, 0, func(low, high int) {
		for i := low; i < high; i++ {
			if c == 0 {
				continue
			}
			out[i] = hamming(x, i, ref, 0)
		}
	})
	return out
}

// DistanceMatrix returns the symmetric row × row matrix of Hamming
// distances of x, as counts of differing columns.
func DistanceMatrix(x mat.Matrix) [][]int {
	r, _ := x.Dims()
	out := make([][]int, r)
	for i := range out {
		out[i] = make([]int, r)
	}
	// Each worker fills the upper triangle of its rows and mirrors it. The
	// mirrored cell (j, i) belongs to row j > i, which no other worker writes
	// to column i.
	parallel.Range(0, r, 0, func(low, high int) {
		for i := low; i < high; i++ {
			for j := i + 1; j < r; j++ {
				d := hamming(x, i, x, j)
				out[i][j] = d
				out[j][i] = d
			}
		}
	})
	return out
}
