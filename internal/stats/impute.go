package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ColumnMeans returns the mean of each column of m over non-negative
// entries. Columns without any such entry yield NaN.
func ColumnMeans(m mat.Matrix) []float64 {
	r, c := m.Dims()
	means := make([]float64, c)
	for j := 0; j < c; j++ {
		var sum float64
		var n int
		for i := 0; i < r; i++ {
			if v := m.At(i, j); v >= 0 {
				sum += v
				n++
			}
		}
		if n == 0 {
			means[j] = math.NaN()
			continue
		}
		means[j] = sum / float64(n)
	}
	return means
}

// Impute replaces negative (missing) entries by their column mean. Entries
// of columns with no observed value become 0. The result has no negative
// or NaN entries, so imputing it again returns an equal matrix. m must have
// at least one row and one column; see Imputed.
func Impute(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	means := ColumnMeans(m)
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if v >= 0 && !math.IsNaN(v) {
			return v
		}
		if math.IsNaN(means[j]) {
			return 0
		}
		return means[j]
	}, m)
	return out
}

// Imputed is Impute for matrices that may have no rows or columns. An empty
// m is returned as is.
func Imputed(m mat.Matrix) mat.Matrix {
	if r, c := m.Dims(); r == 0 || c == 0 {
		return m
	}
	return Impute(m)
}
