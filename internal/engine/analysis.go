package engine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/divbrowse/divbrowse/internal/analysis"
	"github.com/divbrowse/divbrowse/internal/stats"
	"github.com/divbrowse/divbrowse/internal/window"
)

// Reduction holds per-sample coordinates of a window's filtered allele
// matrix.
type Reduction struct {
	Samples []string `json:"samples"`
	// PCA has one row per sample.
	PCA                    [][]float64 `json:"pca_result"`
	ExplainedVarianceRatio []float64   `json:"pca_explained_variance"`
	// Embeddings holds the output of each configured transformer by name.
	Embeddings map[string][][]float64 `json:"embeddings,omitempty"`
}

// Reduce runs PCA and every configured transformer on the imputed allele
// matrix of w.
func (e *Engine) Reduce(w *window.Window) (*Reduction, error) {
	x := stats.Imputed(w.AlleleMatrix())
	res, err := e.pca.Fit(x)
	if err != nil {
		return nil, fmt.Errorf("compute PCA of window %s: %w", w.ID, err)
	}
	out := &Reduction{
		Samples:                w.Samples.Resolved,
		PCA:                    denseRows(res.Coordinates),
		ExplainedVarianceRatio: res.ExplainedVarianceRatio,
	}
	for name, t := range e.transformers {
		coords, err := t.Transform(x)
		if err != nil {
			return nil, fmt.Errorf("compute %s of window %s: %w", name, w.ID, err)
		}
		if out.Embeddings == nil {
			out.Embeddings = make(map[string][][]float64, len(e.transformers))
		}
		out.Embeddings[name] = denseRows(coords)
	}
	return out, nil
}

// DistanceMatrix is the pairwise Hamming distance matrix of a window's
// samples.
type DistanceMatrix struct {
	Samples   []string `json:"samples"`
	Distances [][]int  `json:"distances"`
}

// Distances computes pairwise Hamming distances between the samples of w
// over its imputed, filtered allele matrix.
func (e *Engine) Distances(w *window.Window) *DistanceMatrix {
	return &DistanceMatrix{
		Samples:   w.Samples.Resolved,
		Distances: analysis.DistanceMatrix(stats.Imputed(w.AlleleMatrix())),
	}
}

func denseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
