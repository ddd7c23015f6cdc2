package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultComponents is the number of principal components computed when
// PCA.Components is zero.
const DefaultComponents = 10

// ErrTooFewSamples is returned when a reduction needs more rows than given.
var ErrTooFewSamples = errors.New("at least two samples are required")

// ErrNoVariants is returned by Fit for a matrix without columns.
var ErrNoVariants = errors.New("at least one variant is required")

// Transformer reduces a sample × variant matrix to per-sample coordinates.
// UMAP and other embeddings are provided by implementations outside this
// package.
type Transformer interface {
	Transform(x mat.Matrix) (*mat.Dense, error)
}

// PCAResult holds sample coordinates (one row per sample) and the share of
// total variance explained by each component.
type PCAResult struct {
	Coordinates            *mat.Dense
	ExplainedVarianceRatio []float64
}

// PCA computes principal components of robust-scaled data.
type PCA struct {
	Components int
	logger     *zap.Logger
}

// NewPCA returns a PCA computing up to components components. Zero selects
// DefaultComponents.
func NewPCA(components int) *PCA {
	if components <= 0 {
		components = DefaultComponents
	}
	return &PCA{Components: components, logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (p *PCA) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Transform implements Transformer.
func (p *PCA) Transform(x mat.Matrix) (*mat.Dense, error) {
	res, err := p.Fit(x)
	if err != nil {
		return nil, err
	}
	return res.Coordinates, nil
}

// Fit scales x column-wise by median and interquartile range and projects
// it onto its leading principal components. x must already be imputed.
func (p *PCA) Fit(x mat.Matrix) (*PCAResult, error) {
	started := time.Now()
	r, c := x.Dims()
	if r < 2 {
		return nil, ErrTooFewSamples
	}
	if c == 0 {
		return nil, ErrNoVariants
	}

	scaled := RobustScale(x)

	var pc stat.PC
	if !pc.PrincipalComponents(scaled, nil) {
		return nil, fmt.Errorf("pca: decomposition of %d×%d matrix failed", r, c)
	}
	vars := pc.VarsTo(nil)
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	k := min(p.Components, c, len(vars))

	// Center before projecting so the scores have zero mean.
	centered := mat.DenseCopyOf(scaled)
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, centered)
		m := stat.Mean(col, nil)
		for i := range col {
			centered.Set(i, j, col[i]-m)
		}
	}
	d, _ := vecs.Dims()
	coords := mat.NewDense(r, k, nil)
	coords.Mul(centered, vecs.Slice(0, d, 0, k))

	total := 0.0
	for _, v := range vars {
		total += v
	}
	ratio := make([]float64, k)
	if total > 0 {
		for i := range ratio {
			ratio[i] = vars[i] / total
		}
	}

	p.logger.Debug("pca computed",
		zap.Int("samples", r),
		zap.Int("variants", c),
		zap.Int("components", k),
		zap.Duration("elapsed", time.Since(started)))
	return &PCAResult{Coordinates: coords, ExplainedVarianceRatio: ratio}, nil
}

// RobustScale centers each column of x on its median and divides it by its
// interquartile range. Columns with zero range are only centered. NaN and
// infinite results become zero.
func RobustScale(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		sorted := slices.Clone(col)
		slices.Sort(sorted)
		median := stat.Quantile(0.5, stat.LinInterp, sorted, nil)
		iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
		if iqr == 0 {
			iqr = 1
		}
		for i, v := range col {
			s := (v - median) / iqr
			if math.IsNaN(s) || math.IsInf(s, 0) {
				s = 0
			}
			out.Set(i, j, s)
		}
	}
	return out
}
