package engine

import (
	"fmt"

	"github.com/divbrowse/divbrowse/internal/analysis"
	"github.com/divbrowse/divbrowse/internal/annotation"
	"github.com/divbrowse/divbrowse/internal/genotype"
	"github.com/divbrowse/divbrowse/internal/stats"
	"github.com/divbrowse/divbrowse/internal/window"
)

// WindowRequest is a window query in external terms.
type WindowRequest struct {
	Chrom  string
	Window window.Descriptor
	// Samples are external sample IDs; nil selects all samples.
	Samples []string
	// Strict fails on unresolved sample IDs.
	Strict bool
	Filter stats.FilterSettings
	// Flanking widens range windows by the configured flanking length.
	Flanking         bool
	WithCallMetadata bool
}

// Window slices the store for req.
func (e *Engine) Window(req WindowRequest) (*window.Window, error) {
	sr := window.Request{
		Chrom:            req.Chrom,
		Window:           req.Window,
		Samples:          req.Samples,
		Strict:           req.Strict,
		Filter:           req.Filter,
		WithCallMetadata: req.WithCallMetadata,
	}
	if req.Flanking {
		sr.Flank = window.Flank{Enabled: true, Length: e.cfg.FlankingRegionLength}
	}
	return e.slicer.Slice(sr)
}

// SampleDistance pairs a sample with a distance.
type SampleDistance struct {
	Sample   string `json:"sample"`
	Distance int    `json:"distance"`
}

// WindowView is the client-facing rendering of a window. Per-variant
// fields cover the variants retained by the filter.
type WindowView struct {
	Chrom string       `json:"chrom"`
	Stats window.Stats `json:"stats"`

	CoordinateFirst     int64  `json:"coordinate_first"`
	CoordinateLast      int64  `json:"coordinate_last"`
	CoordinateFirstNext *int64 `json:"coordinate_first_next"`
	CoordinateLastPrev  *int64 `json:"coordinate_last_prev"`

	Positions         []int64  `json:"variants_coordinates"`
	Samples           []string `json:"samples_selected_mapped"`
	SamplesNotFound   []string `json:"samples_not_found,omitempty"`
	PositionsNotFound []int64  `json:"positions_not_found,omitempty"`
	FilterDegenerate  bool     `json:"filter_degenerate,omitempty"`

	// AlleleCounts has one row per sample.
	AlleleCounts [][]int8   `json:"numbers_of_alternate_alleles"`
	Reference    []string   `json:"reference,omitempty"`
	Alternates   [][]string `json:"alternates,omitempty"`

	HammingDistancesToReference []SampleDistance `json:"hamming_distances_to_reference"`
	PerVariantStats             []stats.Record   `json:"per_snp_stats"`

	// Annotations holds the ANN field per variant when the store has one.
	Annotations []string `json:"snpeff_variants,omitempty"`

	Features       []annotation.Feature `json:"features,omitempty"`
	NearestFeature []annotation.Feature `json:"nearest_feature,omitempty"`

	// CallMetadata holds DP/DV per sample when requested, keyed by field.
	CallMetadata map[string][][]int32 `json:"calls_metadata,omitempty"`
}

// View renders w. Alleles, statistics and annotations are re-read for the
// filtered offsets.
func (e *Engine) View(w *window.Window) (*WindowView, error) {
	v := &WindowView{
		Chrom:               w.Chrom,
		Stats:               w.Stats(),
		CoordinateFirstNext: w.NextPosition,
		CoordinateLastPrev:  w.PrevPosition,
		Positions:           w.FilteredPositions(),
		Samples:             w.Samples.Resolved,
		SamplesNotFound:     w.Samples.Unresolved,
		PositionsNotFound:   w.PositionsNotFound,
		FilterDegenerate:    w.Filtered.Degenerate,
	}
	if n := len(w.Positions); n > 0 {
		v.CoordinateFirst = w.Positions[0]
		v.CoordinateLast = w.Positions[n-1]
	}

	m := w.AlleleMatrix()
	v.AlleleCounts = m.Rows()
	dists := analysis.DistancesToReference(stats.Imputed(m))
	v.HammingDistancesToReference = make([]SampleDistance, len(dists))
	for i, d := range dists {
		v.HammingDistancesToReference[i] = SampleDistance{Sample: v.Samples[i], Distance: d}
	}

	var err error
	if v.PerVariantStats, err = w.Records(); err != nil {
		return nil, err
	}

	sel := genotype.List(w.FilteredOffsets())
	if genotype.HasField(e.store, genotype.VariantData, genotype.FieldREF) {
		col, err := e.store.ReadColumn(genotype.FieldREF, sel)
		if err != nil {
			return nil, fmt.Errorf("read REF: %w", err)
		}
		v.Reference = make([]string, col.Len())
		for i := range v.Reference {
			v.Reference[i] = col.First(i)
		}
	}
	if genotype.HasField(e.store, genotype.VariantData, genotype.FieldALT) {
		col, err := e.store.ReadColumn(genotype.FieldALT, sel)
		if err != nil {
			return nil, fmt.Errorf("read ALT: %w", err)
		}
		v.Alternates = col.Strings
	}
	if genotype.HasField(e.store, genotype.VariantData, genotype.FieldANN) {
		col, err := e.store.ReadColumn(genotype.FieldANN, sel)
		if err != nil {
			return nil, fmt.Errorf("read ANN: %w", err)
		}
		v.Annotations = make([]string, col.Len())
		for i := range v.Annotations {
			v.Annotations[i] = col.First(i)
		}
	}

	if len(w.CallMetadata) > 0 {
		v.CallMetadata = make(map[string][][]int32, len(w.CallMetadata))
		for name, f := range w.CallMetadata {
			v.CallMetadata[name] = filterCallField(f, w.Filtered.Columns)
		}
	}

	if e.features != nil && w.Len() > 0 {
		v.Features = e.features.Overlapping(w.Chrom, v.CoordinateFirst, v.CoordinateLast)
		v.NearestFeature = e.features.NearestStart(w.Chrom, v.CoordinateFirst)
	}
	return v, nil
}

// filterCallField returns f sample-major restricted to the window columns
// cols.
func filterCallField(f *genotype.CallField, cols []int) [][]int32 {
	out := make([][]int32, f.Samples)
	for s := range out {
		row := make([]int32, len(cols))
		for j, c := range cols {
			row[j] = f.At(c, s)
		}
		out[s] = row
	}
	return out
}

// WindowStats returns only the size summary of the window for req.
func (e *Engine) WindowStats(req WindowRequest) (window.Stats, error) {
	w, err := e.Window(req)
	if err != nil {
		return window.Stats{}, err
	}
	return w.Stats(), nil
}

// CountVariants counts the variants stored on chrom within the inclusive
// physical interval [start, end].
func (e *Engine) CountVariants(chrom string, start, end int64) (int, error) {
	return e.index.CountInInterval(chrom, start, end)
}

// Samples returns the external IDs of all samples in store order.
func (e *Engine) Samples() []string {
	return e.resolver.ExternalIDs()
}

// ChromosomeInfo describes one chromosome of the store.
type ChromosomeInfo struct {
	ID                 string `json:"id"`
	Label              string `json:"label"`
	CentromerePosition *int64 `json:"centromere_position,omitempty"`
	Start              int64  `json:"start"`
	End                int64  `json:"end"`
	NumberOfVariants   int    `json:"number_of_variants"`
}

// Chromosomes lists the store's chromosomes in store order.
func (e *Engine) Chromosomes() []ChromosomeInfo {
	ids := e.index.Chromosomes()
	out := make([]ChromosomeInfo, 0, len(ids))
	for _, id := range ids {
		ext, err := e.index.Extents(id)
		if err != nil {
			continue
		}
		info := ChromosomeInfo{
			ID:               id,
			Label:            e.cfg.ChromosomeLabel(id),
			Start:            ext.StartPos,
			End:              ext.EndPos,
			NumberOfVariants: ext.VariantCount,
		}
		if c, ok := e.cfg.Centromere(id); ok {
			info.CentromerePosition = &c
		}
		out = append(out, info)
	}
	return out
}

// Summary describes the dataset.
type Summary struct {
	Ploidy         int              `json:"ploidy"`
	CountGenotypes int              `json:"count_genotypes"`
	CountVariants  int              `json:"count_variants"`
	CountElements  int              `json:"count_elements"`
	Chromosomes    []ChromosomeInfo `json:"chromosomes"`
	Samples        []string         `json:"samples"`
	Features       map[string]bool  `json:"features"`
	Metadata       map[string]any   `json:"dataset_descriptions,omitempty"`
}

// Summary returns the dataset summary.
func (e *Engine) Summary() Summary {
	nSamples, nVariants := e.resolver.Len(), e.index.Len()
	features := map[string]bool{"pca": true, "gff3": e.features != nil}
	for name := range e.transformers {
		features[name] = true
	}
	return Summary{
		Ploidy:         int(e.store.Ploidy()),
		CountGenotypes: nSamples,
		CountVariants:  nVariants,
		CountElements:  nSamples * nVariants,
		Chromosomes:    e.Chromosomes(),
		Samples:        e.Samples(),
		Features:       features,
		Metadata:       e.cfg.Metadata,
	}
}
