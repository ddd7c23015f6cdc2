package window

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/divbrowse/divbrowse/internal/alleles"
	"github.com/divbrowse/divbrowse/internal/genotype"
	"github.com/divbrowse/divbrowse/internal/index"
	"github.com/divbrowse/divbrowse/internal/samples"
	"github.com/divbrowse/divbrowse/internal/stats"
)

// PositionLookup records how one requested position was resolved.
type PositionLookup struct {
	Requested int64
	Offset    int
	Kind      index.Kind
}

// Stats summarises the size and physical extent of a window.
type Stats struct {
	VariantsInWindow         int   `json:"number_of_variants_in_window"`
	VariantsInWindowFiltered int   `json:"number_of_variants_in_window_filtered"`
	StartPos                 int64 `json:"startpos"`
	EndPos                   int64 `json:"endpos"`
}

// Window is the result of slicing one request. It is built per request and
// not shared.
type Window struct {
	// ID identifies the window in logs.
	ID    uuid.UUID
	Chrom string
	Mode  Mode

	// LocationStart and LocationEnd bound the window's offsets, half-open.
	LocationStart int
	LocationEnd   int
	// Offsets are the store offsets read, ascending. For range windows they
	// are exactly [LocationStart, LocationEnd).
	Offsets []int
	// Positions are the physical positions of Offsets.
	Positions []int64

	// StartLookup and EndLookup tell how the window bounds were found.
	// Unset for positions windows, which use Lookups instead.
	StartLookup index.Kind
	EndLookup   index.Kind
	Lookups     []PositionLookup
	// PositionsNotFound are requested positions outside the chromosome.
	PositionsNotFound []int64

	// PrevPosition and NextPosition are the positions of the variants just
	// outside the window on the same chromosome, if any.
	PrevPosition *int64
	NextPosition *int64

	Samples samples.Resolution
	Ploidy  genotype.Ploidy

	// Calls is the raw call tensor, variant-major.
	Calls *genotype.Calls
	// Alleles is the unfiltered allele-count matrix, sample-major.
	Alleles *alleles.Matrix
	// CallMetadata holds per-call fields (DP, DV) keyed by name when
	// requested and available.
	CallMetadata map[string]*genotype.CallField

	Filter   stats.FilterSettings
	Filtered stats.FilterResult

	store       genotype.Store
	summaryOnce sync.Once
	summary     *stats.Summary
	summaryErr  error
}

// Len returns the number of variants in the unfiltered window.
func (w *Window) Len() int {
	return len(w.Offsets)
}

// Summary returns the per-variant statistics of the unfiltered window,
// including QUAL when the store provides it. It is computed on first use.
func (w *Window) Summary() (*stats.Summary, error) {
	w.summaryOnce.Do(func() {
		s := stats.Compute(w.Alleles, w.Ploidy)
		if genotype.HasField(w.store, genotype.VariantData, genotype.FieldQUAL) {
			col, err := w.store.ReadColumn(genotype.FieldQUAL, w.selection())
			if err != nil {
				w.summaryErr = fmt.Errorf("read QUAL: %w", err)
				return
			}
			s.VCFQual = col.Floats
		}
		w.summary = s
	})
	return w.summary, w.summaryErr
}

// FilteredSummary returns the statistics of the variants retained by the
// filter.
func (w *Window) FilteredSummary() (*stats.Summary, error) {
	s, err := w.Summary()
	if err != nil {
		return nil, err
	}
	if len(w.Filtered.Columns) == s.Len() {
		return s, nil
	}
	return s.Select(w.Filtered.Columns), nil
}

// Records returns one statistics record per retained variant.
func (w *Window) Records() ([]stats.Record, error) {
	s, err := w.FilteredSummary()
	if err != nil {
		return nil, err
	}
	return s.Records(w.FilteredOffsets(), w.FilteredPositions()), nil
}

// AlleleMatrix returns the filtered allele-count matrix, sample-major.
func (w *Window) AlleleMatrix() *alleles.Matrix {
	return w.Filtered.Matrix
}

// FilteredOffsets returns the store offsets retained by the filter.
func (w *Window) FilteredOffsets() []int {
	return w.Filtered.Offsets
}

// FilteredPositions returns the physical positions retained by the filter.
func (w *Window) FilteredPositions() []int64 {
	out := make([]int64, len(w.Filtered.Columns))
	for i, c := range w.Filtered.Columns {
		out[i] = w.Positions[c]
	}
	return out
}

// RawCalls returns one row per selected sample holding its allele indices
// for the retained variants, flattened as variant × ploidy.
func (w *Window) RawCalls() [][]int8 {
	p := int(w.Ploidy)
	rows := make([][]int8, w.Calls.Samples)
	for s := range rows {
		row := make([]int8, 0, len(w.Filtered.Columns)*p)
		for _, c := range w.Filtered.Columns {
			row = append(row, w.Calls.Call(c, s)...)
		}
		rows[s] = row
	}
	return rows
}

// Stats returns the window size before and after filtering and its first
// and last physical positions.
func (w *Window) Stats() Stats {
	st := Stats{
		VariantsInWindow:         w.Len(),
		VariantsInWindowFiltered: len(w.Filtered.Offsets),
	}
	if n := len(w.Positions); n > 0 {
		st.StartPos = w.Positions[0]
		st.EndPos = w.Positions[n-1]
	}
	return st
}

func (w *Window) selection() genotype.Selection {
	if w.Mode == ModePositions {
		return genotype.List(w.Offsets)
	}
	return genotype.Range(w.LocationStart, w.LocationEnd)
}
