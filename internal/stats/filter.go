package stats

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/divbrowse/divbrowse/internal/alleles"
)

// Threshold is an optional inclusive [Min, Max] bound on one statistic.
type Threshold struct {
	Enabled bool
	Min     float64
	Max     float64
}

// Contains reports whether v lies within the bound.
func (t Threshold) Contains(v float64) bool {
	return v >= t.Min && v <= t.Max
}

// FilterSettings selects variants by their summary statistics. Enabled
// thresholds are applied in field order.
type FilterSettings struct {
	MAF                Threshold
	MissingFreq        Threshold
	HeterozygosityFreq Threshold
	VCFQual            Threshold
}

// Active reports whether any threshold is enabled.
func (s FilterSettings) Active() bool {
	return s.MAF.Enabled || s.MissingFreq.Enabled || s.HeterozygosityFreq.Enabled || s.VCFQual.Enabled
}

// wireSettings is the request encoding of FilterSettings.
type wireSettings struct {
	FilterByMaf         bool      `mapstructure:"filterByMaf"`
	Maf                 []float64 `mapstructure:"maf"`
	FilterByMissingFreq bool      `mapstructure:"filterByMissingFreq"`
	MissingFreq         []float64 `mapstructure:"missingFreq"`
	FilterByHeteroFreq  bool      `mapstructure:"filterByHeteroFreq"`
	HeteroFreq          []float64 `mapstructure:"heteroFreq"`
	FilterByVcfQual     bool      `mapstructure:"filterByVcfQual"`
	VcfQual             []float64 `mapstructure:"vcfQual"`
}

// DecodeFilterSettings decodes filter settings from a loosely typed map such
// as a parsed JSON request body or a viper sub-tree.
func DecodeFilterSettings(raw map[string]any) (FilterSettings, error) {
	var w wireSettings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &w,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return FilterSettings{}, fmt.Errorf("create filter decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return FilterSettings{}, fmt.Errorf("decode filter settings: %w", err)
	}

	var s FilterSettings
	pairs := []struct {
		name    string
		enabled bool
		bounds  []float64
		dst     *Threshold
	}{
		{"maf", w.FilterByMaf, w.Maf, &s.MAF},
		{"missingFreq", w.FilterByMissingFreq, w.MissingFreq, &s.MissingFreq},
		{"heteroFreq", w.FilterByHeteroFreq, w.HeteroFreq, &s.HeterozygosityFreq},
		{"vcfQual", w.FilterByVcfQual, w.VcfQual, &s.VCFQual},
	}
	for _, p := range pairs {
		if !p.enabled {
			continue
		}
		if len(p.bounds) != 2 {
			return FilterSettings{}, fmt.Errorf("filter %s: expected [min, max], got %d values", p.name, len(p.bounds))
		}
		*p.dst = Threshold{Enabled: true, Min: p.bounds[0], Max: p.bounds[1]}
	}
	return s, nil
}

// FilterResult is the outcome of applying FilterSettings to a window.
type FilterResult struct {
	// Matrix is the allele matrix restricted to the retained columns.
	Matrix *alleles.Matrix
	// Offsets are the store offsets of the retained columns.
	Offsets []int
	// Columns are the retained column indices into the input matrix.
	Columns []int
	// Degenerate is set when filtering would have kept fewer than two
	// variants and was therefore not applied.
	Degenerate bool
}

// Filter applies FilterSettings to allele matrices.
type Filter struct {
	logger *zap.Logger
}

// NewFilter creates a filter with a no-op logger.
func NewFilter() *Filter {
	return &Filter{logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped and degenerate filters.
func (f *Filter) SetLogger(l *zap.Logger) {
	f.logger = l
}

// Apply filters the columns of m. sum must be computed from m and offsets
// must be aligned with its columns. If fewer than two columns survive, the
// input is returned unchanged with Degenerate set.
func (f *Filter) Apply(s FilterSettings, sum *Summary, m *alleles.Matrix, offsets []int) FilterResult {
	all := make([]int, m.Variants)
	for i := range all {
		all[i] = i
	}
	unfiltered := FilterResult{Matrix: m, Offsets: offsets, Columns: all}
	if !s.Active() {
		return unfiltered
	}

	keep := make([]bool, m.Variants)
	for i := range keep {
		keep[i] = true
	}
	restrict := func(t Threshold, series []float64, name string) {
		if !t.Enabled {
			return
		}
		if series == nil {
			f.logger.Debug("filter not applicable, skipping", zap.String("filter", name))
			return
		}
		for i, v := range series {
			if keep[i] && !t.Contains(v) {
				keep[i] = false
			}
		}
	}
	restrict(s.MAF, sum.MAF, "maf")
	restrict(s.MissingFreq, sum.MissingFreq, "missing_freq")
	restrict(s.HeterozygosityFreq, sum.HeterozygosityFreq, "heterozygosity_freq")
	restrict(s.VCFQual, sum.VCFQual, "vcf_qual")

	var cols []int
	for i, k := range keep {
		if k {
			cols = append(cols, i)
		}
	}
	if len(cols) < 2 {
		f.logger.Warn("filter retains fewer than two variants, returning unfiltered window",
			zap.Int("retained", len(cols)),
			zap.Int("variants", m.Variants))
		unfiltered.Degenerate = true
		return unfiltered
	}

	kept := make([]int, len(cols))
	for i, c := range cols {
		kept[i] = offsets[c]
	}
	return FilterResult{
		Matrix:  m.SelectColumns(cols),
		Offsets: kept,
		Columns: cols,
	}
}
