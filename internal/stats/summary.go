// Package stats computes per-variant summary statistics over allele-count
// matrices, filters variants by them and imputes missing counts.
package stats

import (
	"math"

	"github.com/exascience/pargo/parallel"

	"github.com/divbrowse/divbrowse/internal/alleles"
	"github.com/divbrowse/divbrowse/internal/genotype"
)

// MissingMAF is reported for variants without any called sample.
const MissingMAF = -1.0

// Summary holds per-variant statistic series aligned with the columns of the
// allele matrix they were computed from.
type Summary struct {
	Ploidy genotype.Ploidy

	// Mean is the mean allele count over called samples, NaN if none.
	Mean []float64
	// MAF is the minor allele frequency, MissingMAF if undefined. For
	// haploid data it is the minor of the non-reference fraction of called
	// samples: allele indices above 1 count once, so MAF stays in [0, 0.5]
	// at multi-allelic sites. For diploid data it is the minor of Mean/2.
	MAF []float64
	// MissingFreq is the fraction of samples with a missing call.
	MissingFreq []float64
	// HeterozygosityFreq is the fraction of called samples that are
	// heterozygous. Nil for haploid data.
	HeterozygosityFreq []float64
	// VCFQual is the store's QUAL per variant. Nil if the store has none.
	VCFQual []float64
}

// Len returns the number of variants summarised.
func (s *Summary) Len() int {
	return len(s.MAF)
}

// Select returns the summary restricted to the given columns.
func (s *Summary) Select(cols []int) *Summary {
	pick := func(src []float64) []float64 {
		if src == nil {
			return nil
		}
		out := make([]float64, len(cols))
		for i, c := range cols {
			out[i] = src[c]
		}
		return out
	}
	return &Summary{
		Ploidy:             s.Ploidy,
		Mean:               pick(s.Mean),
		MAF:                pick(s.MAF),
		MissingFreq:        pick(s.MissingFreq),
		HeterozygosityFreq: pick(s.HeterozygosityFreq),
		VCFQual:            pick(s.VCFQual),
	}
}

// Compute derives the summary series of m in one pass over its columns.
// Columns are processed in parallel; each worker writes a disjoint range.
func Compute(m *alleles.Matrix, ploidy genotype.Ploidy) *Summary {
	n := m.Variants
	s := &Summary{
		Ploidy:      ploidy,
		Mean:        make([]float64, n),
		MAF:         make([]float64, n),
		MissingFreq: make([]float64, n),
	}
	if ploidy == genotype.Diploid {
		s.HeterozygosityFreq = make([]float64, n)
	}

	parallel.Range(0, n, 0, func(low, high int) {
		for v := low; v < high; v++ {
			s.computeColumn(m, v)
		}
	})
	return s
}

func (s *Summary) computeColumn(m *alleles.Matrix, v int) {
	var sum float64
	var called, missing, het, nonRef int
	for i := 0; i < m.Samples; i++ {
		c := m.Count(i, v)
		switch {
		case c < 0:
			missing++
			continue
		case c == 1:
			het++
		}
		if c > 0 {
			nonRef++
		}
		sum += float64(c)
		called++
	}

	if m.Samples > 0 {
		s.MissingFreq[v] = float64(missing) / float64(m.Samples)
	}

	if called == 0 {
		s.Mean[v] = math.NaN()
		s.MAF[v] = MissingMAF
		return
	}
	s.Mean[v] = sum / float64(called)

	var freq float64
	switch s.Ploidy {
	case genotype.Haploid:
		// Allele indices above 1 still count as one non-reference allele.
		freq = float64(nonRef) / float64(called)
	default:
		freq = s.Mean[v] / 2
		s.HeterozygosityFreq[v] = float64(het) / float64(called)
	}
	s.MAF[v] = minor(freq)
}

func minor(freq float64) float64 {
	if freq < 0.5 {
		return freq
	}
	return 1 - freq
}

// Record is the per-variant view of a Summary.
type Record struct {
	Offset             int      `json:"positions_indices"`
	Position           int64    `json:"position"`
	MAF                float64  `json:"maf"`
	MissingFreq        float64  `json:"missing_freq"`
	HeterozygosityFreq *float64 `json:"heterozygosity_freq,omitempty"`
	VCFQual            *float64 `json:"vcf_qual,omitempty"`
}

// Records assembles one record per variant. offsets and positions are
// aligned with the summary's columns.
func (s *Summary) Records(offsets []int, positions []int64) []Record {
	out := make([]Record, s.Len())
	for i := range out {
		r := Record{
			MAF:         s.MAF[i],
			MissingFreq: s.MissingFreq[i],
		}
		if i < len(offsets) {
			r.Offset = offsets[i]
		}
		if i < len(positions) {
			r.Position = positions[i]
		}
		if s.HeterozygosityFreq != nil {
			h := s.HeterozygosityFreq[i]
			r.HeterozygosityFreq = &h
		}
		if s.VCFQual != nil && !math.IsNaN(s.VCFQual[i]) {
			q := s.VCFQual[i]
			r.VCFQual = &q
		}
		out[i] = r
	}
	return out
}
