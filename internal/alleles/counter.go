package alleles

import (
	"fmt"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// Counter converts a variant-major call tensor into a sample-major matrix of
// non-reference allele counts.
type Counter interface {
	Ploidy() genotype.Ploidy
	Count(calls *genotype.Calls) (*Matrix, error)
}

// NewCounter returns the counter for the given ploidy.
func NewCounter(p genotype.Ploidy) (Counter, error) {
	switch p {
	case genotype.Haploid:
		return haploidCounter{}, nil
	case genotype.Diploid:
		return diploidCounter{}, nil
	default:
		return nil, fmt.Errorf("no allele counter for ploidy %s", p)
	}
}

type haploidCounter struct{}

func (haploidCounter) Ploidy() genotype.Ploidy { return genotype.Haploid }

// Count transposes the calls; allele indices pass through unchanged.
func (haploidCounter) Count(calls *genotype.Calls) (*Matrix, error) {
	if calls.Ploidy != genotype.Haploid {
		return nil, fmt.Errorf("haploid counter given %s calls", calls.Ploidy)
	}
	m := NewMatrix(calls.Samples, calls.Variants)
	for v := 0; v < calls.Variants; v++ {
		for s := 0; s < calls.Samples; s++ {
			m.SetCount(s, v, calls.At(v, s, 0))
		}
	}
	return m, nil
}

type diploidCounter struct{}

func (diploidCounter) Ploidy() genotype.Ploidy { return genotype.Diploid }

// Count returns the number of non-zero alleles per call, or Missing when
// either allele is missing.
func (diploidCounter) Count(calls *genotype.Calls) (*Matrix, error) {
	if calls.Ploidy != genotype.Diploid {
		return nil, fmt.Errorf("diploid counter given %s calls", calls.Ploidy)
	}
	m := NewMatrix(calls.Samples, calls.Variants)
	for v := 0; v < calls.Variants; v++ {
		for s := 0; s < calls.Samples; s++ {
			m.SetCount(s, v, countAlt(calls.Call(v, s)))
		}
	}
	return m, nil
}

func countAlt(call []int8) int8 {
	var n int8
	for _, a := range call {
		if a < 0 {
			return Missing
		}
		if a != 0 {
			n++
		}
	}
	return n
}
