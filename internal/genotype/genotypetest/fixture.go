// Package genotypetest provides small in-memory genotype stores for tests.
package genotypetest

import (
	"fmt"
	"math"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// Samples are the sample IDs of the fixture store.
var Samples = []string{"S1", "S2", "S3", "S4"}

// Diploid returns a store with chromosome "1" at 100, 150, ..., 550
// (offsets 0-9) and chromosome "2" at 10, 20, 20, 30 (offsets 10-13), called
// for the four Samples.
//
// The allele count of sample s at offset v is (v+s) % 3, encoded as 0/0,
// 0/1 or 1/1. Sample S4 is missing at every offset v with v%4 == 3. QUAL is
// 10*v except for offset 5, which has none. DP is 10+v+s and DV is v%2.
func Diploid() *genotype.MemStore {
	var chrom []string
	var pos []int64
	for p := int64(100); p <= 550; p += 50 {
		chrom = append(chrom, "1")
		pos = append(pos, p)
	}
	for _, p := range []int64{10, 20, 20, 30} {
		chrom = append(chrom, "2")
		pos = append(pos, p)
	}

	n, m := len(pos), len(Samples)
	gt := genotype.NewCalls(n, m, genotype.Diploid)
	dp := genotype.NewCallField(genotype.FieldDP, n, m)
	dv := genotype.NewCallField(genotype.FieldDV, n, m)
	ref := make([]string, n)
	alt := make([][]string, n)
	qual := make([]float64, n)
	ann := make([]string, n)

	for v := 0; v < n; v++ {
		ref[v] = "A"
		alt[v] = []string{"G"}
		qual[v] = float64(10 * v)
		ann[v] = fmt.Sprintf("G|variant_%d", v)
		for s := 0; s < m; s++ {
			dp.Set(v, s, int32(10+v+s))
			dv.Set(v, s, int32(v%2))
			if s == 3 && v%4 == 3 {
				continue
			}
			switch Count(v, s) {
			case 0:
				gt.Set(v, s, 0, 0)
				gt.Set(v, s, 1, 0)
			case 1:
				gt.Set(v, s, 0, 0)
				gt.Set(v, s, 1, 1)
			case 2:
				gt.Set(v, s, 0, 1)
				gt.Set(v, s, 1, 1)
			}
		}
	}
	qual[5] = math.NaN()
	alt[12] = []string{"G", "T"}

	return &genotype.MemStore{
		ChromArr:   chrom,
		PosArr:     pos,
		SampleIDs:  Samples,
		GT:         gt,
		Ref:        ref,
		Alt:        alt,
		Qual:       qual,
		Ann:        ann,
		CallFields: map[string]*genotype.CallField{genotype.FieldDP: dp, genotype.FieldDV: dv},
	}
}

// Count returns the fixture's allele count for offset v and sample index s,
// or -1 if the call is missing.
func Count(v, s int) int8 {
	if s == 3 && v%4 == 3 {
		return genotype.Missing
	}
	return int8((v + s) % 3)
}

// Haploid returns a single-chromosome haploid store with three samples at
// positions 1..n. Allele index of sample s at offset v is (v*s) % 2.
func Haploid(n int) *genotype.MemStore {
	samples := []string{"H1", "H2", "H3"}
	chrom := make([]string, n)
	pos := make([]int64, n)
	gt := genotype.NewCalls(n, len(samples), genotype.Haploid)
	for v := 0; v < n; v++ {
		chrom[v] = "chr1"
		pos[v] = int64(v + 1)
		for s := range samples {
			gt.Set(v, s, 0, int8((v*s)%2))
		}
	}
	return &genotype.MemStore{ChromArr: chrom, PosArr: pos, SampleIDs: samples, GT: gt}
}
