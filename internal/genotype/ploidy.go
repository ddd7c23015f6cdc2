// Package genotype defines the read-only genotype store consumed by the
// windowing engine, together with the call tensor it returns.
package genotype

import "fmt"

// Ploidy is the number of allele copies per call.
type Ploidy int

const (
	Unknown Ploidy = iota
	Haploid
	Diploid
)

// Missing is the allele index (and allele count) used for missing calls.
const Missing int8 = -1

// PloidyFromRank infers ploidy from the rank of a call array: a
// variants × samples array is haploid, variants × samples × 2 is diploid.
func PloidyFromRank(rank int) (Ploidy, error) {
	switch rank {
	case 2:
		return Haploid, nil
	case 3:
		return Diploid, nil
	default:
		return Unknown, fmt.Errorf("unsupported call array rank %d", rank)
	}
}

// Rank returns the rank of the call array for this ploidy.
func (p Ploidy) Rank() int {
	return int(p) + 1
}

// Valid reports whether p is haploid or diploid.
func (p Ploidy) Valid() bool {
	return p == Haploid || p == Diploid
}

func (p Ploidy) String() string {
	switch p {
	case Haploid:
		return "haploid"
	case Diploid:
		return "diploid"
	default:
		return "unknown"
	}
}
