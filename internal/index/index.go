// Package index maps physical chromosome positions to offsets along the
// variant axis of a genotype store.
package index

import (
	"errors"
	"fmt"
	"sort"
)

// Kind tells how a lookup was resolved.
type Kind int

const (
	// Direct means the requested position is stored.
	Direct Kind = iota
	// Nearest means a neighbouring stored position was returned.
	Nearest
)

func (k Kind) String() string {
	if k == Direct {
		return "direct_lookup"
	}
	return "nearest_lookup"
}

// Method selects the neighbour returned when a position is not stored.
type Method int

const (
	// MethodNearest picks the closest stored position, ties going to the
	// lower position.
	MethodNearest Method = iota
	// Backfill prefers the closest stored position <= pos.
	Backfill
	// Pad prefers the closest stored position >= pos.
	Pad
)

// Lookup is the result of locating a position.
type Lookup struct {
	Offset int
	Kind   Kind
}

// ErrChromosomeNotFound is matched by ChromosomeNotFoundError via errors.Is.
var ErrChromosomeNotFound = errors.New("chromosome not found")

// ChromosomeNotFoundError reports a chromosome absent from the index.
type ChromosomeNotFoundError struct {
	Chrom string
}

func (e *ChromosomeNotFoundError) Error() string {
	return fmt.Sprintf("the provided chromosome %s is not included in the variant matrix", e.Chrom)
}

func (e *ChromosomeNotFoundError) Is(target error) bool {
	return target == ErrChromosomeNotFound
}

// Chromosome is the sorted position list of one chromosome block. The
// variant at Positions[i] lives at offset Start+i.
type Chromosome struct {
	ID        string
	Start     int
	Positions []int64
}

// End returns the exclusive end offset of the block.
func (c *Chromosome) End() int {
	return c.Start + len(c.Positions)
}

// Covers reports whether pos lies between the first and last stored
// positions, inclusive.
func (c *Chromosome) Covers(pos int64) bool {
	return pos >= c.Positions[0] && pos <= c.Positions[len(c.Positions)-1]
}

// Extents summarises a chromosome block.
type Extents struct {
	Chrom        string `json:"id"`
	StartPos     int64  `json:"start"`
	EndPos       int64  `json:"end"`
	VariantCount int    `json:"number_of_variants"`
}

// Index holds one Chromosome per chromosome ID. It is read-only after Build.
type Index struct {
	Chroms []*Chromosome
	byID   map[string]*Chromosome
}

// Build creates an index from the coordinate arrays of a store. Each
// chromosome must occupy one contiguous block with non-decreasing positions.
func Build(chrom []string, pos []int64) (*Index, error) {
	if len(chrom) != len(pos) {
		return nil, fmt.Errorf("chrom has %d entries, pos has %d", len(chrom), len(pos))
	}

	ix := &Index{}
	for i := 0; i < len(chrom); {
		j := i + 1
		for j < len(chrom) && chrom[j] == chrom[i] {
			if pos[j] < pos[j-1] {
				return nil, fmt.Errorf("positions not sorted on chromosome %s at offset %d", chrom[i], j)
			}
			j++
		}
		positions := make([]int64, j-i)
		copy(positions, pos[i:j])
		ix.Chroms = append(ix.Chroms, &Chromosome{ID: chrom[i], Start: i, Positions: positions})
		i = j
	}

	if err := ix.init(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *Index) init() error {
	ix.byID = make(map[string]*Chromosome, len(ix.Chroms))
	for _, c := range ix.Chroms {
		if _, dup := ix.byID[c.ID]; dup {
			return fmt.Errorf("chromosome %s is not contiguous", c.ID)
		}
		if len(c.Positions) == 0 {
			return fmt.Errorf("chromosome %s has no positions", c.ID)
		}
		ix.byID[c.ID] = c
	}
	return nil
}

// Chromosome returns the block for chrom.
func (ix *Index) Chromosome(chrom string) (*Chromosome, error) {
	c, ok := ix.byID[chrom]
	if !ok {
		return nil, &ChromosomeNotFoundError{Chrom: chrom}
	}
	return c, nil
}

// Has reports whether chrom is indexed.
func (ix *Index) Has(chrom string) bool {
	_, ok := ix.byID[chrom]
	return ok
}

// Chromosomes returns the chromosome IDs in store order.
func (ix *Index) Chromosomes() []string {
	ids := make([]string, len(ix.Chroms))
	for i, c := range ix.Chroms {
		ids[i] = c.ID
	}
	return ids
}

// Len returns the total number of indexed variants.
func (ix *Index) Len() int {
	n := 0
	for _, c := range ix.Chroms {
		n += len(c.Positions)
	}
	return n
}

// Locate returns the offset of pos on chrom. A stored position yields a
// Direct lookup at the first offset holding it; otherwise the neighbour
// chosen by method is returned as Nearest. The search never leaves chrom.
func (ix *Index) Locate(chrom string, pos int64, method Method) (Lookup, error) {
	c, err := ix.Chromosome(chrom)
	if err != nil {
		return Lookup{}, err
	}
	return c.locate(pos, method), nil
}

func (c *Chromosome) locate(pos int64, method Method) Lookup {
	ps := c.Positions
	i := sort.Search(len(ps), func(i int) bool { return ps[i] >= pos })
	if i < len(ps) && ps[i] == pos {
		return Lookup{Offset: c.Start + i, Kind: Direct}
	}

	lo, hi := i-1, i
	hasLo, hasHi := lo >= 0, hi < len(ps)

	var pick int
	switch {
	case !hasLo:
		pick = hi
	case !hasHi:
		pick = lo
	case method == Backfill:
		pick = lo
	case method == Pad:
		pick = hi
	case pos-ps[lo] <= ps[hi]-pos:
		pick = lo
	default:
		pick = hi
	}

	// Normalise to the first offset of a run of equal positions.
	first := sort.Search(pick+1, func(j int) bool { return ps[j] >= ps[pick] })
	return Lookup{Offset: c.Start + first, Kind: Nearest}
}

// RunEnd returns the last offset on chrom holding the same position as
// offset. Stores that split multi-allelic sites keep several rows per
// position.
func (ix *Index) RunEnd(chrom string, offset int) (int, error) {
	c, err := ix.Chromosome(chrom)
	if err != nil {
		return 0, err
	}
	if offset < c.Start || offset >= c.End() {
		return 0, fmt.Errorf("offset %d outside chromosome %s", offset, chrom)
	}
	i := offset - c.Start
	for i+1 < len(c.Positions) && c.Positions[i+1] == c.Positions[i] {
		i++
	}
	return c.Start + i, nil
}

// LocateRange returns the first and last (inclusive) offsets of chrom.
func (ix *Index) LocateRange(chrom string) (start, end int, err error) {
	c, err := ix.Chromosome(chrom)
	if err != nil {
		return 0, 0, err
	}
	return c.Start, c.End() - 1, nil
}

// Extents returns the first and last positions and variant count of chrom.
func (ix *Index) Extents(chrom string) (Extents, error) {
	c, err := ix.Chromosome(chrom)
	if err != nil {
		return Extents{}, err
	}
	return Extents{
		Chrom:        c.ID,
		StartPos:     c.Positions[0],
		EndPos:       c.Positions[len(c.Positions)-1],
		VariantCount: len(c.Positions),
	}, nil
}

// Position returns the physical position stored at offset, which must lie
// on chrom.
func (ix *Index) Position(chrom string, offset int) (int64, bool) {
	c, ok := ix.byID[chrom]
	if !ok || offset < c.Start || offset >= c.End() {
		return 0, false
	}
	return c.Positions[offset-c.Start], true
}

// Positions returns the physical positions of [start, end) on chrom. The
// slice aliases the index.
func (ix *Index) Positions(chrom string, start, end int) ([]int64, error) {
	c, err := ix.Chromosome(chrom)
	if err != nil {
		return nil, err
	}
	if start < c.Start || end > c.End() || start > end {
		return nil, fmt.Errorf("offsets [%d, %d) outside chromosome %s", start, end, chrom)
	}
	return c.Positions[start-c.Start : end-c.Start], nil
}

// CountInInterval counts stored positions p on chrom with start <= p <= end.
// Reversed bounds are swapped.
func (ix *Index) CountInInterval(chrom string, start, end int64) (int, error) {
	c, err := ix.Chromosome(chrom)
	if err != nil {
		return 0, err
	}
	if start > end {
		start, end = end, start
	}
	ps := c.Positions
	lo := sort.Search(len(ps), func(i int) bool { return ps[i] >= start })
	hi := sort.Search(len(ps), func(i int) bool { return ps[i] > end })
	return hi - lo, nil
}
