package annotation

import (
	"slices"
	"sort"
)

// Index is an in-memory Source over a fixed feature set.
type Index struct {
	trees map[string]*intervalTree
	// geneStarts holds the distinct gene starts per seqid, ascending.
	geneStarts map[string][]int64
	genes      map[string]map[int64][]*Feature
	// seqids maps store chromosome IDs to feature seqids.
	seqids map[string]string
	counts map[string]int
	n      int
}

var _ Source = (*Index)(nil)

// NewIndex indexes features. labels maps store chromosome IDs to the
// seqids used in the features; chromosomes missing from labels are looked
// up under their own ID.
func NewIndex(features []Feature, labels map[string]string) *Index {
	ix := &Index{
		trees:      make(map[string]*intervalTree),
		geneStarts: make(map[string][]int64),
		genes:      make(map[string]map[int64][]*Feature),
		seqids:     make(map[string]string, len(labels)),
		counts:     make(map[string]int),
		n:          len(features),
	}
	for k, v := range labels {
		ix.seqids[k] = v
	}

	bySeq := make(map[string][]*Feature)
	for i := range features {
		f := &features[i]
		bySeq[f.Seqid] = append(bySeq[f.Seqid], f)
		ix.counts[f.Type]++
		if f.Type != GeneType {
			continue
		}
		g := ix.genes[f.Seqid]
		if g == nil {
			g = make(map[int64][]*Feature)
			ix.genes[f.Seqid] = g
		}
		if _, ok := g[f.Start]; !ok {
			ix.geneStarts[f.Seqid] = append(ix.geneStarts[f.Seqid], f.Start)
		}
		g[f.Start] = append(g[f.Start], f)
	}
	for seq, fs := range bySeq {
		ix.trees[seq] = buildIntervalTree(fs)
	}
	for _, starts := range ix.geneStarts {
		slices.Sort(starts)
	}
	return ix
}

// Len returns the number of indexed features.
func (ix *Index) Len() int { return ix.n }

// Count returns the number of features of the given type.
func (ix *Index) Count(typ string) int { return ix.counts[typ] }

func (ix *Index) seqid(chrom string) string {
	if s, ok := ix.seqids[chrom]; ok {
		return s
	}
	return chrom
}

// Overlapping implements Source.
func (ix *Index) Overlapping(chrom string, start, end int64) []Feature {
	if start > end {
		start, end = end, start
	}
	t, ok := ix.trees[ix.seqid(chrom)]
	if !ok {
		return nil
	}
	return deref(t.overlapping(start, end))
}

// NearestStart implements Source. On a tie the later start wins.
func (ix *Index) NearestStart(chrom string, pos int64) []Feature {
	seq := ix.seqid(chrom)
	starts := ix.geneStarts[seq]
	if len(starts) == 0 {
		return nil
	}
	i := sort.Search(len(starts), func(i int) bool { return starts[i] >= pos })
	var best int64
	switch {
	case i == len(starts):
		best = starts[i-1]
	case i == 0:
		best = starts[0]
	case pos-starts[i-1] < starts[i]-pos:
		best = starts[i-1]
	default:
		best = starts[i]
	}
	return deref(ix.genes[seq][best])
}

func deref(fs []*Feature) []Feature {
	if len(fs) == 0 {
		return nil
	}
	out := make([]Feature, len(fs))
	for i, f := range fs {
		out[i] = *f
	}
	return out
}
