// Package annotation provides genomic features (genes, exons, ...) that
// overlap or neighbour a variant window.
package annotation

import "strings"

// GeneType is the feature type used for nearest-feature lookups.
const GeneType = "gene"

// Feature is one GFF3 record. Coordinates are 1-based and inclusive.
type Feature struct {
	Seqid  string   `json:"seqid"`
	Source string   `json:"source"`
	Type   string   `json:"type"`
	Start  int64    `json:"start"`
	End    int64    `json:"end"`
	Score  *float64 `json:"score,omitempty"`
	// Strand is "+", "-", "." or "?".
	Strand string `json:"strand"`
	Phase  *int   `json:"phase,omitempty"`
	// Attributes holds column 9, percent-decoded. Multi-valued attributes
	// keep their comma-separated form.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ID returns the ID attribute.
func (f *Feature) ID() string { return f.Attributes["ID"] }

// Name returns the Name attribute, falling back to ID.
func (f *Feature) Name() string {
	if n := f.Attributes["Name"]; n != "" {
		return n
	}
	return f.ID()
}

// Parents returns the IDs listed in the Parent attribute.
func (f *Feature) Parents() []string {
	p := f.Attributes["Parent"]
	if p == "" {
		return nil
	}
	return strings.Split(p, ",")
}

// Overlaps reports whether f intersects the inclusive interval [start, end].
func (f *Feature) Overlaps(start, end int64) bool {
	return f.Start <= end && f.End >= start
}

// Source answers feature queries in store chromosome coordinates.
// Implementations map store chromosome IDs to their own sequence IDs.
type Source interface {
	// Overlapping returns the features on chrom intersecting the inclusive
	// interval [start, end], ordered by start.
	Overlapping(chrom string, start, end int64) []Feature
	// NearestStart returns the genes on chrom whose start is closest to pos.
	// Several genes may share that start. It returns nil when chrom has no
	// genes.
	NearestStart(chrom string, pos int64) []Feature
}
