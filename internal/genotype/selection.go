package genotype

import "fmt"

// Selection picks rows along the variant axis. It is either a contiguous
// half-open range [Start, End) or, when Offsets is non-nil, an explicit
// ascending list of offsets.
type Selection struct {
	Start   int
	End     int
	Offsets []int
}

// Range returns a contiguous selection.
func Range(start, end int) Selection {
	return Selection{Start: start, End: end}
}

// List returns a scattered selection. offsets must be ascending.
func List(offsets []int) Selection {
	if offsets == nil {
		offsets = []int{}
	}
	return Selection{Offsets: offsets}
}

// IsRange reports whether the selection is contiguous.
func (s Selection) IsRange() bool {
	return s.Offsets == nil
}

// Len returns the number of selected variants.
func (s Selection) Len() int {
	if s.Offsets != nil {
		return len(s.Offsets)
	}
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Offset returns the i-th selected variant offset.
func (s Selection) Offset(i int) int {
	if s.Offsets != nil {
		return s.Offsets[i]
	}
	return s.Start + i
}

// Slice returns the selected offsets as a new slice.
func (s Selection) Slice() []int {
	out := make([]int, s.Len())
	for i := range out {
		out[i] = s.Offset(i)
	}
	return out
}

// Validate checks the selection against a variant axis of length n.
func (s Selection) Validate(n int) error {
	if s.Offsets == nil {
		if s.Start < 0 || s.End > n || s.Start > s.End {
			return fmt.Errorf("selection [%d, %d) outside variant axis of length %d", s.Start, s.End, n)
		}
		return nil
	}
	prev := -1
	for _, o := range s.Offsets {
		if o < 0 || o >= n {
			return fmt.Errorf("offset %d outside variant axis of length %d", o, n)
		}
		if o <= prev {
			return fmt.Errorf("offsets not strictly ascending at %d", o)
		}
		prev = o
	}
	return nil
}
