package annotation

import "sort"

// intervalTree answers overlap queries over features of one sequence using
// a slice sorted by start. Built once and never modified.
type intervalTree struct {
	features []*Feature
	maxEnd   []int64 // maxEnd[i] = max(End) for features[:i+1]
}

func buildIntervalTree(features []*Feature) *intervalTree {
	if len(features) == 0 {
		return &intervalTree{}
	}
	sorted := make([]*Feature, len(features))
	copy(sorted, features)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	maxEnd := make([]int64, len(sorted))
	maxEnd[0] = sorted[0].End
	for i := 1; i < len(sorted); i++ {
		maxEnd[i] = max(maxEnd[i-1], sorted[i].End)
	}
	return &intervalTree{features: sorted, maxEnd: maxEnd}
}

// overlapping returns the features intersecting [start, end] in start order.
func (t *intervalTree) overlapping(start, end int64) []*Feature {
	if len(t.features) == 0 || start > end {
		return nil
	}
	// Candidates are [0, hi): every feature starting at or before end.
	hi := sort.Search(len(t.features), func(i int) bool {
		return t.features[i].Start > end
	})

	var result []*Feature
	for i := hi - 1; i >= 0; i-- {
		// Nothing in features[:i+1] reaches start.
		if t.maxEnd[i] < start {
			break
		}
		if t.features[i].End >= start {
			result = append(result, t.features[i])
		}
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}
