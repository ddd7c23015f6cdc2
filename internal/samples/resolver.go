package samples

import (
	"fmt"
	"strings"

	"github.com/willf/bitset"
	"go.uber.org/zap"
)

// ResolutionError lists sample IDs that could not be resolved.
type ResolutionError struct {
	Unresolved []string
}

func (e *ResolutionError) Error() string {
	return "the following sample-IDs could not be resolved: " + strings.Join(e.Unresolved, ", ")
}

// Resolution is the outcome of resolving a list of sample IDs.
type Resolution struct {
	// Mask has one bit per store sample, set for selected samples.
	Mask *bitset.BitSet
	// Indices are the store offsets of the selected samples, ascending.
	Indices []int
	// Resolved are the external IDs of the selected samples, in store order.
	Resolved []string
	// Unresolved are requested IDs not found, in request order.
	Unresolved []string
}

// Count returns the number of selected samples.
func (r Resolution) Count() int {
	return len(r.Indices)
}

// Resolver maps sample IDs to store positions. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	ids     []string
	offsets map[string]int
	mapping *Mapping
	logger  *zap.Logger
}

// NewResolver creates a resolver over the store's sample IDs. mapping may be
// nil when callers use the store IDs directly.
func NewResolver(storeIDs []string, mapping *Mapping) (*Resolver, error) {
	offsets := make(map[string]int, len(storeIDs))
	for i, id := range storeIDs {
		if _, dup := offsets[id]; dup {
			return nil, fmt.Errorf("duplicate sample ID %q in store", id)
		}
		offsets[id] = i
	}
	return &Resolver{ids: storeIDs, offsets: offsets, mapping: mapping, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger for unresolved-ID messages.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// HasMapping reports whether an ID translation table is configured.
func (r *Resolver) HasMapping() bool {
	return r.mapping != nil
}

// Len returns the number of store samples.
func (r *Resolver) Len() int {
	return len(r.ids)
}

// External returns the caller-facing ID of a store sample.
func (r *Resolver) External(storeID string) string {
	if r.mapping != nil {
		if ext, ok := r.mapping.External(storeID); ok {
			return ext
		}
	}
	return storeID
}

// ExternalIDs returns the caller-facing IDs of all store samples in store
// order.
func (r *Resolver) ExternalIDs() []string {
	out := make([]string, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.External(id)
	}
	return out
}

// Resolve selects the store samples named by ids. Unknown IDs are reported
// in the result and otherwise ignored.
func (r *Resolver) Resolve(ids []string) Resolution {
	mask := bitset.New(uint(len(r.ids)))
	var unresolved []string
	seenMissing := make(map[string]bool)

	for _, id := range ids {
		off, ok := r.lookup(id)
		if !ok {
			if !seenMissing[id] {
				seenMissing[id] = true
				unresolved = append(unresolved, id)
			}
			continue
		}
		mask.Set(uint(off))
	}

	res := r.fromMask(mask)
	res.Unresolved = unresolved
	if len(unresolved) > 0 {
		r.logger.Debug("excluding unresolved sample IDs", zap.Strings("unresolved", unresolved))
	}
	return res
}

// ResolveStrict is Resolve but fails with a *ResolutionError if any ID is
// unknown.
func (r *Resolver) ResolveStrict(ids []string) (Resolution, error) {
	res := r.Resolve(ids)
	if len(res.Unresolved) > 0 {
		return res, &ResolutionError{Unresolved: res.Unresolved}
	}
	return res, nil
}

// All selects every store sample.
func (r *Resolver) All() Resolution {
	mask := bitset.New(uint(len(r.ids)))
	for i := range r.ids {
		mask.Set(uint(i))
	}
	return r.fromMask(mask)
}

func (r *Resolver) lookup(id string) (int, bool) {
	storeID := id
	if r.mapping != nil {
		in, ok := r.mapping.Internal(id)
		if !ok {
			return 0, false
		}
		storeID = in
	}
	off, ok := r.offsets[storeID]
	return off, ok
}

func (r *Resolver) fromMask(mask *bitset.BitSet) Resolution {
	n := int(mask.Count())
	res := Resolution{
		Mask:     mask,
		Indices:  make([]int, 0, n),
		Resolved: make([]string, 0, n),
	}
	for i, ok := mask.NextSet(0); ok; i, ok = mask.NextSet(i + 1) {
		res.Indices = append(res.Indices, int(i))
		res.Resolved = append(res.Resolved, r.External(r.ids[i]))
	}
	return res
}
