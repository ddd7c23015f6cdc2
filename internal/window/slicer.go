package window

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/divbrowse/divbrowse/internal/alleles"
	"github.com/divbrowse/divbrowse/internal/genotype"
	"github.com/divbrowse/divbrowse/internal/index"
	"github.com/divbrowse/divbrowse/internal/samples"
	"github.com/divbrowse/divbrowse/internal/stats"
)

// Flank widens a range window by Length base pairs on both sides.
type Flank struct {
	Enabled bool
	Length  int64
}

// Request is one window query.
type Request struct {
	Chrom  string
	Window Descriptor
	// Samples are external sample IDs; nil selects every sample.
	Samples []string
	// Strict fails the request on unresolved sample IDs instead of
	// excluding them.
	Strict bool
	Filter stats.FilterSettings
	Flank  Flank
	// WithCallMetadata also reads the DP and DV call fields.
	WithCallMetadata bool
}

// Slicer resolves requests to windows. It is safe for concurrent use.
type Slicer struct {
	store    genotype.Store
	index    *index.Index
	resolver *samples.Resolver
	counter  alleles.Counter
	filter   *stats.Filter
	logger   *zap.Logger
}

// NewSlicer creates a slicer over store. ix must be built from the store's
// coordinates and resolver from its samples.
func NewSlicer(store genotype.Store, ix *index.Index, resolver *samples.Resolver) (*Slicer, error) {
	counter, err := alleles.NewCounter(store.Ploidy())
	if err != nil {
		return nil, fmt.Errorf("create allele counter: %w", err)
	}
	return &Slicer{
		store:    store,
		index:    ix,
		resolver: resolver,
		counter:  counter,
		filter:   stats.NewFilter(),
		logger:   zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for the slicer and its filter.
func (s *Slicer) SetLogger(l *zap.Logger) {
	s.logger = l
	s.filter.SetLogger(l)
}

// Slice resolves req, reads the window from the store and applies the
// filter settings.
func (s *Slicer) Slice(req Request) (*Window, error) {
	started := time.Now()

	mode, err := req.Window.Mode()
	if err != nil {
		return nil, err
	}
	if req.Flank.Enabled && mode != ModeRange {
		return nil, &InvalidDescriptorError{Reason: "flanking requires startpos and endpos"}
	}
	chrom, err := s.index.Chromosome(req.Chrom)
	if err != nil {
		return nil, err
	}

	var res samples.Resolution
	switch {
	case req.Samples == nil:
		res = s.resolver.All()
	case req.Strict:
		if res, err = s.resolver.ResolveStrict(req.Samples); err != nil {
			return nil, err
		}
	default:
		res = s.resolver.Resolve(req.Samples)
	}

	w := &Window{
		ID:      uuid.New(),
		Chrom:   chrom.ID,
		Mode:    mode,
		Samples: res,
		Ploidy:  s.store.Ploidy(),
		Filter:  req.Filter,
		store:   s.store,
	}
	if mode == ModePositions {
		s.locatePositions(w, chrom, req.Window.Positions)
	} else {
		if err := s.locateBounds(w, chrom, req); err != nil {
			return nil, err
		}
	}
	s.neighbours(w)

	sel := w.selection()
	w.Calls, err = s.store.ReadBlock(sel, res.Mask)
	if err != nil {
		return nil, fmt.Errorf("read window %s:[%d, %d): %w", w.Chrom, w.LocationStart, w.LocationEnd, err)
	}
	w.Alleles, err = s.counter.Count(w.Calls)
	if err != nil {
		return nil, fmt.Errorf("count alleles: %w", err)
	}

	if req.WithCallMetadata {
		w.CallMetadata = make(map[string]*genotype.CallField)
		for _, f := range []string{genotype.FieldDP, genotype.FieldDV} {
			if !genotype.HasField(s.store, genotype.CallData, f) {
				continue
			}
			if w.CallMetadata[f], err = s.store.ReadCallField(f, sel, res.Mask); err != nil {
				return nil, fmt.Errorf("read %s: %w", f, err)
			}
		}
	}

	var sum *stats.Summary
	if req.Filter.Active() {
		if sum, err = w.Summary(); err != nil {
			return nil, err
		}
	}
	w.Filtered = s.filter.Apply(req.Filter, sum, w.Alleles, w.Offsets)

	s.logger.Debug("window resolved",
		zap.Stringer("id", w.ID),
		zap.String("chrom", w.Chrom),
		zap.Stringer("mode", mode),
		zap.Int("variants", w.Len()),
		zap.Int("variants_filtered", len(w.Filtered.Offsets)),
		zap.Int("samples", res.Count()),
		zap.Bool("degenerate_filter", w.Filtered.Degenerate),
		zap.Duration("elapsed", time.Since(started)))
	return w, nil
}

// locateBounds resolves range and anchor+count windows.
func (s *Slicer) locateBounds(w *Window, chrom *index.Chromosome, req Request) error {
	d := req.Window
	first, last := chrom.Start, chrom.End()

	// endExclusive turns the lookup of the last wanted position into a
	// half-open bound covering every row stored at that position.
	endExclusive := func(l index.Lookup) (int, error) {
		end, err := s.index.RunEnd(chrom.ID, l.Offset)
		return end + 1, err
	}

	switch w.Mode {
	case ModeRange:
		start, end := *d.Start, *d.End
		startMethod, endMethod := index.MethodNearest, index.MethodNearest
		if req.Flank.Enabled {
			start -= req.Flank.Length
			end += req.Flank.Length
			startMethod, endMethod = index.Backfill, index.Pad
		}
		ls, err := s.index.Locate(chrom.ID, start, startMethod)
		if err != nil {
			return err
		}
		le, err := s.index.Locate(chrom.ID, end, endMethod)
		if err != nil {
			return err
		}
		w.StartLookup, w.EndLookup = ls.Kind, le.Kind
		w.LocationStart = ls.Offset
		if w.LocationEnd, err = endExclusive(le); err != nil {
			return err
		}

	case ModeFromStart:
		ls, err := s.index.Locate(chrom.ID, *d.Start, index.MethodNearest)
		if err != nil {
			return err
		}
		w.StartLookup, w.EndLookup = ls.Kind, ls.Kind
		w.LocationStart = ls.Offset
		w.LocationEnd = min(ls.Offset+d.Count, last)

	case ModeFromEnd:
		le, err := s.index.Locate(chrom.ID, *d.End, index.MethodNearest)
		if err != nil {
			return err
		}
		w.StartLookup, w.EndLookup = le.Kind, le.Kind
		if w.LocationEnd, err = endExclusive(le); err != nil {
			return err
		}
		w.LocationStart = w.LocationEnd - d.Count
		if w.LocationStart < first {
			// Shift right instead of running off the chromosome start.
			w.LocationStart = first
			w.LocationEnd = min(first+d.Count, last)
		}
	}

	positions, err := s.index.Positions(chrom.ID, w.LocationStart, w.LocationEnd)
	if err != nil {
		return err
	}
	w.Positions = slices.Clone(positions)
	w.Offsets = genotype.Range(w.LocationStart, w.LocationEnd).Slice()
	return nil
}

// locatePositions resolves each requested position independently.
func (s *Slicer) locatePositions(w *Window, chrom *index.Chromosome, positions []int64) {
	seen := make(map[int]bool)
	for _, p := range positions {
		if !chrom.Covers(p) {
			w.PositionsNotFound = append(w.PositionsNotFound, p)
			continue
		}
		l, err := s.index.Locate(chrom.ID, p, index.MethodNearest)
		if err != nil {
			w.PositionsNotFound = append(w.PositionsNotFound, p)
			continue
		}
		w.Lookups = append(w.Lookups, PositionLookup{Requested: p, Offset: l.Offset, Kind: l.Kind})
		if !seen[l.Offset] {
			seen[l.Offset] = true
			w.Offsets = append(w.Offsets, l.Offset)
		}
	}
	slices.Sort(w.Offsets)
	if w.Offsets == nil {
		w.Offsets = []int{}
	}

	w.Positions = make([]int64, len(w.Offsets))
	for i, o := range w.Offsets {
		w.Positions[i], _ = s.index.Position(chrom.ID, o)
	}
	if n := len(w.Offsets); n > 0 {
		w.LocationStart = w.Offsets[0]
		w.LocationEnd = w.Offsets[n-1] + 1
	}
	if len(w.PositionsNotFound) > 0 {
		s.logger.Debug("positions outside chromosome",
			zap.String("chrom", chrom.ID),
			zap.Int64s("positions", w.PositionsNotFound))
	}
}

func (s *Slicer) neighbours(w *Window) {
	if w.Len() == 0 {
		return
	}
	if p, ok := s.index.Position(w.Chrom, w.LocationStart-1); ok {
		w.PrevPosition = &p
	}
	if p, ok := s.index.Position(w.Chrom, w.LocationEnd); ok {
		w.NextPosition = &p
	}
}
