package window

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divbrowse/divbrowse/internal/genotype"
	"github.com/divbrowse/divbrowse/internal/genotype/genotypetest"
	"github.com/divbrowse/divbrowse/internal/index"
	"github.com/divbrowse/divbrowse/internal/samples"
	"github.com/divbrowse/divbrowse/internal/stats"
)

func newTestSlicer(t *testing.T) *Slicer {
	t.Helper()
	store := genotypetest.Diploid()
	require.NoError(t, store.Validate())

	ix, err := index.Build(store.ChromArr, store.PosArr)
	require.NoError(t, err)
	res, err := samples.NewResolver(store.Samples(), nil)
	require.NoError(t, err)
	s, err := NewSlicer(store, ix, res)
	require.NoError(t, err)
	return s
}

func TestSlice_Range(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{Chrom: "1", Window: Between(150, 400)})
	require.NoError(t, err)

	assert.Equal(t, 6, w.LocationEnd-w.LocationStart)
	assert.Equal(t, 1, w.LocationStart)
	assert.Equal(t, []int64{150, 200, 250, 300, 350, 400}, w.Positions)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, w.Offsets)
	assert.Equal(t, index.Direct, w.StartLookup)
	assert.Equal(t, index.Direct, w.EndLookup)
	assert.Equal(t, 4, w.Alleles.Samples)
	assert.Equal(t, 6, w.Alleles.Variants)
	assert.NotEqual(t, uuid.Nil, w.ID)

	require.NotNil(t, w.PrevPosition)
	require.NotNil(t, w.NextPosition)
	assert.Equal(t, int64(100), *w.PrevPosition)
	assert.Equal(t, int64(450), *w.NextPosition)

	for i, off := range w.Offsets {
		for smp := 0; smp < 4; smp++ {
			assert.Equal(t, genotypetest.Count(off, smp), w.Alleles.Count(smp, i), "offset %d sample %d", off, smp)
		}
	}

	assert.Equal(t, Stats{VariantsInWindow: 6, VariantsInWindowFiltered: 6, StartPos: 150, EndPos: 400}, w.Stats())
}

func TestSlice_NearestStart(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{Chrom: "1", Window: Between(120, 200)})
	require.NoError(t, err)
	assert.Equal(t, 0, w.LocationStart)
	assert.Equal(t, index.Nearest, w.StartLookup)
	assert.Equal(t, index.Direct, w.EndLookup)
	assert.Equal(t, int64(100), w.Positions[0])
	assert.Nil(t, w.PrevPosition)
}

func TestSlice_AnchorCount(t *testing.T) {
	s := newTestSlicer(t)

	tests := []struct {
		name       string
		chrom      string
		desc       Descriptor
		start, end int
	}{
		{"end anchor clamps at chromosome start", "1", Before(150, 5), 0, 5},
		{"end anchor", "1", Before(400, 3), 4, 7},
		{"start anchor", "1", After(200, 3), 2, 5},
		{"start anchor stops at chromosome end", "1", After(500, 5), 8, 10},
		{"end anchor on later chromosome", "2", Before(30, 10), 10, 14},
		{"end anchor covers duplicate run", "2", Before(20, 2), 11, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := s.Slice(Request{Chrom: tt.chrom, Window: tt.desc})
			require.NoError(t, err)
			assert.Equal(t, tt.start, w.LocationStart)
			assert.Equal(t, tt.end, w.LocationEnd)
			assert.Len(t, w.Positions, tt.end-tt.start)
		})
	}
}

func TestSlice_Flanking(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{
		Chrom:  "1",
		Window: Between(200, 300),
		Flank:  Flank{Enabled: true, Length: 60},
	})
	require.NoError(t, err)
	// 140 backfills to 100 and 360 pads to 400.
	assert.Equal(t, 0, w.LocationStart)
	assert.Equal(t, 7, w.LocationEnd)

	_, err = s.Slice(Request{Chrom: "1", Window: After(200, 3), Flank: Flank{Enabled: true, Length: 60}})
	var derr *InvalidDescriptorError
	assert.ErrorAs(t, err, &derr)
}

func TestSlice_DuplicatePositions(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{Chrom: "2", Window: Between(20, 20)})
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12}, w.Offsets)
	assert.Equal(t, []int64{20, 20}, w.Positions)
}

func TestSlice_ExplicitPositions(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{Chrom: "1", Window: At(150, 175, 20000, 100, 150)})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, w.Offsets)
	assert.Equal(t, []int64{100, 150}, w.Positions)
	assert.Equal(t, []int64{20000}, w.PositionsNotFound)
	assert.Equal(t, 0, w.LocationStart)
	assert.Equal(t, 2, w.LocationEnd)
	require.Len(t, w.Lookups, 4)
	assert.Equal(t, PositionLookup{Requested: 175, Offset: 1, Kind: index.Nearest}, w.Lookups[1])
	assert.Equal(t, 2, w.Alleles.Variants)

	w, err = s.Slice(Request{Chrom: "1", Window: At(5, 9000)})
	require.NoError(t, err)
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, []int64{5, 9000}, w.PositionsNotFound)
}

func TestSlice_Samples(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{Chrom: "1", Window: Between(100, 200), Samples: []string{"S2", "nope"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"S2"}, w.Samples.Resolved)
	assert.Equal(t, []string{"nope"}, w.Samples.Unresolved)
	assert.Equal(t, 1, w.Alleles.Samples)
	assert.Equal(t, genotypetest.Count(1, 1), w.Alleles.Count(0, 1))

	_, err = s.Slice(Request{Chrom: "1", Window: Between(100, 200), Samples: []string{"S2", "nope"}, Strict: true})
	var rerr *samples.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"nope"}, rerr.Unresolved)
}

func TestSlice_Errors(t *testing.T) {
	s := newTestSlicer(t)

	_, err := s.Slice(Request{Chrom: "X", Window: Between(1, 2)})
	assert.True(t, errors.Is(err, index.ErrChromosomeNotFound))

	var derr *InvalidDescriptorError
	_, err = s.Slice(Request{Chrom: "1"})
	assert.ErrorAs(t, err, &derr)
}

func TestSlice_Filter(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{
		Chrom:  "1",
		Window: Between(100, 550),
		Filter: stats.FilterSettings{
			MAF:         stats.Threshold{Enabled: true, Min: 0.45, Max: 0.5},
			MissingFreq: stats.Threshold{Enabled: true, Min: 0, Max: 0.1},
		},
	})
	require.NoError(t, err)

	assert.False(t, w.Filtered.Degenerate)
	assert.Equal(t, []int{1, 4}, w.FilteredOffsets())
	assert.Equal(t, []int64{150, 300}, w.FilteredPositions())
	assert.Equal(t, 2, w.AlleleMatrix().Variants)
	assert.Equal(t, 10, w.Alleles.Variants)
	assert.Equal(t, Stats{VariantsInWindow: 10, VariantsInWindowFiltered: 2, StartPos: 100, EndPos: 550}, w.Stats())

	recs, err := w.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Offset)
	assert.Equal(t, int64(300), recs[1].Position)
	assert.InDelta(t, 0.5, recs[0].MAF, 1e-12)
	require.NotNil(t, recs[1].VCFQual)
	assert.Equal(t, 40.0, *recs[1].VCFQual)

	// Sample S1 has counts 1 at offsets 1 and 4, encoded 0/1.
	assert.Equal(t, []int8{0, 1, 0, 1}, w.RawCalls()[0])
}

func TestSlice_DegenerateFilter(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{
		Chrom:  "1",
		Window: Between(150, 200),
		Filter: stats.FilterSettings{MAF: stats.Threshold{Enabled: true, Min: 0.49, Max: 0.5}},
	})
	require.NoError(t, err)
	assert.True(t, w.Filtered.Degenerate)
	assert.Equal(t, []int{1, 2}, w.FilteredOffsets())
	assert.Same(t, w.Alleles, w.AlleleMatrix())
}

func TestSlice_CallMetadataAndSummary(t *testing.T) {
	s := newTestSlicer(t)

	w, err := s.Slice(Request{Chrom: "1", Window: Between(300, 400), WithCallMetadata: true})
	require.NoError(t, err)

	require.Contains(t, w.CallMetadata, genotype.FieldDP)
	require.Contains(t, w.CallMetadata, genotype.FieldDV)
	dp := w.CallMetadata[genotype.FieldDP].SampleMajor()
	assert.Equal(t, []int32{10 + 4 + 2, 10 + 5 + 2, 10 + 6 + 2}, dp[2])

	sum, err := w.Summary()
	require.NoError(t, err)
	require.Len(t, sum.VCFQual, 3)
	assert.Equal(t, 40.0, sum.VCFQual[0])
	assert.NotNil(t, sum.HeterozygosityFreq)

	again, err := w.Summary()
	require.NoError(t, err)
	assert.Same(t, sum, again)
}

func TestDescriptor_Mode(t *testing.T) {
	tests := []struct {
		name    string
		d       Descriptor
		want    Mode
		wantErr bool
	}{
		{"range", Between(1, 5), ModeRange, false},
		{"from start", After(1, 3), ModeFromStart, false},
		{"from end", Before(9, 3), ModeFromEnd, false},
		{"positions", At(4, 2), ModePositions, false},
		{"empty", Descriptor{}, 0, true},
		{"anchor without count", Descriptor{Start: After(1, 0).Start}, 0, true},
		{"reversed range", Between(9, 1), 0, true},
		{"positions with start", Descriptor{Start: After(1, 1).Start, Positions: []int64{1}}, 0, true},
		{"count with range", Descriptor{Start: After(1, 0).Start, End: Before(5, 0).End, Count: 2}, 0, true},
		{"negative count", After(1, -2), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.d.Mode()
			if tt.wantErr {
				var derr *InvalidDescriptorError
				assert.ErrorAs(t, err, &derr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
