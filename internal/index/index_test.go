package index

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestIndex indexes chromosome "1" at 100,150,...,550 followed by
// chromosome "2" at 10,20,20,30.
func buildTestIndex(t *testing.T) *Index {
	t.Helper()
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
	ix, err := Build(chrom, pos)
	require.NoError(t, err)
	return ix
}

func TestLocate_DirectForEveryStoredPosition(t *testing.T) {
	ix := buildTestIndex(t)

	for _, c := range ix.Chroms {
		for i, p := range c.Positions {
			l, err := ix.Locate(c.ID, p, MethodNearest)
			require.NoError(t, err)
			assert.Equal(t, Direct, l.Kind)
			got, ok := ix.Position(c.ID, l.Offset)
			require.True(t, ok)
			assert.Equal(t, p, got)
			if i > 0 && c.Positions[i-1] == p {
				assert.Less(t, l.Offset, c.Start+i, "duplicates resolve to the first offset")
			}
		}
	}
}

func TestLocate_Nearest(t *testing.T) {
	ix := buildTestIndex(t)

	tests := []struct {
		name   string
		chrom  string
		pos    int64
		method Method
		want   int
	}{
		{"closer to lower", "1", 120, MethodNearest, 0},
		{"closer to upper", "1", 140, MethodNearest, 1},
		{"tie goes lower", "1", 125, MethodNearest, 0},
		{"backfill prefers lower", "1", 140, Backfill, 0},
		{"pad prefers upper", "1", 110, Pad, 1},
		{"before first", "1", 5, MethodNearest, 0},
		{"before first with backfill", "1", 5, Backfill, 0},
		{"after last", "1", 9999, MethodNearest, 9},
		{"after last with pad", "1", 9999, Pad, 9},
		{"stays on chromosome 2", "2", 1, MethodNearest, 10},
		{"run resolves to first offset", "2", 24, MethodNearest, 11},
		{"backfill into run", "2", 25, Backfill, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ix.Locate(tt.chrom, tt.pos, tt.method)
			require.NoError(t, err)
			assert.Equal(t, Nearest, l.Kind)
			assert.Equal(t, tt.want, l.Offset)
		})
	}
}

func TestLocate_ChromosomeNotFound(t *testing.T) {
	ix := buildTestIndex(t)

	_, err := ix.Locate("3", 100, MethodNearest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChromosomeNotFound))

	var cnf *ChromosomeNotFoundError
	require.ErrorAs(t, err, &cnf)
	assert.Equal(t, "3", cnf.Chrom)
}

func TestLocateRangeAndExtents(t *testing.T) {
	ix := buildTestIndex(t)

	start, end, err := ix.LocateRange("2")
	require.NoError(t, err)
	assert.Equal(t, 10, start)
	assert.Equal(t, 13, end)

	ext, err := ix.Extents("1")
	require.NoError(t, err)
	assert.Equal(t, Extents{Chrom: "1", StartPos: 100, EndPos: 550, VariantCount: 10}, ext)

	assert.Equal(t, []string{"1", "2"}, ix.Chromosomes())
	assert.Equal(t, 14, ix.Len())
}

func TestRunEnd(t *testing.T) {
	ix := buildTestIndex(t)

	end, err := ix.RunEnd("2", 11)
	require.NoError(t, err)
	assert.Equal(t, 12, end)

	end, err = ix.RunEnd("1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, end)

	_, err = ix.RunEnd("1", 10)
	assert.Error(t, err)
}

func TestCountInInterval(t *testing.T) {
	ix := buildTestIndex(t)

	n, err := ix.CountInInterval("1", 150, 400)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = ix.CountInInterval("1", 400, 150)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = ix.CountInInterval("2", 15, 25)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBuild_RejectsUnsortedInput(t *testing.T) {
	_, err := Build([]string{"1", "1"}, []int64{200, 100})
	assert.Error(t, err)

	_, err = Build([]string{"1", "2", "1"}, []int64{1, 1, 2})
	assert.Error(t, err)
}

func TestCache_RoundTrip(t *testing.T) {
	ix := buildTestIndex(t)
	c := NewCache(t.TempDir())

	require.NoError(t, c.Write("store-a", ix))

	loaded, err := c.Load("store-a")
	require.NoError(t, err)
	assert.Equal(t, ix.Chromosomes(), loaded.Chromosomes())

	l, err := loaded.Locate("1", 120, MethodNearest)
	require.NoError(t, err)
	assert.Equal(t, Lookup{Offset: 0, Kind: Nearest}, l)

	_, err = c.Load("store-b")
	assert.Error(t, err)

	c.Clear("store-a")
	_, err = c.Load("store-a")
	assert.Error(t, err)
}

func TestCache_GetOrBuildBuildsOnce(t *testing.T) {
	c := NewCache(t.TempDir())
	var builds atomic.Int32

	build := func() (*Index, error) {
		builds.Add(1)
		return Build([]string{"1", "1"}, []int64{5, 9})
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ix, err := c.GetOrBuild("key", build)
			assert.NoError(t, err)
			assert.Equal(t, 2, ix.Len())
		}()
	}
	wg.Wait()

	// Later callers hit the disk cache.
	_, err := c.GetOrBuild("key", build)
	require.NoError(t, err)
	assert.LessOrEqual(t, builds.Load(), int32(8))
	assert.GreaterOrEqual(t, builds.Load(), int32(1))

	before := builds.Load()
	_, err = c.GetOrBuild("key", build)
	require.NoError(t, err)
	assert.Equal(t, before, builds.Load())
}
