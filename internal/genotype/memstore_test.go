package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willf/bitset"
)

func newTestStore(t *testing.T) *MemStore {
	t.Helper()
	gt := NewCalls(3, 3, Diploid)
	// variant 0: 0/0 0/1 1/1
	gt.Set(0, 0, 0, 0)
	gt.Set(0, 0, 1, 0)
	gt.Set(0, 1, 0, 0)
	gt.Set(0, 1, 1, 1)
	gt.Set(0, 2, 0, 1)
	gt.Set(0, 2, 1, 1)
	// variant 1: ./. 0/0 0/1
	gt.Set(1, 1, 0, 0)
	gt.Set(1, 1, 1, 0)
	gt.Set(1, 2, 0, 0)
	gt.Set(1, 2, 1, 1)
	// variant 2: 1/1 1/1 0/0
	for s := 0; s < 2; s++ {
		gt.Set(2, s, 0, 1)
		gt.Set(2, s, 1, 1)
	}
	gt.Set(2, 2, 0, 0)
	gt.Set(2, 2, 1, 0)

	dp := NewCallField(FieldDP, 3, 3)
	for v := 0; v < 3; v++ {
		for s := 0; s < 3; s++ {
			dp.Set(v, s, int32(10*v+s))
		}
	}

	m := &MemStore{
		ChromArr:   []string{"1", "1", "2"},
		PosArr:     []int64{100, 200, 50},
		SampleIDs:  []string{"s1", "s2", "s3"},
		GT:         gt,
		Ref:        []string{"A", "C", "G"},
		Alt:        [][]string{{"T"}, {"G", "A"}, {"C"}},
		Qual:       []float64{30, 40, 50},
		CallFields: map[string]*CallField{FieldDP: dp},
	}
	require.NoError(t, m.Validate())
	return m
}

func TestMemStore_ReadBlockRangeAndMask(t *testing.T) {
	m := newTestStore(t)

	mask := bitset.New(3)
	mask.Set(0)
	mask.Set(2)

	calls, err := m.ReadBlock(Range(0, 2), mask)
	require.NoError(t, err)
	assert.Equal(t, 2, calls.Variants)
	assert.Equal(t, 2, calls.Samples)
	assert.Equal(t, []int8{0, 0}, calls.Call(0, 0))
	assert.Equal(t, []int8{1, 1}, calls.Call(0, 1))
	assert.Equal(t, []int8{Missing, Missing}, calls.Call(1, 0))
	assert.Equal(t, []int8{0, 1}, calls.Call(1, 1))
}

func TestMemStore_ReadBlockList(t *testing.T) {
	m := newTestStore(t)

	calls, err := m.ReadBlock(List([]int{0, 2}), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls.Variants)
	assert.Equal(t, 3, calls.Samples)
	assert.Equal(t, []int8{1, 1}, calls.Call(1, 0))
	assert.Equal(t, []int8{0, 0}, calls.Call(1, 2))
}

func TestMemStore_ReadBlockRejectsBadSelection(t *testing.T) {
	m := newTestStore(t)

	_, err := m.ReadBlock(Range(1, 5), nil)
	assert.Error(t, err)

	_, err = m.ReadBlock(List([]int{2, 1}), nil)
	assert.Error(t, err)
}

func TestMemStore_ReadColumn(t *testing.T) {
	m := newTestStore(t)

	alt, err := m.ReadColumn(FieldALT, List([]int{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"G", "A"}, {"C"}}, alt.Strings)

	qual, err := m.ReadColumn(FieldQUAL, Range(0, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 40, 50}, qual.Floats)

	_, err = m.ReadColumn(FieldANN, Range(0, 1))
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestMemStore_ReadCallField(t *testing.T) {
	m := newTestStore(t)

	mask := bitset.New(3)
	mask.Set(1)

	dp, err := m.ReadCallField(FieldDP, Range(1, 3), mask)
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{11, 21}}, dp.SampleMajor())

	_, err = m.ReadCallField(FieldDV, Range(0, 1), nil)
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestMemStore_Fields(t *testing.T) {
	m := newTestStore(t)

	assert.True(t, HasField(m, CallData, FieldDP))
	assert.False(t, HasField(m, CallData, FieldDV))
	assert.True(t, HasField(m, VariantData, FieldQUAL))
	assert.False(t, HasField(m, VariantData, FieldANN))
}

func TestCheckCoordinates(t *testing.T) {
	assert.NoError(t, CheckCoordinates([]string{"1", "1", "2"}, []int64{5, 5, 1}))
	assert.Error(t, CheckCoordinates([]string{"1", "1"}, []int64{5, 4}))
	assert.Error(t, CheckCoordinates([]string{"1", "2", "1"}, []int64{1, 1, 2}))
}

func TestCalls_SampleMajor(t *testing.T) {
	m := newTestStore(t)

	rows := m.GT.SampleMajor()
	require.Len(t, rows, 3)
	assert.Equal(t, []int8{0, 1, 0, 0, 1, 1}, rows[1])
}

func TestPloidyFromRank(t *testing.T) {
	p, err := PloidyFromRank(2)
	require.NoError(t, err)
	assert.Equal(t, Haploid, p)

	p, err = PloidyFromRank(3)
	require.NoError(t, err)
	assert.Equal(t, Diploid, p)

	_, err = PloidyFromRank(4)
	assert.Error(t, err)
}
