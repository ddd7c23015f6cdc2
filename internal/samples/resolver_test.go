package samples

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_LenientPath(t *testing.T) {
	r, err := NewResolver([]string{"A", "B", "C", "D"}, nil)
	require.NoError(t, err)

	res := r.Resolve([]string{"C", "nope"})
	assert.Equal(t, []string{"C"}, res.Resolved)
	assert.Equal(t, []string{"nope"}, res.Unresolved)
	assert.Equal(t, []int{2}, res.Indices)
	assert.Equal(t, uint(1), res.Mask.Count())
	assert.True(t, res.Mask.Test(2))
}

func TestResolve_MaskFollowsStoreOrder(t *testing.T) {
	r, err := NewResolver([]string{"A", "B", "C", "D"}, nil)
	require.NoError(t, err)

	res := r.Resolve([]string{"D", "A", "D", "x", "x"})
	assert.Equal(t, []string{"A", "D"}, res.Resolved)
	assert.Equal(t, []int{0, 3}, res.Indices)
	assert.Equal(t, []string{"x"}, res.Unresolved)
	assert.Equal(t, int(res.Mask.Count()), len(res.Resolved))
}

func TestResolveStrict(t *testing.T) {
	r, err := NewResolver([]string{"A", "B"}, nil)
	require.NoError(t, err)

	_, err = r.ResolveStrict([]string{"A", "Z", "Y"})
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"Z", "Y"}, rerr.Unresolved)
	assert.Contains(t, err.Error(), "Z, Y")

	res, err := r.ResolveStrict([]string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.Resolved)
}

func TestResolve_WithMapping(t *testing.T) {
	m, err := ReadMapping(strings.NewReader("ext1,vcfA\next2, vcfB\n\next3,vcfGone\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	r, err := NewResolver([]string{"vcfA", "vcfB", "vcfC"}, m)
	require.NoError(t, err)

	res := r.Resolve([]string{"ext2", "vcfA", "ext3", "ext1"})
	assert.Equal(t, []string{"ext1", "ext2"}, res.Resolved)
	assert.Equal(t, []int{0, 1}, res.Indices)
	// Internal IDs are not accepted once a mapping is configured, and mapped
	// IDs missing from the store are unresolved.
	assert.Equal(t, []string{"vcfA", "ext3"}, res.Unresolved)

	// Unmapped store samples keep their store ID.
	assert.Equal(t, []string{"ext1", "ext2", "vcfC"}, r.ExternalIDs())
}

func TestResolve_EveryIDLandsInExactlyOneOutput(t *testing.T) {
	r, err := NewResolver([]string{"A", "B", "C"}, nil)
	require.NoError(t, err)

	ids := []string{"A", "q", "C", "A", "r"}
	res := r.Resolve(ids)
	for _, id := range ids {
		inResolved := contains(res.Resolved, id)
		inUnresolved := contains(res.Unresolved, id)
		assert.NotEqual(t, inResolved, inUnresolved, id)
	}
}

func TestAll(t *testing.T) {
	r, err := NewResolver([]string{"A", "B", "C"}, nil)
	require.NoError(t, err)

	res := r.All()
	assert.Equal(t, 3, res.Count())
	assert.Equal(t, []string{"A", "B", "C"}, res.Resolved)
	assert.Empty(t, res.Unresolved)
}

func TestNewResolver_RejectsDuplicates(t *testing.T) {
	_, err := NewResolver([]string{"A", "A"}, nil)
	assert.Error(t, err)
}

func TestReadMapping_Errors(t *testing.T) {
	_, err := ReadMapping(strings.NewReader("a,x\nb,x\n"))
	assert.Error(t, err, "internal ID mapped twice")

	_, err = ReadMapping(strings.NewReader("a,x\na,y\n"))
	assert.Error(t, err, "external ID mapped twice")

	_, err = ReadMapping(strings.NewReader("lonely\n"))
	assert.Error(t, err)
}

func TestLoadMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.csv")
	require.NoError(t, os.WriteFile(path, []byte("e1,i1\ne2,i2\n"), 0644))

	m, err := LoadMapping(path)
	require.NoError(t, err)
	in, ok := m.Internal("e2")
	assert.True(t, ok)
	assert.Equal(t, "i2", in)

	_, err = LoadMapping(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
