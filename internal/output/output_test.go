package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divbrowse/divbrowse/internal/alleles"
	"github.com/divbrowse/divbrowse/internal/annotation"
	"github.com/divbrowse/divbrowse/internal/stats"
)

func ptr[T any](v T) *T { return &v }

func TestGFF3Writer(t *testing.T) {
	features := []annotation.Feature{
		{
			Seqid: "chr1H", Source: "test", Type: "gene", Start: 100, End: 500, Strand: "+",
			Attributes: map[string]string{"ID": "g1", "Name": "Alpha", "description": "a;b=c", "Ontology_term": "GO:1,GO:2"},
		},
		{
			Seqid: "chr1H", Source: "test", Type: "CDS", Start: 120, End: 200, Strand: "-",
			Score: ptr(0.5), Phase: ptr(2),
			Attributes: map[string]string{"Parent": "t1,t2"},
		},
		{Seqid: "chr1H", Type: "region", Start: 1, End: 2},
	}

	var buf bytes.Buffer
	w := NewGFF3Writer(&buf)
	require.NoError(t, w.WriteHeader())
	for i := range features {
		require.NoError(t, w.Write(&features[i]))
	}
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "##gff-version 3", lines[0])
	assert.Equal(t, "chr1H\ttest\tgene\t100\t500\t.\t+\t.\tID=g1;Name=Alpha;Ontology_term=GO:1%2CGO:2;description=a%3Bb%3Dc", lines[1])
	assert.Equal(t, "chr1H\ttest\tCDS\t120\t200\t0.5\t-\t2\tParent=t1,t2", lines[2])
	assert.Equal(t, "chr1H\t.\tregion\t1\t2\t.\t.\t.\t.", lines[3])

	// Written features parse back to the same attributes.
	parsed, err := annotation.ParseGFF3(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	assert.Equal(t, features[0].Attributes, parsed[0].Attributes)
	assert.Equal(t, []string{"t1", "t2"}, parsed[1].Parents())
}

func TestWriteSummaryCSV(t *testing.T) {
	records := []stats.Record{
		{Offset: 3, Position: 250, MAF: 0.25, MissingFreq: 0, HeterozygosityFreq: ptr(0.5), VCFQual: ptr(30.0)},
		{Offset: 4, Position: 300, MAF: -1, MissingFreq: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"positions_indices", "position", "maf", "missing_freq", "heterozygosity_freq", "vcf_qual"},
		{"3", "250", "0.25", "0", "0.5", "30"},
		{"4", "300", "-1", "1", "", ""},
	}, rows)
}

func TestWriteAlleleMatrixArrow(t *testing.T) {
	m := alleles.NewMatrix(2, 3)
	copy(m.Row(0), []int8{0, 1, 2})
	copy(m.Row(1), []int8{-1, 2, 0})
	positions := []int64{100, 150, 200}

	var buf bytes.Buffer
	require.NoError(t, WriteAlleleMatrixArrow(&buf, []string{"S1", "S2"}, positions, m))

	r, err := ipc.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer r.Release()

	require.Equal(t, 3, r.Schema().NumFields())
	assert.Equal(t, "position", r.Schema().Field(0).Name)
	assert.Equal(t, "S2", r.Schema().Field(2).Name)

	require.True(t, r.Next())
	rec := r.Record()
	require.Equal(t, int64(3), rec.NumRows())

	pos := rec.Column(0).(*array.Int64)
	s1 := rec.Column(1).(*array.Int8)
	s2 := rec.Column(2).(*array.Int8)
	for v := 0; v < 3; v++ {
		assert.Equal(t, positions[v], pos.Value(v))
		assert.Equal(t, m.Count(0, v), s1.Value(v))
	}
	assert.True(t, s2.IsNull(0))
	assert.Equal(t, int8(2), s2.Value(1))
	assert.Equal(t, int8(0), s2.Value(2))

	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestArrowMatrixWriter_Chunks(t *testing.T) {
	var buf bytes.Buffer
	aw, err := NewArrowMatrixWriter(&buf, []string{"A"}, 2)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, aw.Write(int64(i), []int8{int8(i % 3)}))
	}
	assert.Error(t, aw.Write(9, []int8{0, 1}))
	require.NoError(t, aw.Close())

	r, err := ipc.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer r.Release()
	var rows []int64
	for r.Next() {
		rows = append(rows, r.Record().NumRows())
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int64{2, 2, 1}, rows)

	err = WriteAlleleMatrixArrow(&bytes.Buffer{}, []string{"A"}, []int64{1}, alleles.NewMatrix(2, 1))
	assert.Error(t, err)
}
