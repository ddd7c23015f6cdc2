package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `datadir: /data/barley
variants:
  store: genotypes.duckdb
  sample_id_mapping_filename: mapping.csv
gff3:
  filename: /annotation/genes.gff3.gz
  chromosome_labels:
    chr1H: 1H
chromosome_labels:
  chr1H: "1H"
  chr2H: "2H"
centromeres_positions:
  chr1H: 205500000
flanking_region_length: 800
metadata:
  dataset: test panel
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "divbrowse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	v := viper.New()
	require.NoError(t, Init(v, writeConfig(t, testYAML)))
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/data/barley", c.DataDir)
	assert.Equal(t, "/data/barley/genotypes.duckdb", c.StorePath())
	assert.Equal(t, "/data/barley/mapping.csv", c.MappingPath())
	assert.Equal(t, "/annotation/genes.gff3.gz", c.GFF3Path())
	assert.Equal(t, int64(800), c.FlankingRegionLength)
	assert.Equal(t, DefaultExportMaxVariants, c.Export.MaxVariants)
	assert.Equal(t, DefaultPCAComponents, c.Analysis.PCAComponents)
	assert.Equal(t, "test panel", c.Metadata["dataset"])

	// Map keys come back lower-cased from viper; lookups still match.
	assert.Equal(t, "1H", c.ChromosomeLabel("chr1H"))
	assert.Equal(t, "chr3H", c.ChromosomeLabel("chr3H"))
	cen, ok := c.Centromere("chr1H")
	require.True(t, ok)
	assert.Equal(t, int64(205500000), cen)
	_, ok = c.Centromere("chr2H")
	assert.False(t, ok)
	assert.Equal(t, "1H", c.Seqid("chr1H"))
	assert.Equal(t, "chr2H", c.Seqid("chr2H"))
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	v := viper.New()
	require.NoError(t, Init(v, ""))
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ".", c.DataDir)
	assert.Equal(t, "variants.duckdb", c.StorePath())
	assert.Equal(t, "", c.MappingPath())
	assert.Equal(t, int64(DefaultFlankingRegionLength), c.FlankingRegionLength)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DIVBROWSE_EXPORT_MAX_VARIANTS", "200")
	t.Setenv("DIVBROWSE_CACHE_DIR", "/tmp/cache")

	v := viper.New()
	require.NoError(t, Init(v, writeConfig(t, testYAML)))
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 200, c.Export.MaxVariants)
	assert.Equal(t, "/tmp/cache", c.CacheDir)
}

func TestLoad_Errors(t *testing.T) {
	v := viper.New()
	assert.Error(t, Init(v, filepath.Join(t.TempDir(), "missing.yaml")))

	tests := []struct {
		name string
		yaml string
	}{
		{"negative flank", "flanking_region_length: -1\n"},
		{"zero export limit", "export:\n  max_variants: 0\n"},
		{"empty store", "variants:\n  store: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			require.NoError(t, Init(v, writeConfig(t, tt.yaml)))
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "variants.duckdb", c.Variants.Store)
	assert.Equal(t, DefaultExportMaxVariants, c.Export.MaxVariants)
	assert.NoError(t, c.Validate())
}
