// Package config loads divbrowse settings from a YAML file, environment
// variables and built-in defaults through viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DIVBROWSE_CACHE_DIR.
const EnvPrefix = "DIVBROWSE"

// DefaultFileName is the config file searched for when none is given.
const DefaultFileName = "divbrowse.yaml"

// Defaults.
const (
	DefaultFlankingRegionLength = 1500
	DefaultExportMaxVariants    = 5000
	DefaultPCAComponents        = 10
)

// Config holds all settings.
type Config struct {
	DataDir  string         `mapstructure:"datadir"`
	CacheDir string         `mapstructure:"cache_dir"`
	Variants VariantsConfig `mapstructure:"variants"`
	GFF3     GFF3Config     `mapstructure:"gff3"`

	// ChromosomeLabels maps store chromosome IDs to display labels.
	ChromosomeLabels map[string]string `mapstructure:"chromosome_labels"`
	// CentromeresPositions maps store chromosome IDs to centromere positions.
	CentromeresPositions map[string]int64 `mapstructure:"centromeres_positions"`

	FlankingRegionLength int64          `mapstructure:"flanking_region_length"`
	Export               ExportConfig   `mapstructure:"export"`
	Analysis             AnalysisConfig `mapstructure:"analysis"`

	// Metadata is passed through to dataset summaries.
	Metadata map[string]any `mapstructure:"metadata"`
}

// VariantsConfig locates the genotype store.
type VariantsConfig struct {
	// Store is the DuckDB database path, relative to DataDir unless
	// absolute.
	Store string `mapstructure:"store"`
	// SampleIDMappingFilename is an optional CSV mapping store sample IDs
	// to external IDs, relative to DataDir unless absolute.
	SampleIDMappingFilename string `mapstructure:"sample_id_mapping_filename"`
}

// GFF3Config locates the feature annotation.
type GFF3Config struct {
	Filename string `mapstructure:"filename"`
	// ChromosomeLabels maps store chromosome IDs to GFF3 seqids.
	ChromosomeLabels map[string]string `mapstructure:"chromosome_labels"`
}

// ExportConfig bounds file exports.
type ExportConfig struct {
	MaxVariants int `mapstructure:"max_variants"`
}

// AnalysisConfig tunes the sample analyses.
type AnalysisConfig struct {
	PCAComponents int `mapstructure:"pca_components"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("datadir", ".")
	v.SetDefault("cache_dir", "")
	v.SetDefault("variants.store", "variants.duckdb")
	v.SetDefault("variants.sample_id_mapping_filename", "")
	v.SetDefault("gff3.filename", "")
	v.SetDefault("flanking_region_length", DefaultFlankingRegionLength)
	v.SetDefault("export.max_variants", DefaultExportMaxVariants)
	v.SetDefault("analysis.pca_components", DefaultPCAComponents)
}

// Init prepares v: defaults, environment overrides and the config file.
// With an empty path, DefaultFileName is searched in the working directory
// and a missing file is not an error.
func Init(v *viper.Viper, path string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the built-in settings.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	c, err := Load(v)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Variants.Store == "" {
		return errors.New("config: variants.store is required")
	}
	if c.FlankingRegionLength < 0 {
		return fmt.Errorf("config: flanking_region_length must not be negative, got %d", c.FlankingRegionLength)
	}
	if c.Export.MaxVariants <= 0 {
		return fmt.Errorf("config: export.max_variants must be positive, got %d", c.Export.MaxVariants)
	}
	if c.Analysis.PCAComponents <= 0 {
		return fmt.Errorf("config: analysis.pca_components must be positive, got %d", c.Analysis.PCAComponents)
	}
	return nil
}

// Path resolves p against DataDir. Empty and absolute paths are returned
// unchanged.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// StorePath returns the resolved genotype store path.
func (c *Config) StorePath() string {
	return c.Path(c.Variants.Store)
}

// MappingPath returns the resolved sample mapping path, or "" if unset.
func (c *Config) MappingPath() string {
	return c.Path(c.Variants.SampleIDMappingFilename)
}

// GFF3Path returns the resolved GFF3 path, or "" if unset.
func (c *Config) GFF3Path() string {
	return c.Path(c.GFF3.Filename)
}

// ChromosomeLabel returns the display label of chrom, or chrom itself.
func (c *Config) ChromosomeLabel(chrom string) string {
	if l, ok := lookup(c.ChromosomeLabels, chrom); ok {
		return l
	}
	return chrom
}

// Centromere returns the configured centromere position of chrom.
func (c *Config) Centromere(chrom string) (int64, bool) {
	return lookup(c.CentromeresPositions, chrom)
}

// Seqid returns the GFF3 seqid of chrom, or chrom itself.
func (c *Config) Seqid(chrom string) string {
	if s, ok := lookup(c.GFF3.ChromosomeLabels, chrom); ok {
		return s
	}
	return chrom
}

// lookup finds key in m. viper lower-cases map keys, so a case-insensitive
// match is tried after the exact one.
func lookup[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	v, ok := m[strings.ToLower(key)]
	return v, ok
}
