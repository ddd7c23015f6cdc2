// Package engine wires a genotype store, its coordinate index, the sample
// resolver and the optional annotation into one read-only query service.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/divbrowse/divbrowse/internal/analysis"
	"github.com/divbrowse/divbrowse/internal/annotation"
	"github.com/divbrowse/divbrowse/internal/config"
	"github.com/divbrowse/divbrowse/internal/duckdb"
	"github.com/divbrowse/divbrowse/internal/genotype"
	"github.com/divbrowse/divbrowse/internal/index"
	"github.com/divbrowse/divbrowse/internal/samples"
	"github.com/divbrowse/divbrowse/internal/window"
)

// Options configures New.
type Options struct {
	// Config supplies labels, limits and defaults; nil uses config.Default.
	Config *config.Config
	// Mapping translates store sample IDs to external IDs; may be nil.
	Mapping *samples.Mapping
	// Features answers gene queries; may be nil.
	Features annotation.Source
	// Transformers are additional embeddings (e.g. UMAP) run next to PCA,
	// keyed by name.
	Transformers map[string]analysis.Transformer
	Logger       *zap.Logger
}

// Engine answers window, export and analysis requests. It is immutable
// after construction and safe for concurrent use.
type Engine struct {
	store        genotype.Store
	index        *index.Index
	resolver     *samples.Resolver
	slicer       *window.Slicer
	features     annotation.Source
	transformers map[string]analysis.Transformer
	pca          *analysis.PCA
	cfg          *config.Config
	logger       *zap.Logger
	closer       func() error
}

// New creates an engine over store. A nil ix is built from the store's
// coordinates.
func New(store genotype.Store, ix *index.Index, opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if ix == nil {
		var err error
		if ix, err = buildIndex(store); err != nil {
			return nil, err
		}
	}
	resolver, err := samples.NewResolver(store.Samples(), opts.Mapping)
	if err != nil {
		return nil, fmt.Errorf("create sample resolver: %w", err)
	}
	resolver.SetLogger(logger)

	slicer, err := window.NewSlicer(store, ix, resolver)
	if err != nil {
		return nil, fmt.Errorf("create window slicer: %w", err)
	}
	slicer.SetLogger(logger)

	pca := analysis.NewPCA(cfg.Analysis.PCAComponents)
	pca.SetLogger(logger)

	return &Engine{
		store:        store,
		index:        ix,
		resolver:     resolver,
		slicer:       slicer,
		features:     opts.Features,
		transformers: opts.Transformers,
		pca:          pca,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// Open opens the DuckDB store named by cfg read-only and loads the
// coordinate index (through the on-disk cache), the sample mapping and the
// GFF3 annotation concurrently.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	started := time.Now()

	store, err := duckdb.OpenReadOnly(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open genotype store: %w", err)
	}
	fp, err := store.Fingerprint()
	if err != nil {
		store.Close()
		return nil, err
	}

	cache := index.NewCache(CacheDir(cfg))
	cache.SetLogger(logger)

	var (
		ix       *index.Index
		mapping  *samples.Mapping
		features []annotation.Feature
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ix, err = cache.GetOrBuild(fp.Key(), func() (*index.Index, error) {
			return buildIndex(store)
		})
		return err
	})
	if p := cfg.MappingPath(); p != "" {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			mapping, err = samples.LoadMapping(p)
			return err
		})
	}
	if p := cfg.GFF3Path(); p != "" {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			features, err = annotation.LoadGFF3(p)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		store.Close()
		return nil, err
	}

	opts := Options{Config: cfg, Mapping: mapping, Logger: logger}
	if features != nil {
		seqids := make(map[string]string, len(ix.Chroms))
		for _, c := range ix.Chromosomes() {
			seqids[c] = cfg.Seqid(c)
		}
		opts.Features = annotation.NewIndex(features, seqids)
	}

	e, err := New(store, ix, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	e.closer = store.Close

	logger.Info("engine ready",
		zap.String("store", cfg.StorePath()),
		zap.Int("samples", len(store.Samples())),
		zap.Int("variants", ix.Len()),
		zap.Int("chromosomes", len(ix.Chroms)),
		zap.Int("features", len(features)),
		zap.Duration("elapsed", time.Since(started)))
	return e, nil
}

// CacheDir returns the directory holding coordinate index caches for cfg:
// cache_dir when set, otherwise the store's directory.
func CacheDir(cfg *config.Config) string {
	if cfg.CacheDir == "" {
		return filepath.Dir(cfg.StorePath())
	}
	return cfg.Path(cfg.CacheDir)
}

// Close releases the store opened by Open.
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

// Store returns the underlying genotype store.
func (e *Engine) Store() genotype.Store { return e.store }

// Index returns the coordinate index.
func (e *Engine) Index() *index.Index { return e.index }

// Config returns the effective configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

func buildIndex(store genotype.Store) (*index.Index, error) {
	chrom, pos, err := store.Coordinates()
	if err != nil {
		return nil, fmt.Errorf("read coordinates: %w", err)
	}
	ix, err := index.Build(chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("build coordinate index: %w", err)
	}
	return ix, nil
}
