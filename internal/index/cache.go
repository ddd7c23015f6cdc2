package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache persists built indices as gob files next to a metadata file:
//
//	{dir}/coordinate_index_{hash}.gob       (serialized chromosomes)
//	{dir}/coordinate_index_{hash}.gob.meta  (source key and payload checksum)
//
// The key identifies the source store, e.g. a file fingerprint.
type Cache struct {
	dir    string
	group  singleflight.Group
	logger *zap.Logger
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir, logger: zap.NewNop()}
}

// SetLogger sets the logger for build and cache-hit messages.
func (c *Cache) SetLogger(l *zap.Logger) {
	c.logger = l
}

func (c *Cache) gobPath(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("coordinate_index_%016x.gob", xxh3.HashString(key)))
}

func (c *Cache) metaPath(key string) string {
	return c.gobPath(key) + ".meta"
}

// GetOrBuild returns the cached index for key, or calls build and writes the
// result. Concurrent callers with the same key share one build; a build in
// another process at worst rewrites identical content.
func (c *Cache) GetOrBuild(key string, build func() (*Index, error)) (*Index, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		if ix, err := c.Load(key); err == nil {
			c.logger.Info("loaded coordinate index from cache",
				zap.String("path", c.gobPath(key)),
				zap.Int("chromosomes", len(ix.Chroms)))
			return ix, nil
		}

		start := time.Now()
		ix, err := build()
		if err != nil {
			return nil, err
		}
		c.logger.Info("built coordinate index",
			zap.Int("chromosomes", len(ix.Chroms)),
			zap.Int("variants", ix.Len()),
			zap.Duration("elapsed", time.Since(start)))

		if err := c.Write(key, ix); err != nil {
			c.logger.Warn("could not write coordinate index cache", zap.Error(err))
		}
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Load reads the index cached for key.
func (c *Cache) Load(key string) (*Index, error) {
	meta, err := c.readMeta(key)
	if err != nil {
		return nil, fmt.Errorf("read index cache meta: %w", err)
	}
	if meta["key"] != key {
		return nil, fmt.Errorf("index cache key mismatch")
	}

	data, err := os.ReadFile(c.gobPath(key))
	if err != nil {
		return nil, fmt.Errorf("read index cache: %w", err)
	}
	if strconv.FormatUint(xxh3.Hash(data), 16) != meta["checksum"] {
		return nil, fmt.Errorf("index cache checksum mismatch")
	}

	var chroms []*Chromosome
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&chroms); err != nil {
		return nil, fmt.Errorf("decode index cache: %w", err)
	}
	ix := &Index{Chroms: chroms}
	if err := ix.init(); err != nil {
		return nil, fmt.Errorf("invalid index cache: %w", err)
	}
	return ix, nil
}

// Write serializes ix for key. Files are written under temporary names and
// renamed into place.
func (c *Cache) Write(key string, ix *Index) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ix.Chroms); err != nil {
		return fmt.Errorf("encode index cache: %w", err)
	}
	if err := writeFileAtomic(c.gobPath(key), buf.Bytes()); err != nil {
		return fmt.Errorf("write index cache: %w", err)
	}

	lines := []string{
		"key=" + key,
		"checksum=" + strconv.FormatUint(xxh3.Hash(buf.Bytes()), 16),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	if err := writeFileAtomic(c.metaPath(key), []byte(strings.Join(lines, "\n"))); err != nil {
		return fmt.Errorf("write index cache meta: %w", err)
	}
	return nil
}

// Clear removes the cache files for key.
func (c *Cache) Clear(key string) {
	os.Remove(c.gobPath(key))
	os.Remove(c.metaPath(key))
}

func (c *Cache) readMeta(key string) (map[string]string, error) {
	data, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}

func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}
