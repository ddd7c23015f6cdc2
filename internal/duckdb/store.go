// Package duckdb implements a genotype store on DuckDB.
// Variants, samples and calls live in three tables; calls are read for a
// whole window with one range query.
package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// Store is a genotype.Store backed by a DuckDB database.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool

	mu            sync.RWMutex
	samples       []string
	ploidy        genotype.Ploidy
	variants      int
	callFields    []string
	variantFields []string
}

var _ genotype.Store = (*Store)(nil)

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.refresh(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing store without write access, so several
// processes can share it.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db, err := sql.Open("duckdb", path+"?access_mode=READ_ONLY")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	s := &Store{db: db, path: path, readOnly: true}
	if err := s.refresh(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS store_meta (
			key VARCHAR PRIMARY KEY,
			value VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			sidx INTEGER PRIMARY KEY,
			id VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS variants (
			vidx BIGINT PRIMARY KEY,
			chrom VARCHAR NOT NULL,
			pos BIGINT NOT NULL,
			ref VARCHAR,
			alt VARCHAR,
			qual DOUBLE,
			ann VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS calls (
			vidx BIGINT NOT NULL,
			sidx INTEGER NOT NULL,
			a0 TINYINT NOT NULL,
			a1 TINYINT NOT NULL,
			dp INTEGER NOT NULL,
			dv INTEGER NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// refresh reloads the cached sample list, ploidy and field inventory.
func (s *Store) refresh() error {
	meta, err := s.readMeta()
	if err != nil {
		return err
	}

	var samples []string
	rows, err := s.db.Query(`SELECT id FROM samples ORDER BY sidx`)
	if err != nil {
		return fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate samples: %w", err)
	}

	var variants int
	if err := s.db.QueryRow(`SELECT count(*) FROM variants`).Scan(&variants); err != nil {
		return fmt.Errorf("count variants: %w", err)
	}

	ploidy := genotype.Unknown
	if v, ok := meta["ploidy"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ploidy %q in store metadata", v)
		}
		ploidy = genotype.Ploidy(n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = samples
	s.variants = variants
	s.ploidy = ploidy
	s.callFields = splitList(meta["call_fields"])
	s.variantFields = splitList(meta["variant_fields"])
	return nil
}

func (s *Store) readMeta() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM store_meta`)
	if err != nil {
		return nil, fmt.Errorf("query store metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan store metadata: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Len returns the number of variants in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.variants
}

func (s *Store) Samples() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples
}

func (s *Store) Ploidy() genotype.Ploidy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ploidy
}

func (s *Store) Fields(cat genotype.Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fields []string
	switch cat {
	case genotype.CallData:
		fields = append(fields, genotype.FieldGT)
		fields = append(fields, s.callFields...)
	case genotype.VariantData:
		fields = append(fields, "CHROM", "POS")
		fields = append(fields, s.variantFields...)
	}
	sort.Strings(fields)
	return fields
}

// ErrEmptyStore is returned when reading from a store without variants.
var ErrEmptyStore = errors.New("store holds no variants")

func (s *Store) Coordinates() ([]string, []int64, error) {
	n := s.Len()
	if n == 0 {
		return nil, nil, ErrEmptyStore
	}
	rows, err := s.db.Query(`SELECT chrom, pos FROM variants ORDER BY vidx`)
	if err != nil {
		return nil, nil, fmt.Errorf("query coordinates: %w", err)
	}
	defer rows.Close()

	chrom := make([]string, 0, n)
	pos := make([]int64, 0, n)
	for rows.Next() {
		var c string
		var p int64
		if err := rows.Scan(&c, &p); err != nil {
			return nil, nil, fmt.Errorf("scan coordinates: %w", err)
		}
		chrom = append(chrom, c)
		pos = append(pos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate coordinates: %w", err)
	}
	return chrom, pos, nil
}
