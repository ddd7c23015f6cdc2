package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// Variant is one row handed to a Writer.
type Variant struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   []string
	Qual  float64 // NaN if missing
	Ann   string

	// GT holds samples × ploidy allele indices, sample-major.
	GT []int8
	// DP and DV hold one value per sample; nil if not recorded.
	DP []int32
	DV []int32
}

// Writer appends variants to an empty store using the Appender API.
// Variants must arrive in store order: each chromosome contiguous and
// positions non-decreasing inside it.
type Writer struct {
	store    *Store
	conn     *sql.Conn
	variants *goduckdb.Appender
	calls    *goduckdb.Appender

	ploidy  genotype.Ploidy
	samples int
	next    int64

	lastChrom string
	lastPos   int64
	seen      map[string]bool

	hasQual, hasAnn, hasRef, hasAlt, hasDP, hasDV bool
}

// NewWriter starts writing a store holding the given samples. The store must
// not contain any samples yet.
func (s *Store) NewWriter(ctx context.Context, samples []string, ploidy genotype.Ploidy) (*Writer, error) {
	if s.readOnly {
		return nil, fmt.Errorf("store %s is read-only", s.path)
	}
	if !ploidy.Valid() {
		return nil, fmt.Errorf("unsupported ploidy %d", ploidy)
	}
	if len(s.Samples()) > 0 || s.Len() > 0 {
		return nil, fmt.Errorf("store is not empty")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	for i, id := range samples {
		if _, err := conn.ExecContext(ctx, `INSERT INTO samples VALUES (?, ?)`, int32(i), id); err != nil {
			conn.Close()
			return nil, fmt.Errorf("insert sample %s: %w", id, err)
		}
	}
	if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO store_meta VALUES ('ploidy', ?)`, strconv.Itoa(int(ploidy))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write ploidy: %w", err)
	}

	w := &Writer{
		store:   s,
		conn:    conn,
		ploidy:  ploidy,
		samples: len(samples),
		seen:    make(map[string]bool),
	}
	if err := conn.Raw(func(driverConn any) error {
		var err error
		w.variants, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "variants")
		if err != nil {
			return err
		}
		w.calls, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "calls")
		return err
	}); err != nil {
		if w.variants != nil {
			w.variants.Close()
		}
		conn.Close()
		return nil, fmt.Errorf("create appender: %w", err)
	}
	return w, nil
}

// Append writes one variant and its calls.
func (w *Writer) Append(v Variant) error {
	p := int(w.ploidy)
	if len(v.GT) != w.samples*p {
		return fmt.Errorf("variant %s:%d: GT has %d values, expected %d", v.Chrom, v.Pos, len(v.GT), w.samples*p)
	}
	if (v.DP != nil && len(v.DP) != w.samples) || (v.DV != nil && len(v.DV) != w.samples) {
		return fmt.Errorf("variant %s:%d: call field length does not match %d samples", v.Chrom, v.Pos, w.samples)
	}
	if err := w.checkOrder(v.Chrom, v.Pos); err != nil {
		return err
	}

	var qual any
	if !math.IsNaN(v.Qual) {
		qual = v.Qual
		w.hasQual = true
	}
	w.hasRef = w.hasRef || v.Ref != ""
	w.hasAlt = w.hasAlt || len(v.Alt) > 0
	w.hasAnn = w.hasAnn || v.Ann != ""
	w.hasDP = w.hasDP || v.DP != nil
	w.hasDV = w.hasDV || v.DV != nil

	if err := w.variants.AppendRow(w.next, v.Chrom, v.Pos, v.Ref, strings.Join(v.Alt, ","), qual, v.Ann); err != nil {
		return fmt.Errorf("append variant: %w", err)
	}

	for s := 0; s < w.samples; s++ {
		a0 := v.GT[s*p]
		a1 := genotype.Missing
		if p == 2 {
			a1 = v.GT[s*p+1]
		}
		dp, dv := int32(-1), int32(-1)
		if v.DP != nil {
			dp = v.DP[s]
		}
		if v.DV != nil {
			dv = v.DV[s]
		}
		if err := w.calls.AppendRow(w.next, int32(s), a0, a1, dp, dv); err != nil {
			return fmt.Errorf("append call: %w", err)
		}
	}
	w.next++
	return nil
}

func (w *Writer) checkOrder(chrom string, pos int64) error {
	if w.next > 0 && chrom == w.lastChrom {
		if pos < w.lastPos {
			return fmt.Errorf("variant %s:%d: positions not sorted (previous %d)", chrom, pos, w.lastPos)
		}
		w.lastPos = pos
		return nil
	}
	if w.seen[chrom] {
		return fmt.Errorf("variant %s:%d: chromosome %s is not contiguous", chrom, pos, chrom)
	}
	w.seen[chrom] = true
	w.lastChrom, w.lastPos = chrom, pos
	return nil
}

// Close flushes pending rows, records the field inventory and makes the new
// contents visible through the store.
func (w *Writer) Close() error {
	defer w.conn.Close()

	if err := w.variants.Close(); err != nil {
		w.calls.Close()
		return fmt.Errorf("flush variants: %w", err)
	}
	if err := w.calls.Close(); err != nil {
		return fmt.Errorf("flush calls: %w", err)
	}

	var callFields, variantFields []string
	if w.hasDP {
		callFields = append(callFields, genotype.FieldDP)
	}
	if w.hasDV {
		callFields = append(callFields, genotype.FieldDV)
	}
	if w.hasRef {
		variantFields = append(variantFields, genotype.FieldREF)
	}
	if w.hasAlt {
		variantFields = append(variantFields, genotype.FieldALT)
	}
	if w.hasQual {
		variantFields = append(variantFields, genotype.FieldQUAL)
	}
	if w.hasAnn {
		variantFields = append(variantFields, genotype.FieldANN)
	}

	ctx := context.Background()
	for k, v := range map[string]string{
		"call_fields":    strings.Join(callFields, ","),
		"variant_fields": strings.Join(variantFields, ","),
	} {
		if _, err := w.conn.ExecContext(ctx, `INSERT OR REPLACE INTO store_meta VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("write %s: %w", k, err)
		}
	}
	return w.store.refresh()
}

// Written returns the number of variants appended so far.
func (w *Writer) Written() int {
	return int(w.next)
}
