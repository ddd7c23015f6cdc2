package output

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/divbrowse/divbrowse/internal/alleles"
	"github.com/divbrowse/divbrowse/internal/genotype"
)

// DefaultArrowChunkSize is the number of variants per record batch.
const DefaultArrowChunkSize = 1024

// ArrowMatrixWriter writes an allele-count matrix as an Arrow IPC stream
// with one row per variant: a position column followed by one nullable int8
// column per sample. Missing counts are null.
type ArrowMatrixWriter struct {
	schema    *arrow.Schema
	writer    *ipc.Writer
	pos       *array.Int64Builder
	counts    []*array.Int8Builder
	chunkSize int
	rows      int
}

// NewArrowMatrixWriter creates a writer with one sample column per entry of
// samples. chunkSize <= 0 selects DefaultArrowChunkSize.
func NewArrowMatrixWriter(w io.Writer, samples []string, chunkSize int) (*ArrowMatrixWriter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultArrowChunkSize
	}
	pool := memory.NewGoAllocator()

	fields := make([]arrow.Field, 0, len(samples)+1)
	fields = append(fields, arrow.Field{Name: "position", Type: arrow.PrimitiveTypes.Int64})
	for _, s := range samples {
		fields = append(fields, arrow.Field{Name: s, Type: arrow.PrimitiveTypes.Int8, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	counts := make([]*array.Int8Builder, len(samples))
	for i := range counts {
		counts[i] = array.NewInt8Builder(pool)
	}
	return &ArrowMatrixWriter{
		schema:    schema,
		writer:    writer,
		pos:       array.NewInt64Builder(pool),
		counts:    counts,
		chunkSize: chunkSize,
	}, nil
}

// Write appends one variant. counts holds one allele count per sample.
func (aw *ArrowMatrixWriter) Write(position int64, counts []int8) error {
	if len(counts) != len(aw.counts) {
		return fmt.Errorf("mismatch in number of samples: expected %d, got %d", len(aw.counts), len(counts))
	}
	aw.pos.Append(position)
	for i, c := range counts {
		if c == genotype.Missing {
			aw.counts[i].AppendNull()
		} else {
			aw.counts[i].Append(c)
		}
	}
	aw.rows++
	if aw.rows == aw.chunkSize {
		return aw.writeChunk()
	}
	return nil
}

func (aw *ArrowMatrixWriter) writeChunk() error {
	cols := make([]arrow.Array, 0, len(aw.counts)+1)
	// NewArray resets the builder for the next chunk.
	cols = append(cols, aw.pos.NewArray())
	for _, b := range aw.counts {
		cols = append(cols, b.NewArray())
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rec := array.NewRecord(aw.schema, cols, int64(aw.rows))
	defer rec.Release()
	if err := aw.writer.Write(rec); err != nil {
		return fmt.Errorf("write record batch: %w", err)
	}
	aw.rows = 0
	return nil
}

// Close writes any buffered rows and the end-of-stream marker.
func (aw *ArrowMatrixWriter) Close() error {
	if aw.rows > 0 {
		if err := aw.writeChunk(); err != nil {
			return err
		}
	}
	aw.pos.Release()
	for _, b := range aw.counts {
		b.Release()
	}
	return aw.writer.Close()
}

// WriteAlleleMatrixArrow writes m (samples × variants) transposed to one
// row per variant. positions must have one entry per column of m.
func WriteAlleleMatrixArrow(w io.Writer, samples []string, positions []int64, m *alleles.Matrix) error {
	if len(samples) != m.Samples || len(positions) != m.Variants {
		return fmt.Errorf("matrix is %d×%d but got %d samples and %d positions",
			m.Samples, m.Variants, len(samples), len(positions))
	}
	aw, err := NewArrowMatrixWriter(w, samples, 0)
	if err != nil {
		return err
	}
	for v, p := range positions {
		if err := aw.Write(p, m.Column(v)); err != nil {
			aw.Close()
			return err
		}
	}
	return aw.Close()
}
