package engine

import (
	"errors"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/divbrowse/divbrowse/internal/genotype"
	"github.com/divbrowse/divbrowse/internal/output"
	"github.com/divbrowse/divbrowse/internal/window"
)

// WindowTooLargeError is returned when an export exceeds the configured
// variant limit.
type WindowTooLargeError struct {
	Variants int
	Limit    int
}

func (e *WindowTooLargeError) Error() string {
	return fmt.Sprintf("window holds %d variants, exports are limited to %d", e.Variants, e.Limit)
}

// ErrNoFeatures is returned by feature exports when no annotation is loaded.
var ErrNoFeatures = errors.New("no feature annotation loaded")

// ExportWindow resolves req for export. Sample IDs are resolved strictly
// and the filtered window must not exceed the export limit.
func (e *Engine) ExportWindow(req WindowRequest) (*window.Window, error) {
	req.Strict = true
	w, err := e.Window(req)
	if err != nil {
		return nil, err
	}
	if n, limit := len(w.FilteredOffsets()), e.cfg.Export.MaxVariants; n > limit {
		return nil, &WindowTooLargeError{Variants: n, Limit: limit}
	}
	return w, nil
}

// ExportVCF writes the filtered window for req as VCF with external sample
// IDs.
func (e *Engine) ExportVCF(dst io.Writer, req WindowRequest) error {
	w, err := e.ExportWindow(req)
	if err != nil {
		return err
	}

	offsets := w.FilteredOffsets()
	sel := genotype.List(offsets)
	ref, err := e.optionalColumn(genotype.FieldREF, sel)
	if err != nil {
		return err
	}
	alt, err := e.optionalColumn(genotype.FieldALT, sel)
	if err != nil {
		return err
	}
	qual, err := e.optionalColumn(genotype.FieldQUAL, sel)
	if err != nil {
		return err
	}

	vw := output.NewVCFWriter(dst, w.Samples.Resolved)
	if err := vw.WriteHeader(); err != nil {
		return fmt.Errorf("write VCF header: %w", err)
	}
	positions := w.FilteredPositions()
	for i, c := range w.Filtered.Columns {
		rec := output.VCFRecord{
			Chrom: w.Chrom,
			Pos:   positions[i],
			Qual:  math.NaN(),
			GT:    make([][]int8, w.Calls.Samples),
		}
		if ref != nil {
			rec.Ref = ref.First(i)
		}
		if alt != nil {
			rec.Alt = alt.Strings[i]
		}
		if qual != nil {
			rec.Qual = qual.Floats[i]
		}
		for s := range rec.GT {
			rec.GT[s] = w.Calls.Call(c, s)
		}
		if err := vw.Write(&rec); err != nil {
			return fmt.Errorf("write VCF record %s:%d: %w", w.Chrom, rec.Pos, err)
		}
	}
	e.logger.Debug("exported VCF",
		zap.Stringer("id", w.ID),
		zap.Int("variants", len(offsets)),
		zap.Int("samples", w.Samples.Count()))
	return vw.Flush()
}

// ExportSummaryCSV writes the per-variant statistics of the filtered window
// for req as CSV.
func (e *Engine) ExportSummaryCSV(dst io.Writer, req WindowRequest) error {
	w, err := e.ExportWindow(req)
	if err != nil {
		return err
	}
	recs, err := w.Records()
	if err != nil {
		return err
	}
	return output.WriteSummaryCSV(dst, recs)
}

// ExportArrow writes the filtered allele-count matrix for req as an Arrow
// IPC stream.
func (e *Engine) ExportArrow(dst io.Writer, req WindowRequest) error {
	w, err := e.ExportWindow(req)
	if err != nil {
		return err
	}
	return output.WriteAlleleMatrixArrow(dst, w.Samples.Resolved, w.FilteredPositions(), w.AlleleMatrix())
}

// ExportGFF3 writes the features on chrom overlapping [start, end].
func (e *Engine) ExportGFF3(dst io.Writer, chrom string, start, end int64) error {
	if e.features == nil {
		return ErrNoFeatures
	}
	if _, err := e.index.Chromosome(chrom); err != nil {
		return err
	}
	gw := output.NewGFF3Writer(dst)
	if err := gw.WriteHeader(); err != nil {
		return err
	}
	fs := e.features.Overlapping(chrom, start, end)
	for i := range fs {
		if err := gw.Write(&fs[i]); err != nil {
			return fmt.Errorf("write GFF3 feature: %w", err)
		}
	}
	return gw.Flush()
}

// optionalColumn reads field for sel, or returns nil when the store lacks it.
func (e *Engine) optionalColumn(field string, sel genotype.Selection) (*genotype.Column, error) {
	if !genotype.HasField(e.store, genotype.VariantData, field) {
		return nil, nil
	}
	col, err := e.store.ReadColumn(field, sel)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return col, nil
}
