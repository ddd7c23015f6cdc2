package duckdb

import (
	"context"
	"fmt"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// copyBlock is the number of variants read from the source per block.
const copyBlock = 10000

// CopyFrom writes the full contents of src into the empty store, block by
// block. Returns the number of variants written.
func (s *Store) CopyFrom(ctx context.Context, src genotype.Store) (int, error) {
	chrom, pos, err := src.Coordinates()
	if err != nil {
		return 0, fmt.Errorf("read source coordinates: %w", err)
	}
	w, err := s.NewWriter(ctx, src.Samples(), src.Ploidy())
	if err != nil {
		return 0, err
	}

	has := func(cat genotype.Category, f string) bool { return genotype.HasField(src, cat, f) }
	samples := len(src.Samples())

	for start := 0; start < len(pos); start += copyBlock {
		if err := ctx.Err(); err != nil {
			w.Close()
			return w.Written(), err
		}
		end := min(start+copyBlock, len(pos))
		sel := genotype.Range(start, end)

		calls, err := src.ReadBlock(sel, nil)
		if err != nil {
			w.Close()
			return w.Written(), fmt.Errorf("read source block: %w", err)
		}
		fields := make(map[string]*genotype.CallField)
		for _, f := range []string{genotype.FieldDP, genotype.FieldDV} {
			if !has(genotype.CallData, f) {
				continue
			}
			if fields[f], err = src.ReadCallField(f, sel, nil); err != nil {
				w.Close()
				return w.Written(), fmt.Errorf("read source %s: %w", f, err)
			}
		}
		cols := make(map[string]*genotype.Column)
		for _, f := range []string{genotype.FieldREF, genotype.FieldALT, genotype.FieldQUAL, genotype.FieldANN} {
			if !has(genotype.VariantData, f) {
				continue
			}
			if cols[f], err = src.ReadColumn(f, sel); err != nil {
				w.Close()
				return w.Written(), fmt.Errorf("read source %s: %w", f, err)
			}
		}

		for i := 0; i < sel.Len(); i++ {
			v := Variant{
				Chrom: chrom[start+i],
				Pos:   pos[start+i],
				Qual:  genotype.MissingQual,
				GT:    make([]int8, 0, samples*int(calls.Ploidy)),
			}
			for j := 0; j < samples; j++ {
				v.GT = append(v.GT, calls.Call(i, j)...)
			}
			if c := cols[genotype.FieldREF]; c != nil {
				v.Ref = c.First(i)
			}
			if c := cols[genotype.FieldALT]; c != nil {
				v.Alt = c.Strings[i]
			}
			if c := cols[genotype.FieldQUAL]; c != nil {
				v.Qual = c.Floats[i]
			}
			if c := cols[genotype.FieldANN]; c != nil {
				v.Ann = c.First(i)
			}
			if f := fields[genotype.FieldDP]; f != nil {
				v.DP = f.Data[i*samples : (i+1)*samples]
			}
			if f := fields[genotype.FieldDV]; f != nil {
				v.DV = f.Data[i*samples : (i+1)*samples]
			}
			if err := w.Append(v); err != nil {
				w.Close()
				return w.Written(), err
			}
		}
	}
	return w.Written(), w.Close()
}
