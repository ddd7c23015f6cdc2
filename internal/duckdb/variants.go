package duckdb

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/willf/bitset"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// rowLookup maps store offsets to positions within a selection.
type rowLookup struct {
	sel    genotype.Selection
	byVidx map[int64]int
}

func newRowLookup(sel genotype.Selection) rowLookup {
	l := rowLookup{sel: sel}
	if !sel.IsRange() {
		l.byVidx = make(map[int64]int, len(sel.Offsets))
		for i, o := range sel.Offsets {
			l.byVidx[int64(o)] = i
		}
	}
	return l
}

// where returns a vidx predicate matching exactly the selected rows, with
// its arguments. Lists also carry their covering range.
func (l rowLookup) where() (string, []any) {
	if l.sel.IsRange() {
		return "vidx >= ? AND vidx < ?", []any{int64(l.sel.Start), int64(l.sel.End)}
	}
	offs := l.sel.Offsets
	args := make([]any, 0, len(offs)+2)
	args = append(args, int64(offs[0]), int64(offs[len(offs)-1])+1)
	for _, o := range offs {
		args = append(args, int64(o))
	}
	in := strings.Repeat("?, ", len(offs)-1) + "?"
	return "vidx >= ? AND vidx < ? AND vidx IN (" + in + ")", args
}

func (l rowLookup) row(vidx int64) (int, bool) {
	if l.byVidx == nil {
		return int(vidx) - l.sel.Start, true
	}
	i, ok := l.byVidx[vidx]
	return i, ok
}

// eachCall runs one query over the calls table and invokes fn for
// every row inside the selection and sample set. cols are integer columns.
func (s *Store) eachCall(sel genotype.Selection, samples []int, cols []string, fn func(i, j int, vals []int64)) error {
	if sel.Len() == 0 || len(samples) == 0 {
		return nil
	}
	colOf := make(map[int64]int, len(samples))
	for j, idx := range samples {
		colOf[int64(idx)] = j
	}
	rows := newRowLookup(sel)
	cond, args := rows.where()

	q := fmt.Sprintf(`SELECT vidx, sidx, %s FROM calls WHERE %s`, strings.Join(cols, ", "), cond)
	res, err := s.db.Query(q, args...)
	if err != nil {
		return fmt.Errorf("query calls: %w", err)
	}
	defer res.Close()

	var vidx, sidx int64
	vals := make([]int64, len(cols))
	dest := []any{&vidx, &sidx}
	for k := range vals {
		dest = append(dest, &vals[k])
	}
	for res.Next() {
		if err := res.Scan(dest...); err != nil {
			return fmt.Errorf("scan call: %w", err)
		}
		i, ok := rows.row(vidx)
		if !ok {
			continue
		}
		j, ok := colOf[sidx]
		if !ok {
			continue
		}
		fn(i, j, vals)
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("iterate calls: %w", err)
	}
	return nil
}

func (s *Store) ReadBlock(sel genotype.Selection, mask *bitset.BitSet) (*genotype.Calls, error) {
	if err := sel.Validate(s.Len()); err != nil {
		return nil, err
	}
	ploidy := s.Ploidy()
	if !ploidy.Valid() {
		return nil, fmt.Errorf("store has no GT ploidy")
	}
	samples := genotype.MaskIndices(mask, len(s.Samples()))
	out := genotype.NewCalls(sel.Len(), len(samples), ploidy)

	err := s.eachCall(sel, samples, []string{"a0", "a1"}, func(i, j int, vals []int64) {
		out.Set(i, j, 0, int8(vals[0]))
		if ploidy == genotype.Diploid {
			out.Set(i, j, 1, int8(vals[1]))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("read GT block: %w", err)
	}
	return out, nil
}

func (s *Store) ReadCallField(field string, sel genotype.Selection, mask *bitset.BitSet) (*genotype.CallField, error) {
	var col string
	switch field {
	case genotype.FieldDP:
		col = "dp"
	case genotype.FieldDV:
		col = "dv"
	}
	if col == "" || !genotype.HasField(s, genotype.CallData, field) {
		return nil, fmt.Errorf("%w: %s", genotype.ErrFieldNotFound, field)
	}
	if err := sel.Validate(s.Len()); err != nil {
		return nil, err
	}
	samples := genotype.MaskIndices(mask, len(s.Samples()))
	out := genotype.NewCallField(field, sel.Len(), len(samples))

	err := s.eachCall(sel, samples, []string{col}, func(i, j int, vals []int64) {
		out.Set(i, j, int32(vals[0]))
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return out, nil
}

func (s *Store) ReadColumn(field string, sel genotype.Selection) (*genotype.Column, error) {
	var col string
	switch field {
	case genotype.FieldREF:
		col = "ref"
	case genotype.FieldALT:
		col = "alt"
	case genotype.FieldQUAL:
		col = "qual"
	case genotype.FieldANN:
		col = "ann"
	}
	if col == "" || !genotype.HasField(s, genotype.VariantData, field) {
		return nil, fmt.Errorf("%w: %s", genotype.ErrFieldNotFound, field)
	}
	if err := sel.Validate(s.Len()); err != nil {
		return nil, err
	}

	out := &genotype.Column{Name: field}
	if field == genotype.FieldQUAL {
		out.Floats = make([]float64, sel.Len())
		for i := range out.Floats {
			out.Floats[i] = genotype.MissingQual
		}
	} else {
		out.Strings = make([][]string, sel.Len())
	}
	if sel.Len() == 0 {
		return out, nil
	}

	rows := newRowLookup(sel)
	cond, args := rows.where()
	q := fmt.Sprintf(`SELECT vidx, %s FROM variants WHERE %s`, col, cond)
	res, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", field, err)
	}
	defer res.Close()

	for res.Next() {
		var vidx int64
		var f sql.NullFloat64
		var str sql.NullString
		dest := any(&str)
		if out.Floats != nil {
			dest = &f
		}
		if err := res.Scan(&vidx, dest); err != nil {
			return nil, fmt.Errorf("scan %s: %w", field, err)
		}
		i, ok := rows.row(vidx)
		if !ok {
			continue
		}
		switch {
		case out.Floats != nil:
			if f.Valid {
				out.Floats[i] = f.Float64
			}
		case !str.Valid || str.String == "":
			out.Strings[i] = []string{}
		case field == genotype.FieldALT:
			out.Strings[i] = strings.Split(str.String, ",")
		default:
			out.Strings[i] = []string{str.String}
		}
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", field, err)
	}
	return out, nil
}
