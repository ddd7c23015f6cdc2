package output

import (
	"bufio"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/divbrowse/divbrowse/internal/annotation"
)

// gff3Escaper percent-encodes the characters reserved in column 9.
var gff3Escaper = strings.NewReplacer(
	"%", "%25",
	";", "%3B",
	"=", "%3D",
	"&", "%26",
	",", "%2C",
	"\t", "%09",
	"\n", "%0A",
	"\r", "%0D",
)

// leadingAttributes are written first, in this order.
var leadingAttributes = []string{"ID", "Name", "Parent"}

// GFF3Writer writes features as GFF3.
type GFF3Writer struct {
	w *bufio.Writer
}

// NewGFF3Writer creates a GFF3 writer.
func NewGFF3Writer(w io.Writer) *GFF3Writer {
	return &GFF3Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the version directive.
func (gw *GFF3Writer) WriteHeader() error {
	_, err := gw.w.WriteString("##gff-version 3\n")
	return err
}

// Write writes one feature line.
func (gw *GFF3Writer) Write(f *annotation.Feature) error {
	score, phase := ".", "."
	if f.Score != nil {
		score = strconv.FormatFloat(*f.Score, 'g', -1, 64)
	}
	if f.Phase != nil {
		phase = strconv.Itoa(*f.Phase)
	}
	line := strings.Join([]string{
		f.Seqid,
		orDot(f.Source),
		f.Type,
		strconv.FormatInt(f.Start, 10),
		strconv.FormatInt(f.End, 10),
		score,
		orDot(f.Strand),
		phase,
		formatAttributes(f.Attributes),
	}, "\t")
	_, err := gw.w.WriteString(line + "\n")
	return err
}

// Flush flushes the underlying writer.
func (gw *GFF3Writer) Flush() error {
	return gw.w.Flush()
}

func formatAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "."
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if !slices.Contains(leadingAttributes, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(attrs))
	add := func(k string) {
		v, ok := attrs[k]
		if !ok || v == "" || v == "." {
			return
		}
		val := v
		if k == "Parent" {
			// Parent is multi-valued; keep its separators.
			ps := strings.Split(v, ",")
			for i := range ps {
				ps[i] = gff3Escaper.Replace(ps[i])
			}
			val = strings.Join(ps, ",")
		} else {
			val = gff3Escaper.Replace(v)
		}
		parts = append(parts, gff3Escaper.Replace(k)+"="+val)
	}
	for _, k := range leadingAttributes {
		add(k)
	}
	for _, k := range keys {
		add(k)
	}
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, ";")
}
