// Package output writes variant windows and their annotations in exchange
// formats: VCF, GFF3, CSV and Arrow IPC.
package output

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/divbrowse/divbrowse/internal/genotype"
)

// vcfHeader holds the fixed meta-information lines of exported VCF files.
var vcfHeader = []string{
	"##fileformat=VCFv4.0",
	`##FILTER=<ID=PASS,Description="All filters passed">`,
	`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
}

// VCFRecord is one exported variant.
type VCFRecord struct {
	Chrom string
	Pos   int64
	Ref   string
	// Alt lists the alternate alleles; empty entries are dropped.
	Alt []string
	// Qual is NaN when missing.
	Qual float64
	// GT holds one call per sample in header order, each with one allele
	// index per copy.
	GT [][]int8
}

// VCFWriter writes genotype-only VCF.
type VCFWriter struct {
	w       *bufio.Writer
	samples []string
	lb      strings.Builder
}

// NewVCFWriter creates a VCF writer whose sample columns are named by
// samples.
func NewVCFWriter(w io.Writer, samples []string) *VCFWriter {
	return &VCFWriter{w: bufio.NewWriter(w), samples: samples}
}

// WriteHeader writes the meta-information lines and the #CHROM line.
func (vw *VCFWriter) WriteHeader() error {
	for _, line := range vcfHeader {
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	cols := append([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT"}, vw.samples...)
	_, err := vw.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes one data line with FILTER NA and no INFO.
func (vw *VCFWriter) Write(r *VCFRecord) error {
	lb := &vw.lb
	lb.Reset()

	lb.WriteString(r.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(r.Pos, 10))
	lb.WriteString("\t.\t")
	lb.WriteString(orDot(r.Ref))
	lb.WriteByte('\t')
	lb.WriteString(joinAlt(r.Alt))
	lb.WriteByte('\t')
	if math.IsNaN(r.Qual) {
		lb.WriteByte('.')
	} else {
		lb.WriteString(strconv.FormatFloat(r.Qual, 'g', -1, 64))
	}
	lb.WriteString("\tNA\t.\tGT")
	for _, call := range r.GT {
		lb.WriteByte('\t')
		writeGT(lb, call)
	}
	lb.WriteByte('\n')

	_, err := vw.w.WriteString(lb.String())
	return err
}

// Flush flushes the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

// writeGT writes an unphased genotype such as 0/1, with . for missing
// alleles.
func writeGT(b *strings.Builder, call []int8) {
	if len(call) == 0 {
		b.WriteByte('.')
		return
	}
	for k, a := range call {
		if k > 0 {
			b.WriteByte('/')
		}
		if a == genotype.Missing || a < 0 {
			b.WriteByte('.')
			continue
		}
		b.WriteString(strconv.Itoa(int(a)))
	}
}

func joinAlt(alts []string) string {
	kept := make([]string, 0, len(alts))
	for _, a := range alts {
		if a != "" {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return "."
	}
	return strings.Join(kept, ",")
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}
