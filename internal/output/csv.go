package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/divbrowse/divbrowse/internal/stats"
)

var summaryColumns = []string{
	"positions_indices",
	"position",
	"maf",
	"missing_freq",
	"heterozygosity_freq",
	"vcf_qual",
}

// WriteSummaryCSV writes per-variant statistics as CSV with a header row.
// Unavailable values are left empty.
func WriteSummaryCSV(w io.Writer, records []stats.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryColumns); err != nil {
		return err
	}
	row := make([]string, len(summaryColumns))
	for _, r := range records {
		row[0] = strconv.Itoa(r.Offset)
		row[1] = strconv.FormatInt(r.Position, 10)
		row[2] = formatFloat(r.MAF)
		row[3] = formatFloat(r.MissingFreq)
		row[4] = formatOptional(r.HeterozygosityFreq)
		row[5] = formatOptional(r.VCFQual)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
