package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/divbrowse/divbrowse/internal/engine"
)

func newExportCmd(g *globals) *cobra.Command {
	var (
		f          windowFlags
		format     string
		outputFile string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a window as VCF, CSV, Arrow or GFF3",
		Long: `Export the filtered variants of a window.

Formats:
  vcf    genotype calls with external sample IDs
  csv    per-variant statistics
  arrow  allele-count matrix as an Arrow IPC stream
  gff3   features overlapping --start..--end`,
		Example: `  divbrowse export --chrom 1H --start 1000 --end 5000 -f vcf -o window.vcf
  divbrowse export --chrom 1H --start 1000 --end 5000 -f gff3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			export, err := exporter(format, req)
			if err != nil {
				return err
			}
			return withEngine(cmd, g, func(e *engine.Engine) error {
				var out io.Writer = cmd.OutOrStdout()
				if outputFile != "" {
					file, err := os.Create(outputFile)
					if err != nil {
						return fmt.Errorf("create output file: %w", err)
					}
					defer file.Close()
					out = file
				}
				if err := export(e, out); err != nil {
					if outputFile != "" {
						os.Remove(outputFile)
					}
					return err
				}
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&format, "output-format", "f", "vcf", "Output format: vcf, csv, arrow, gff3")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// exporter selects the engine export for format.
func exporter(format string, req engine.WindowRequest) (func(*engine.Engine, io.Writer) error, error) {
	switch format {
	case "vcf":
		return func(e *engine.Engine, w io.Writer) error { return e.ExportVCF(w, req) }, nil
	case "csv":
		return func(e *engine.Engine, w io.Writer) error { return e.ExportSummaryCSV(w, req) }, nil
	case "arrow":
		return func(e *engine.Engine, w io.Writer) error { return e.ExportArrow(w, req) }, nil
	case "gff3":
		d := req.Window
		if d.Start == nil || d.End == nil {
			return nil, fmt.Errorf("gff3 export requires --start and --end")
		}
		return func(e *engine.Engine, w io.Writer) error {
			return e.ExportGFF3(w, req.Chrom, *d.Start, *d.End)
		}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
