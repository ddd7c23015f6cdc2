package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/divbrowse/divbrowse/internal/engine"
	"github.com/divbrowse/divbrowse/internal/stats"
	"github.com/divbrowse/divbrowse/internal/window"
)

// windowFlags are the flags describing one window request.
type windowFlags struct {
	chrom        string
	start, end   int64
	count        int
	positions    []int64
	samples      []string
	strict       bool
	filter       string
	flanking     bool
	callMetadata bool
}

func (f *windowFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.chrom, "chrom", "", "Chromosome ID (required)")
	fs.Int64Var(&f.start, "start", 0, "First physical position of the window")
	fs.Int64Var(&f.end, "end", 0, "Last physical position of the window")
	fs.IntVar(&f.count, "count", 0, "Number of variants from --start or up to --end")
	fs.Int64SliceVar(&f.positions, "positions", nil, "Explicit positions (comma separated)")
	fs.StringSliceVar(&f.samples, "samples", nil, "External sample IDs (default: all)")
	fs.BoolVar(&f.strict, "strict", false, "Fail on unknown sample IDs")
	fs.StringVar(&f.filter, "filter", "", `Variant filter as JSON, e.g. '{"filterByMaf":true,"maf":[0.05,0.5]}'`)
	fs.BoolVar(&f.flanking, "flanking", false, "Widen the range by the configured flanking length")
	_ = cmd.MarkFlagRequired("chrom")
}

// request builds the engine request. Only flags given on the command line
// take part in the descriptor.
func (f *windowFlags) request(cmd *cobra.Command) (engine.WindowRequest, error) {
	fs := cmd.Flags()
	var d window.Descriptor
	if fs.Changed("start") {
		start := f.start
		d.Start = &start
	}
	if fs.Changed("end") {
		end := f.end
		d.End = &end
	}
	d.Count = f.count
	d.Positions = f.positions

	req := engine.WindowRequest{
		Chrom:            f.chrom,
		Window:           d,
		Strict:           f.strict,
		Flanking:         f.flanking,
		WithCallMetadata: f.callMetadata,
	}
	if fs.Changed("samples") {
		req.Samples = f.samples
	}
	if f.filter != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(f.filter), &raw); err != nil {
			return req, fmt.Errorf("parse --filter: %w", err)
		}
		settings, err := stats.DecodeFilterSettings(raw)
		if err != nil {
			return req, err
		}
		req.Filter = settings
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// withEngine opens the engine for the duration of fn.
func withEngine(cmd *cobra.Command, g *globals, fn func(*engine.Engine) error) error {
	e, err := openEngine(cmd, g)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

func newSummaryCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the dataset summary as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *engine.Engine) error {
				return writeJSON(cmd.OutOrStdout(), e.Summary())
			})
		},
	}
}

func newChromosomesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "chromosomes",
		Short: "List chromosomes with their extents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *engine.Engine) error {
				return writeJSON(cmd.OutOrStdout(), e.Chromosomes())
			})
		},
	}
}

func newSamplesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List external sample IDs in store order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *engine.Engine) error {
				w := cmd.OutOrStdout()
				for _, id := range e.Samples() {
					fmt.Fprintln(w, id)
				}
				return nil
			})
		},
	}
}

func newWindowCmd(g *globals) *cobra.Command {
	var (
		f         windowFlags
		statsOnly bool
	)
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Print a genotype window as JSON",
		Example: `  divbrowse window --chrom 1H --start 1000 --end 5000
  divbrowse window --chrom 1H --start 1000 --count 200 --samples A1,A2
  divbrowse window --chrom 1H --positions 1200,1500 --call-metadata`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			return withEngine(cmd, g, func(e *engine.Engine) error {
				if statsOnly {
					st, err := e.WindowStats(req)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), st)
				}
				w, err := e.Window(req)
				if err != nil {
					return err
				}
				v, err := e.View(w)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), v)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.callMetadata, "call-metadata", false, "Include per-call DP and DV")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "Only print the window size")
	return cmd
}

func newPCACmd(g *globals) *cobra.Command {
	var f windowFlags
	cmd := &cobra.Command{
		Use:   "pca",
		Short: "Project the samples of a window onto principal components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			return withEngine(cmd, g, func(e *engine.Engine) error {
				w, err := e.Window(req)
				if err != nil {
					return err
				}
				red, err := e.Reduce(w)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), red)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newDistancesCmd(g *globals) *cobra.Command {
	var f windowFlags
	cmd := &cobra.Command{
		Use:   "distances",
		Short: "Print pairwise Hamming distances between the samples of a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			return withEngine(cmd, g, func(e *engine.Engine) error {
				w, err := e.Window(req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), e.Distances(w))
			})
		},
	}
	f.register(cmd)
	return cmd
}
