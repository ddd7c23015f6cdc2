package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divbrowse/divbrowse/internal/duckdb"
	"github.com/divbrowse/divbrowse/internal/engine"
	"github.com/divbrowse/divbrowse/internal/index"
)

func newIndexCmd(g *globals) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or warm the coordinate index cache",
		Long: `Build the coordinate index of the configured store and persist it in the
cache directory, so later queries start without scanning the store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if rebuild {
				fp, err := duckdb.StatFile(cfg.StorePath())
				if err != nil {
					return fmt.Errorf("stat genotype store: %w", err)
				}
				index.NewCache(engine.CacheDir(cfg)).Clear(fp.Key())
			}
			e, err := engine.Open(cmd.Context(), cfg, g.logger)
			if err != nil {
				return err
			}
			defer e.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Indexed %d variants on %d chromosomes in %s\n",
				e.Index().Len(), len(e.Index().Chroms), engine.CacheDir(cfg))
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Discard the cached index first")
	return cmd
}
