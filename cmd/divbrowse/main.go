// Package main provides the divbrowse command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/divbrowse/divbrowse/internal/config"
	"github.com/divbrowse/divbrowse/internal/engine"
	"github.com/divbrowse/divbrowse/internal/index"
	"github.com/divbrowse/divbrowse/internal/samples"
	"github.com/divbrowse/divbrowse/internal/window"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals holds the persistent flags shared by all subcommands.
type globals struct {
	configFile string
	verbose    bool
	logger     *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	g := &globals{}
	root := newRootCmd(g)
	root.SetArgs(args)
	err := root.Execute()
	if g.logger != nil {
		_ = g.logger.Sync()
	}
	return exitCode(err)
}

// exitCode maps request errors to ExitUsage and everything else to
// ExitError.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var (
		desc     *window.InvalidDescriptorError
		resolve  *samples.ResolutionError
		tooLarge *engine.WindowTooLargeError
	)
	switch {
	case errors.As(err, &desc), errors.As(err, &resolve), errors.Is(err, index.ErrChromosomeNotFound):
		return ExitUsage
	case errors.As(err, &tooLarge):
		fmt.Fprintf(os.Stderr, "Hint: narrow the window or raise export.max_variants\n")
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:   "divbrowse",
		Short: "Query genotype windows of a variant store",
		Long: `divbrowse answers windowed queries over a genotype matrix stored in DuckDB:
allele-count windows, per-variant statistics, sample distances, PCA and
exports to VCF, CSV, Arrow and GFF3.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(g.verbose)
			if err != nil {
				return err
			}
			g.logger = logger
			return config.Init(viper.GetViper(), g.configFile)
		},
	}
	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "Config file (default: ./"+config.DefaultFileName+")")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newConfigCmd())
	root.AddCommand(newSummaryCmd(g))
	root.AddCommand(newChromosomesCmd(g))
	root.AddCommand(newSamplesCmd(g))
	root.AddCommand(newWindowCmd(g))
	root.AddCommand(newPCACmd(g))
	root.AddCommand(newDistancesCmd(g))
	root.AddCommand(newExportCmd(g))
	root.AddCommand(newIndexCmd(g))
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// loadConfig decodes the settings prepared by the root command.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// openEngine loads the configuration and opens the engine it names.
func openEngine(cmd *cobra.Command, g *globals) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.Open(cmd.Context(), cfg, g.logger)
}
