// Package cmd implements probe's CLI commands: cobra.Command
// construction, PersistentPreRunE-driven logging setup, and the
// version template.
package cmd

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/probehq/probe/internal/output"
	"github.com/probehq/probe/internal/plog"
	"github.com/probehq/probe/pkg/version"
)

var (
	dirFlag    string
	configFlag string
	debugFlag  bool
	jsonFlag   bool

	loggingCleanup func()
	out            *output.Writer
)

// NewRootCmd builds probe's command tree: the default action searches
// (`probe <query>`), with rebuild/stats/list-models/show-chunks as
// subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "probe [query]",
		Short: "Local, offline code search",
		Long: `probe indexes a codebase with a language-aware chunker and full-text
search index, then answers queries with optional cross-encoder
reranking. It runs entirely locally with no network access.`,
		Version:           version.Short(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: setup,
		RunE:              runSearch,
	}
	root.SetVersionTemplate("probe version {{.Version}}\n")

	root.PersistentFlags().StringVarP(&dirFlag, "dir", "d", ".", "project root to search or index")
	root.PersistentFlags().StringVar(&configFlag, "config", "", "path to user config (default ~/.probe/config.yaml)")
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging to ~/.probe/logs/")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit machine-readable JSON")

	registerSearchFlags(root)

	root.AddCommand(newRebuildCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newListModelsCmd())
	root.AddCommand(newShowChunksCmd())

	return root
}

// setup wires debug logging and chooses the output writer's styling
// mode before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	cfg := plog.DefaultConfig()
	if debugFlag {
		cfg = plog.DebugConfig(plog.DefaultDir())
	}
	logger, cleanup, err := plog.Setup(cfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if jsonFlag {
		out = output.NewPlain(cmd.OutOrStdout())
	} else {
		out = output.New(cmd.OutOrStdout())
	}
	return nil
}

func projectRoot() (string, error) {
	return filepath.Abs(dirFlag)
}

// Execute runs the root command and returns its error (main.go maps it
// to an exit code and a formatted message).
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if loggingCleanup != nil {
		loggingCleanup()
	}
	return err
}
