package cmd

import (
	"github.com/spf13/cobra"

	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/engine"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	project, err := config.LoadProjectConfig(root)
	if err != nil {
		return err
	}

	e, err := engine.OpenOrCreate(engine.Options{Root: root, Project: project})
	if err != nil {
		return err
	}
	defer e.Close()

	stats, err := e.Stats()
	if err != nil {
		return err
	}

	// stats always prints JSON to stdout.
	return out.JSONStats(stats)
}
