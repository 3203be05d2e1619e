package cmd

import (
	"github.com/spf13/cobra"

	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/engine"
)

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Drop and recreate the index",
		Args:  cobra.NoArgs,
		RunE:  runRebuild,
	}
}

func runRebuild(cmd *cobra.Command, _ []string) error {
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

	if err := e.Rebuild(cmd.Context()); err != nil {
		return err
	}

	out.Success("index rebuilt")
	return nil
}
