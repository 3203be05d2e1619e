package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/engine"
)

func newShowChunksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-chunks <path>",
		Short: "Print the chunks parsed from one file (debugging)",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowChunks,
	}
}

type jsonChunk struct {
	ID          string `json:"chunk_id"`
	Path        string `json:"path"`
	Filetype    string `json:"filetype"`
	Type        string `json:"chunk_type"`
	Name        string `json:"chunk_name"`
	Declaration string `json:"declaration"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
}

func runShowChunks(cmd *cobra.Command, args []string) error {
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

	chunks, err := e.ShowChunks(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonFlag {
		rendered := make([]jsonChunk, len(chunks))
		for i, c := range chunks {
			rendered[i] = jsonChunk{
				ID: c.ID, Path: c.Path, Filetype: c.Filetype, Type: string(c.Type),
				Name: c.Name, Declaration: c.Declaration, StartLine: c.StartLine, EndLine: c.EndLine,
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rendered)
	}

	for _, c := range chunks {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s:%d-%d", c.Type, c.Path, c.StartLine, c.EndLine)
		if c.Name != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " %s", c.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		if c.Declaration != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", c.Declaration)
		}
	}
	return nil
}
