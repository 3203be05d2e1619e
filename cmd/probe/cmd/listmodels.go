package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/rerank"
)

func newListModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "Print built-in and custom reranker model names",
		Args:  cobra.NoArgs,
		RunE:  runListModels,
	}
}

type modelEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Custom      bool   `json:"custom"`
}

func runListModels(cmd *cobra.Command, _ []string) error {
	user, err := config.LoadUserConfig(userConfigPath())
	if err != nil {
		return err
	}

	entries := make([]modelEntry, 0, len(rerank.BuiltinModels)+len(user.CustomRerankers))
	for id, desc := range rerank.BuiltinModels {
		entries = append(entries, modelEntry{ID: id, Description: desc.Description})
	}
	for id, custom := range user.CustomRerankers {
		entries = append(entries, modelEntry{ID: id, Description: custom.Description, Custom: true})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	if jsonFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		tag := ""
		if e.Custom {
			tag = " (custom)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s - %s\n", e.ID, tag, e.Description)
	}
	return nil
}
