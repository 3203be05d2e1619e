package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/engine"
)

var (
	noRerankFlag         bool
	rerankModelFlag      string
	rerankCandidatesFlag int
	topFlag              int
	pathFlag             string
)

func registerSearchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&noRerankFlag, "no-rerank", false, "disable cross-encoder reranking")
	cmd.Flags().StringVar(&rerankModelFlag, "rerank-model", "", "reranker model id (default: user config or cross-encoder-mini)")
	cmd.Flags().IntVar(&rerankCandidatesFlag, "rerank-candidates", 0, "candidate pool size C (default: max(50, 5*top))")
	cmd.Flags().IntVar(&topFlag, "top", 10, "number of results to return")
	cmd.Flags().StringVar(&pathFlag, "path", "", "restrict results to paths with this prefix")
}

// runSearch is the root command's default action: search the query
// named by args.
func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	query := strings.Join(args, " ")

	root, err := projectRoot()
	if err != nil {
		return err
	}
	project, err := config.LoadProjectConfig(root)
	if err != nil {
		return err
	}

	reranker, closeReranker, err := buildReranker(cmd.Context())
	if err != nil {
		return err
	}
	if closeReranker != nil {
		defer closeReranker()
	}

	e, err := engine.OpenOrCreate(engine.Options{Root: root, Project: project, Reranker: reranker})
	if err != nil {
		return err
	}
	defer e.Close()

	if e.State() != engine.StatePopulated {
		if _, err := e.Update(cmd.Context()); err != nil {
			return err
		}
	}

	opts := engine.SearchOptions{
		Rerank:         !noRerankFlag && reranker != nil,
		CandidateCount: rerankCandidatesFlag,
		TopN:           topFlag,
		PathPrefix:     pathFlag,
	}

	results, err := e.Search(cmd.Context(), query, opts)
	if err != nil {
		return err
	}

	if jsonFlag {
		return out.JSONResults(results.Results)
	}
	out.Results(results.Results)
	return nil
}
