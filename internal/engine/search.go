package engine

import (
	"context"
	"os"
	"strings"

	"github.com/probehq/probe/internal/chunk"
	idx "github.com/probehq/probe/internal/index"
	"github.com/probehq/probe/internal/perr"
	"github.com/probehq/probe/internal/rerank"
	"github.com/probehq/probe/internal/scanner"
)

// SearchOptions configures one Search call.
type SearchOptions struct {
	Rerank         bool
	CandidateCount int     // C; default max(50, 5*TopN)
	TopN           int     // N; default 10
	Alpha          float64 // blending weight; 0 selects rerank.DefaultAlpha, so an exact α of 0 (pure rerank order) cannot be requested
	PathPrefix     string  // optional --path filter
}

// Result is one ranked hit, shaped for the CLI's JSON result record.
type Result struct {
	Path      string
	Score     float64
	ChunkType string
	ChunkName string
	StartLine int
	EndLine   int
	Snippet   string
}

// SearchResults is the outcome of one Search call.
type SearchResults struct {
	Results []Result
	Total   int // candidates considered, before truncation to TopN
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.TopN <= 0 {
		o.TopN = 10
	}
	if o.CandidateCount <= 0 {
		o.CandidateCount = o.TopN * 5
		if o.CandidateCount < 50 {
			o.CandidateCount = 50
		}
	}
	if o.Alpha == 0 && o.Rerank {
		o.Alpha = rerank.DefaultAlpha
	}
	if !o.Rerank {
		o.Alpha = 1
	}
	return o
}

// Search executes query against the SearchIndex, optionally reranks the
// candidate pool, blends scores, and truncates to TopN with snippets. A
// stale schema header fails with SchemaStale rather than silently
// rebuilding — unlike Update, Search never mutates state.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResults, error) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state == StateDirty {
		return nil, perr.New(perr.SchemaStale, "index schema or tokenizer configuration has changed").
			WithSuggestion("run `probe rebuild` to rebuild the index")
	}

	opts = opts.withDefaults()

	hits, err := e.searchIndex.Search(ctx, query, opts.CandidateCount)
	if err != nil {
		return nil, err
	}

	if opts.PathPrefix != "" {
		filtered := hits[:0]
		for _, h := range hits {
			if strings.HasPrefix(h.Path, opts.PathPrefix) {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	candidates := make([]rerank.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = rerank.Candidate{
			ChunkID:   h.ChunkID,
			Path:      h.Path,
			StartLine: h.StartLine,
			BM25Score: h.Score,
		}
	}

	if opts.Rerank && e.reranker != nil && len(hits) > 0 {
		declarations := make([]string, len(hits))
		bodies := make([]string, len(hits))
		for i, h := range hits {
			declarations[i] = h.Declaration
			bodies[i] = h.Body
		}
		scores, err := e.reranker.Score(ctx, query, declarations, bodies)
		if err != nil {
			return nil, perr.Wrap(perr.ModelLoadError, err, "score rerank candidates")
		}
		for i := range candidates {
			if i < len(scores) {
				candidates[i].RerankScore = scores[i]
				candidates[i].HasRerank = true
			}
		}
	}

	blended := rerank.Blend(candidates, opts.Alpha)

	byChunkID := make(map[string]idx.Hit, len(hits))
	for _, h := range hits {
		byChunkID[h.ChunkID] = h
	}

	n := opts.TopN
	if n > len(blended) {
		n = len(blended)
	}

	results := make([]Result, 0, n)
	for _, b := range blended[:n] {
		h := byChunkID[b.ChunkID]
		snippet := ""
		if len(h.Snippets) > 0 {
			snippet = h.Snippets[0]
		}
		results = append(results, Result{
			Path:      h.Path,
			Score:     b.Final,
			ChunkType: h.ChunkType,
			ChunkName: h.ChunkName,
			StartLine: h.StartLine,
			EndLine:   h.EndLine,
			Snippet:   snippet,
		})
	}

	return &SearchResults{Results: results, Total: len(hits)}, nil
}

// ShowChunks parses one file under the project root and returns its
// chunk sequence without touching the index (the CLI's show-chunks
// debug command).
func (e *Engine) ShowChunks(ctx context.Context, relPath string) ([]*chunk.Chunk, error) {
	absPath := relPath
	if !strings.HasPrefix(relPath, e.root) {
		absPath = e.root + string(os.PathSeparator) + relPath
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "read "+relPath)
	}

	language := scanner.DetectLanguage(relPath)
	return e.chunker.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: content, Language: language})
}
