package index

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/probehq/probe/internal/index/queryparse"
	"github.com/probehq/probe/internal/perr"
)

// Hit is one scored chunk returned from SearchIndex.Search, before any
// Reranker blending.
type Hit struct {
	ChunkID     string
	Path        string
	Filetype    string
	ChunkType   string
	ChunkName   string
	Declaration string
	Body        string
	StartLine   int
	EndLine     int
	Score       float64
	Snippets    []string
}

// ScoreAdjustment is the configurable per-hit penalty/boost policy
// applied after query scoring and before reranking.
type ScoreAdjustment struct {
	ClassMultiplier float64
	TestPathGlobs   []string
	TestMultiplier  float64
	MainPathGlobs   []string
	MainMultiplier  float64
}

// DefaultScoreAdjustment returns the stated defaults.
func DefaultScoreAdjustment() ScoreAdjustment {
	return ScoreAdjustment{
		ClassMultiplier: 0.8,
		TestPathGlobs:   []string{"**/*_test.go", "**/test_*.py", "**/*.test.ts", "**/*.spec.ts", "**/*_test.py"},
		TestMultiplier:  0.7,
		MainPathGlobs:   []string{"**/main.go", "**/cmd/**"},
		MainMultiplier:  1.2,
	}
}

// Apply computes the adjusted score for one hit.
func (a ScoreAdjustment) Apply(chunkType, path string, score float64) float64 {
	if chunkType == "class" && a.ClassMultiplier != 0 {
		score *= a.ClassMultiplier
	}
	if matchesAnyGlob(path, a.TestPathGlobs) {
		score *= orOne(a.TestMultiplier)
	} else if matchesAnyGlob(path, a.MainPathGlobs) {
		score *= orOne(a.MainMultiplier)
	}
	return score
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// matchesAnyGlob is a small path-glob matcher supporting the "**/" and
// "/**" conventions the test/main path globs use, beyond what
// filepath.Match alone offers.
func matchesAnyGlob(path string, patterns []string) bool {
	for _, p := range patterns {
		if matchGlob(path, p) {
			return true
		}
	}
	return false
}

func matchGlob(path, pattern string) bool {
	p := pattern
	if strings.HasPrefix(p, "**/") {
		rest := p[3:]
		if matched, _ := filepath.Match(rest, filepath.Base(path)); matched {
			return true
		}
		if matched, _ := filepath.Match(rest, path); matched {
			return true
		}
		p = rest
	}
	if strings.HasSuffix(p, "/**") {
		prefix := strings.TrimSuffix(p, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/") || strings.Contains(path, "/"+prefix+"/")
	}
	if matched, _ := filepath.Match(p, path); matched {
		return true
	}
	if matched, _ := filepath.Match(p, filepath.Base(path)); matched {
		return true
	}
	return false
}

// SearchIndex executes queries against a Writer's underlying bleve
// index: query construction (queryparse), post-query score adjustment,
// and snippet generation.
type SearchIndex struct {
	writer *Writer
	adjust ScoreAdjustment
}

// New wraps a Writer (which owns the bleve.Index) for querying.
func New(writer *Writer, adjust ScoreAdjustment) *SearchIndex {
	return &SearchIndex{writer: writer, adjust: adjust}
}

var fieldAliases = map[string]string{
	"content": FieldBody,
	FieldPath: FieldPathTokens,
}

var fieldWeights = queryparse.FieldWeights{
	FieldChunkName:   WeightChunkName,
	FieldDeclaration: WeightDeclaration,
	FieldPathTokens:  WeightPathTokens,
	FieldBody:        WeightBody,
}

// Search parses rawQuery, fetches up to candidateCount hits, applies
// the score-adjustment policy, and returns them sorted by score desc,
// with a (path, start_line) tie-break (the same tie-break the rerank
// blend uses, reused here for the pre-rerank ordering too).
func (s *SearchIndex) Search(ctx context.Context, rawQuery string, candidateCount int) ([]Hit, error) {
	q, err := queryparse.Parse(rawQuery, queryparse.Options{
		DefaultFields: DefaultFields,
		Weights:       fieldWeights,
		FieldAliases:  fieldAliases,
	})
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequest(q)
	req.Size = candidateCount
	req.Fields = []string{
		FieldPath, FieldFiletype, FieldChunkType, FieldChunkID,
		FieldChunkName, FieldDeclaration, FieldBody, FieldStartLine, FieldEndLine,
	}
	req.IncludeLocations = true

	result, err := s.writer.Index().SearchInContext(ctx, req)
	if err != nil {
		return nil, perr.Wrap(perr.IndexCorrupt, err, "execute search")
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := hitFromDocMatch(h)
		hit.Score = s.adjust.Apply(hit.ChunkType, hit.Path, hit.Score)
		hit.Snippets = buildSnippets(hit, h.Locations)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].StartLine < hits[j].StartLine
	})

	return hits, nil
}

// DocCount reports the number of indexed chunk documents (for stats()).
func (s *SearchIndex) DocCount() (uint64, error) {
	return s.writer.DocCount()
}

func buildSnippets(hit Hit, locations search.FieldTermLocationMap) []string {
	text, field := hit.Body, FieldBody
	if text == "" {
		text, field = hit.Declaration, FieldDeclaration
	}
	return Snippets(text, locations, field)
}

func hitFromDocMatch(h *search.DocumentMatch) Hit {
	getString := func(k string) string {
		if v, ok := h.Fields[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(k string) int {
		if v, ok := h.Fields[k]; ok {
			if f, ok := v.(float64); ok {
				return int(f)
			}
		}
		return 0
	}

	return Hit{
		ChunkID:     h.ID,
		Path:        getString(FieldPath),
		Filetype:    getString(FieldFiletype),
		ChunkType:   getString(FieldChunkType),
		ChunkName:   getString(FieldChunkName),
		Declaration: getString(FieldDeclaration),
		Body:        getString(FieldBody),
		StartLine:   getInt(FieldStartLine),
		EndLine:     getInt(FieldEndLine),
		Score:       h.Score,
	}
}
