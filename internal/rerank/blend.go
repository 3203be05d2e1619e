package rerank

import "sort"

// DefaultAlpha is the default blending weight: rerank dominant.
const DefaultAlpha = 0.3

// Candidate is the minimal shape Blend needs from one ranked chunk.
type Candidate struct {
	ChunkID     string
	Path        string
	StartLine   int
	BM25Score   float64
	RerankScore float64
	HasRerank   bool
}

// Blended is one candidate paired with its final blended score.
type Blended struct {
	Candidate
	Final float64
}

// Blend combines BM25 and rerank scores:
//
//	final = α·norm(bm25) + (1-α)·norm(rerank)
//
// both normalized min-max over the batch, with ties broken by higher
// BM25 score, then by (path, start_line) lexicographic. If no candidate
// carries a rerank score, alpha is forced to 1 (rerank disabled).
func Blend(candidates []Candidate, alpha float64) []Blended {
	if len(candidates) == 0 {
		return nil
	}

	anyRerank := false
	for _, c := range candidates {
		if c.HasRerank {
			anyRerank = true
			break
		}
	}
	if !anyRerank {
		alpha = 1
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	bm25Raw := make([]float64, len(candidates))
	rerankRaw := make([]float64, len(candidates))
	for i, c := range candidates {
		bm25Raw[i] = c.BM25Score
		if c.HasRerank {
			rerankRaw[i] = c.RerankScore
		}
	}
	bm25Norm := minMaxNormalize(bm25Raw)
	rerankNorm := minMaxNormalize(rerankRaw)

	out := make([]Blended, len(candidates))
	for i, c := range candidates {
		out[i] = Blended{
			Candidate: c,
			Final:     alpha*bm25Norm[i] + (1-alpha)*rerankNorm[i],
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Final != out[j].Final {
			return out[i].Final > out[j].Final
		}
		if out[i].BM25Score != out[j].BM25Score {
			return out[i].BM25Score > out[j].BM25Score
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].StartLine < out[j].StartLine
	})

	return out
}

// minMaxNormalize maps values onto [0, 1]; a batch with zero spread maps
// every value to 1 (a flat score shouldn't be treated as "worst").
func minMaxNormalize(vs []float64) []float64 {
	out := make([]float64, len(vs))
	if len(vs) == 0 {
		return out
	}

	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, v := range vs {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
