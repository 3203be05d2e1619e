package rerank

import (
	"context"
	"strings"
)

// DefaultMaxBodyLines bounds how much of a chunk's body is sent to the
// cross-encoder: declaration plus the first K lines of body. Document
// cuts by line count only; it does not truncate to the model's token
// limit.
const DefaultMaxBodyLines = 20

// Document renders one chunk into the short string a cross-encoder
// scores.
func Document(declaration, body string, maxBodyLines int) string {
	lines := strings.Split(body, "\n")
	if maxBodyLines > 0 && len(lines) > maxBodyLines {
		lines = lines[:maxBodyLines]
	}
	truncatedBody := strings.Join(lines, "\n")
	if declaration == "" {
		return truncatedBody
	}
	if truncatedBody == "" {
		return declaration
	}
	return declaration + "\n" + truncatedBody
}

// Reranker scores a batch of (declaration, body) documents against a
// query and returns scores min-max normalized to [0, 1] over the
// candidate batch.
type Reranker struct {
	encoder      *CrossEncoder
	maxBodyLines int
}

// New wraps an already-dialed CrossEncoder.
func New(encoder *CrossEncoder) *Reranker {
	return &Reranker{encoder: encoder, maxBodyLines: DefaultMaxBodyLines}
}

// Score returns one normalized score per (declaration, body) pair, in
// the same order. declarations and bodies must be the same length.
func (r *Reranker) Score(ctx context.Context, query string, declarations, bodies []string) ([]float64, error) {
	docs := make([]string, len(declarations))
	for i := range declarations {
		docs[i] = Document(declarations[i], bodies[i], r.maxBodyLines)
	}

	raw, err := r.encoder.Score(ctx, query, docs)
	if err != nil {
		return nil, err
	}
	return minMaxNormalize(raw), nil
}

// Available reports whether the underlying sidecar is reachable.
func (r *Reranker) Available(ctx context.Context) bool {
	return r.encoder.Available(ctx)
}

// Close releases the underlying CrossEncoder's connections.
func (r *Reranker) Close() error {
	return r.encoder.Close()
}
