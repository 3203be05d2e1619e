package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// CodeChunker dispatches a file to the right LanguageProcessor by
// filetype, falling back to the generic line-window processor when none
// claims it.
type CodeChunker struct {
	structural *structuralProcessor
	generic    *genericProcessor
}

// NewCodeChunker builds a chunker with the default window sizes.
func NewCodeChunker() *CodeChunker {
	return NewCodeChunkerWithOptions(DefaultWindowLines, DefaultOverlapLines)
}

// NewCodeChunkerWithOptions builds a chunker with custom generic-fallback
// window sizes.
func NewCodeChunkerWithOptions(windowLines, overlapLines int) *CodeChunker {
	registry := DefaultRegistry()
	return &CodeChunker{
		structural: &structuralProcessor{
			parser:    NewParserWithRegistry(registry),
			extractor: NewSymbolExtractorWithRegistry(registry),
			registry:  registry,
		},
		generic: &genericProcessor{windowLines: windowLines, overlapLines: overlapLines},
	}
}

// Close releases the tree-sitter parser.
func (c *CodeChunker) Close() {
	c.structural.parser.Close()
}

// Chunk turns one file into its chunk sequence. Line endings are
// normalized to "\n" first; the invariants — at least one chunk, monotone
// 1-based line numbers — hold regardless of which processor handled the
// file.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := normalizeLineEndings(file.Content)

	if c.structural.CanProcess(file.Language) {
		if chunks, err := c.structural.Chunk(ctx, content, file.Path, file.Language); err == nil {
			return chunks, nil
		}
		// Total parse failure (not a recoverable subtree error, which
		// structuralProcessor already degrades internally): fall through
		// to the generic window fallback for the whole file.
	}

	return c.generic.Chunk(ctx, content, file.Path, file.Language)
}

func normalizeLineEndings(content []byte) []byte {
	s := strings.ReplaceAll(string(content), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return []byte(s)
}

// deriveChunkID derives a stable chunk_id from (path, chunk kind,
// ordinal): stable across rebuilds of an unchanged file since content
// and byte offsets don't feed the hash, only structural position.
func deriveChunkID(path string, kind ChunkType, ordinal int) string {
	input := path + "\x00" + string(kind) + "\x00" + strconv.Itoa(ordinal)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

// ordinalCounter assigns a stable, per-kind ordinal within one file's
// chunking pass, in tree-walk (source) order.
type ordinalCounter struct {
	next map[ChunkType]int
}

func newOrdinalCounter() *ordinalCounter {
	return &ordinalCounter{next: make(map[ChunkType]int)}
}

func (o *ordinalCounter) take(kind ChunkType) int {
	n := o.next[kind]
	o.next[kind] = n + 1
	return n
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	if len(content) > 0 && content[len(content)-1] == '\n' {
		n--
	}
	return n
}

func wholeFileChunk(content []byte, path, filetype string) *Chunk {
	return &Chunk{
		ID:        deriveChunkID(path, ChunkTypeFile, 0),
		Path:      path,
		Filetype:  filetype,
		Type:      ChunkTypeFile,
		Body:      string(content),
		StartLine: 1,
		EndLine:   maxInt(countLines(content), 1),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
