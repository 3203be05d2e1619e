package chunk

import (
	"context"
	"strings"
)

// genericProcessor is the fallback LanguageProcessor for files with no
// structural grammar registered: fixed-size overlapping line windows,
// each an opaque block chunk, plus the always-emitted whole-file chunk.
type genericProcessor struct {
	windowLines  int
	overlapLines int
}

func (p *genericProcessor) CanProcess(string) bool { return true }

func (p *genericProcessor) Chunk(ctx context.Context, sourceText []byte, relativePath, filetype string) ([]*Chunk, error) {
	if len(strings.TrimSpace(string(sourceText))) == 0 {
		return []*Chunk{wholeFileChunk(sourceText, relativePath, filetype)}, nil
	}

	lines := strings.Split(string(sourceText), "\n")
	windowLines := p.windowLines
	if windowLines <= 0 {
		windowLines = DefaultWindowLines
	}
	overlapLines := p.overlapLines
	if overlapLines < 0 || overlapLines >= windowLines {
		overlapLines = DefaultOverlapLines
	}

	ordinals := newOrdinalCounter()
	var chunks []*Chunk

	for i := 0; i < len(lines); {
		end := i + windowLines
		if end > len(lines) {
			end = len(lines)
		}

		body := strings.Join(lines[i:end], "\n")
		chunks = append(chunks, &Chunk{
			ID:        deriveChunkID(relativePath, ChunkTypeBlock, ordinals.take(ChunkTypeBlock)),
			Path:      relativePath,
			Filetype:  filetype,
			Type:      ChunkTypeBlock,
			Body:      body,
			StartLine: i + 1,
			EndLine:   end,
		})

		if end >= len(lines) {
			break
		}
		next := end - overlapLines
		if next <= i {
			next = end
		}
		i = next
	}

	chunks = append(chunks, wholeFileChunk(sourceText, relativePath, filetype))
	return chunks, nil
}
