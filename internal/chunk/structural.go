package chunk

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps tree-sitter for the subset of languages structuralProcessor
// knows how to classify. One Parser is shared across every file a
// structuralProcessor handles, since the underlying tree-sitter parser is
// safe to reuse sequentially and expensive to construct per file; Parse
// holds mu so concurrent callers take turns on it.
type Parser struct {
	mu       sync.Mutex
	ts       *sitter.Parser
	registry *LanguageRegistry
}

// NewParser builds a Parser over the default language registry.
func NewParser() *Parser {
	return NewParserWithRegistry(DefaultRegistry())
}

// NewParserWithRegistry builds a Parser over a custom registry, used by
// tests exercising a subset of languages.
func NewParserWithRegistry(registry *LanguageRegistry) *Parser {
	return &Parser{ts: sitter.NewParser(), registry: registry}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

// Parse parses sourceText as language and returns our Node-tree
// representation, so the rest of this package never touches tree-sitter's
// own node type.
func (p *Parser) Parse(ctx context.Context, sourceText []byte, language string) (*Tree, error) {
	tsLang, ok := p.registry.GetTreeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ts.SetLanguage(tsLang)

	tsTree, err := p.ts.ParseCtx(ctx, nil, sourceText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	if tsTree == nil {
		return nil, fmt.Errorf("failed to parse source: nil tree")
	}

	return &Tree{
		Root:     buildNodeTree(tsTree.RootNode()),
		Source:   sourceText,
		Language: language,
	}, nil
}

// buildNodeTree walks a tree-sitter tree with an explicit stack rather
// than recursing through Node.Child, so conversion depth is bounded by a
// slice instead of the Go call stack. It visits nodes in the same
// pre-order that Node.Walk (a recursive walk, used by
// structuralProcessor.Chunk) later follows over the converted tree.
func buildNodeTree(root *sitter.Node) *Node {
	if root == nil {
		return nil
	}

	type frame struct {
		tsNode *sitter.Node
		out    *Node
	}
	toNode := func(tsNode *sitter.Node) *Node {
		return &Node{
			Type:      tsNode.Type(),
			StartByte: tsNode.StartByte(),
			EndByte:   tsNode.EndByte(),
			StartPoint: Point{
				Row:    tsNode.StartPoint().Row,
				Column: tsNode.StartPoint().Column,
			},
			EndPoint: Point{
				Row:    tsNode.EndPoint().Row,
				Column: tsNode.EndPoint().Column,
			},
			HasError: tsNode.HasError(),
			Children: make([]*Node, 0, int(tsNode.ChildCount())),
		}
	}

	rootOut := toNode(root)
	stack := []frame{{tsNode: root, out: rootOut}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		count := int(cur.tsNode.ChildCount())
		children := make([]frame, 0, count)
		for i := 0; i < count; i++ {
			child := cur.tsNode.Child(i)
			if child == nil {
				continue
			}
			childOut := toNode(child)
			cur.out.Children = append(cur.out.Children, childOut)
			children = append(children, frame{tsNode: child, out: childOut})
		}
		// Push in reverse so the stack (LIFO) pops children in source order,
		// preserving the same pre-order a recursive walk would produce.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return rootOut
}

// structuralProcessor is the tree-sitter backed LanguageProcessor variant,
// generalized across every structural language in the registry: it walks
// the parsed tree and emits one chunk per class/interface/enum-like
// declaration and per method/function, plus a synthetic whole-file chunk.
// Nested declarations get their own chunks without truncating the
// enclosing declaration's body — an accepted recall/noise tradeoff.
type structuralProcessor struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
}

func (p *structuralProcessor) CanProcess(filetype string) bool {
	_, ok := p.registry.GetByName(filetype)
	return ok
}

func (p *structuralProcessor) Chunk(ctx context.Context, sourceText []byte, relativePath, filetype string) ([]*Chunk, error) {
	if len(sourceText) == 0 {
		return []*Chunk{wholeFileChunk(sourceText, relativePath, filetype)}, nil
	}

	config, ok := p.registry.GetByName(filetype)
	if !ok {
		return nil, fmt.Errorf("unsupported filetype: %s", filetype)
	}

	tree, err := p.parser.Parse(ctx, sourceText, filetype)
	if err != nil {
		// Total parse failure: let CodeChunker fall back to the generic
		// window processor for this file.
		return nil, err
	}

	ordinals := newOrdinalCounter()
	var chunks []*Chunk

	tree.Root.Walk(func(n *Node) bool {
		symType, matched := classifyNodeType(n.Type, config)
		if !matched {
			return true
		}
		chunkType, emits := symbolToChunkType(symType)
		if !emits {
			// Constants/variables/type aliases are parsed as symbols for
			// doc-comment/signature purposes elsewhere but don't get
			// their own top-level chunk here.
			return true
		}

		if n.HasError {
			chunks = append(chunks, p.blockChunk(n, sourceText, relativePath, filetype, ordinals))
			return true
		}

		name := p.extractor.extractName(n, sourceText, config, filetype)
		if name == "" {
			chunks = append(chunks, p.blockChunk(n, sourceText, relativePath, filetype, ordinals))
			return true
		}

		declaration := p.extractor.extractSignature(n, sourceText, symType, filetype)
		body := n.GetContent(sourceText)

		chunks = append(chunks, &Chunk{
			ID:          deriveChunkID(relativePath, chunkType, ordinals.take(chunkType)),
			Path:        relativePath,
			Filetype:    filetype,
			Type:        chunkType,
			Name:        name,
			Declaration: declaration,
			Body:        body,
			StartLine:   int(n.StartPoint.Row) + 1,
			EndLine:     int(n.EndPoint.Row) + 1,
		})
		return true
	})

	chunks = append(chunks, wholeFileChunk(sourceText, relativePath, filetype))

	if len(chunks) == 1 {
		// No symbol nodes matched at all (e.g. a file of only imports):
		// still satisfies "every file yields at least one chunk" via the
		// whole-file chunk already appended above.
		return chunks, nil
	}
	return chunks, nil
}

// blockChunk emits an opaque block chunk for a subtree that failed to
// parse cleanly (tree-sitter's HasError flag) or whose name couldn't be
// extracted.
func (p *structuralProcessor) blockChunk(n *Node, source []byte, path, filetype string, ordinals *ordinalCounter) *Chunk {
	return &Chunk{
		ID:        deriveChunkID(path, ChunkTypeBlock, ordinals.take(ChunkTypeBlock)),
		Path:      path,
		Filetype:  filetype,
		Type:      ChunkTypeBlock,
		Body:      n.GetContent(source),
		StartLine: int(n.StartPoint.Row) + 1,
		EndLine:   int(n.EndPoint.Row) + 1,
	}
}
