package chunk

import "strings"

// SymbolExtractor pulls declaration metadata (name, signature, doc
// comment) out of a parsed AST node.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor creates an extractor bound to the default registry.
func NewSymbolExtractor() *SymbolExtractor {
	return &SymbolExtractor{registry: DefaultRegistry()}
}

// NewSymbolExtractorWithRegistry creates an extractor bound to a custom
// registry (used by tests exercising a subset of languages).
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// Extract walks a parsed tree and returns every declaration it recognizes
// for that language.
func (e *SymbolExtractor) Extract(tree *Tree, source []byte) []*Symbol {
	if tree == nil || tree.Root == nil {
		return []*Symbol{}
	}

	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return []*Symbol{}
	}

	var symbols []*Symbol
	tree.Root.Walk(func(n *Node) bool {
		if sym := e.extractSymbolFromNode(n, source, config, tree.Language); sym != nil {
			symbols = append(symbols, sym)
		}
		return true
	})
	return symbols
}

func (e *SymbolExtractor) extractSymbolFromNode(n *Node, source []byte, config *LanguageConfig, language string) *Symbol {
	symType, found := classifyNodeType(n.Type, config)
	if !found {
		if sym := e.extractSpecialSymbol(n, source, language); sym != nil {
			return sym
		}
		return nil
	}

	name := e.extractName(n, source, config, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Type:       symType,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Signature:  e.extractSignature(n, source, symType, language),
		DocComment: e.extractDocComment(n, source, language),
	}
}

// classifyNodeType reports the SymbolType a tree-sitter node type maps to
// under config, checking the more specific categories (method, class,
// interface) before the generic ones (type, constant, variable). When a
// node type sits in several tables, the first table listed wins (Rust's
// function_item is in both MethodTypes and FunctionTypes and always
// classifies as a method, for instance).
func classifyNodeType(nodeType string, config *LanguageConfig) (SymbolType, bool) {
	tables := []struct {
		types []string
		kind  SymbolType
	}{
		{config.MethodTypes, SymbolTypeMethod},
		{config.FunctionTypes, SymbolTypeFunction},
		{config.ClassTypes, SymbolTypeClass},
		{config.InterfaceTypes, SymbolTypeInterface},
		{config.TypeDefTypes, SymbolTypeType},
		{config.ConstantTypes, SymbolTypeConstant},
		{config.VariableTypes, SymbolTypeVariable},
	}
	for _, table := range tables {
		for _, t := range table.types {
			if t == nodeType {
				return table.kind, true
			}
		}
	}
	return "", false
}

func (e *SymbolExtractor) extractName(n *Node, source []byte, config *LanguageConfig, language string) string {
	switch language {
	case "go":
		return e.extractGoName(n, source)
	case "ts", "tsx":
		return e.extractTSName(n, source)
	case "js", "jsx":
		return e.extractJSName(n, source)
	case "py":
		return e.extractPyName(n, source)
	case "java":
		return e.extractJavaName(n, source)
	case "rs":
		return e.extractRustName(n, source)
	default:
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	case "method_declaration":
		for _, child := range n.Children {
			if child.Type == "field_identifier" {
				return child.GetContent(source)
			}
		}
	case "type_declaration":
		for _, child := range n.Children {
			if child.Type == "type_spec" {
				for _, gc := range child.Children {
					if gc.Type == "type_identifier" {
						return gc.GetContent(source)
					}
				}
			}
		}
	case "const_declaration":
		for _, child := range n.Children {
			if child.Type == "const_spec" {
				for _, gc := range child.Children {
					if gc.Type == "identifier" {
						return gc.GetContent(source)
					}
				}
			}
		}
	case "var_declaration":
		for _, child := range n.Children {
			if child.Type == "var_spec" {
				for _, gc := range child.Children {
					if gc.Type == "identifier" {
						return gc.GetContent(source)
					}
				}
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractTSName(n *Node, source []byte) string {
	return e.extractJSName(n, source)
}

func (e *SymbolExtractor) extractJSName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, child := range n.Children {
			if child.Type == "variable_declarator" {
				for _, gc := range child.Children {
					if gc.Type == "identifier" {
						return gc.GetContent(source)
					}
				}
			}
		}
	}
	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" || child.Type == "property_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractPyName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractJavaName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractRustName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

// extractSpecialSymbol recognizes const/let bindings to an arrow function
// or function expression, which JS/TS grammars don't give a dedicated
// node type for.
func (e *SymbolExtractor) extractSpecialSymbol(n *Node, source []byte, language string) *Symbol {
	switch language {
	case "ts", "tsx", "js", "jsx":
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			return e.extractJSVariableFunctionSymbol(n, source)
		}
	}
	return nil
}

func (e *SymbolExtractor) extractJSVariableFunctionSymbol(n *Node, source []byte) *Symbol {
	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}
		var name string
		var hasFunction bool
		for _, gc := range child.Children {
			if gc.Type == "identifier" {
				name = gc.GetContent(source)
			}
			if gc.Type == "arrow_function" || gc.Type == "function" || gc.Type == "function_expression" {
				hasFunction = true
			}
		}
		if name != "" && hasFunction {
			content := n.GetContent(source)
			return &Symbol{
				Name:      name,
				Type:      SymbolTypeFunction,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Signature: e.extractFunctionSignature(content, "js"),
			}
		}
	}
	return nil
}

// extractDocComment walks backward from n's start line collecting
// single-line comments, skipping blank lines, until it reaches a line
// that is neither.
func (e *SymbolExtractor) extractDocComment(n *Node, source []byte, language string) string {
	if n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	var commentLines []string
	pos := lineStart - 1

	for pos > 0 {
		lineEnd := pos
		pos--
		for pos > 0 && source[pos] != '\n' {
			pos--
		}
		start := pos
		if pos > 0 {
			start++
		}

		line := strings.TrimSpace(string(source[start:lineEnd]))
		if isCommentLine(line, language) {
			commentLines = append([]string{stripCommentMarker(line, language)}, commentLines...)
			continue
		}
		if line != "" {
			break
		}
	}

	if len(commentLines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(commentLines, "\n"))
}

func isCommentLine(line, language string) bool {
	switch language {
	case "py":
		return strings.HasPrefix(line, "#")
	default:
		return strings.HasPrefix(line, "//")
	}
}

func stripCommentMarker(line, language string) string {
	switch language {
	case "py":
		return strings.TrimPrefix(line, "#")
	default:
		return strings.TrimPrefix(line, "//")
	}
}

// extractSignature returns the declaration's first line, cut before the
// opening brace if that line has one (for Python, the whole first line).
func (e *SymbolExtractor) extractSignature(n *Node, source []byte, symbolType SymbolType, language string) string {
	content := n.GetContent(source)
	if content == "" {
		return ""
	}
	switch symbolType {
	case SymbolTypeFunction, SymbolTypeMethod:
		return e.extractFunctionSignature(content, language)
	case SymbolTypeClass, SymbolTypeInterface, SymbolTypeType:
		return e.extractTypeSignature(content, language)
	}
	return ""
}

func (e *SymbolExtractor) extractFunctionSignature(content, language string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])

	switch language {
	case "py":
		return firstLine
	default:
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	}
}

func (e *SymbolExtractor) extractTypeSignature(content, language string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])

	switch language {
	case "py":
		return firstLine
	default:
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	}
}
