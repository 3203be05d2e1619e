package index

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
)

// DefaultCodeStopWords are common language keywords filtered out of the
// tokenized fields so they don't dilute BM25 term weights.
var DefaultCodeStopWords = []string{
	"the", "a", "an", "and", "or", "if", "else", "for", "while", "do",
	"return", "func", "function", "def", "class", "public", "private",
	"protected", "static", "void", "this", "self", "null", "nil", "true",
	"false", "import", "package", "from", "var", "let", "const",
}

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// TokenizeCode splits text with code-aware rules: camelCase, PascalCase
// and snake_case boundaries, lowercased, tokens under 2 characters
// dropped.
func TokenizeCode(text string) []string {
	var tokens []string

	words := tokenRegex.FindAllString(text, -1)
	for _, word := range words {
		for _, t := range SplitCodeToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// SplitCodeToken splits snake_case first, then camelCase within each
// part.
func SplitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, SplitCamelCase(part)...)
			}
		}
		return result
	}
	return SplitCamelCase(token)
}

// SplitCamelCase splits camelCase/PascalCase identifiers, keeping
// acronym runs together (e.g. "parseHTTPRequest" -> ["parse", "HTTP",
// "Request"]).
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

func buildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// codeTokenizer implements analysis.Tokenizer by running TokenizeCode
// over the input and re-locating each token's byte offsets.
type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}

// codeStopFilter drops stop words post-tokenization.
type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, isStop := f.stopWords[strings.ToLower(string(token.Term))]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// PathTokens derives the path_tokens field value from a relative path:
// path separators, dots and hyphens become spaces, so
// "internal/search/engine.go" yields "internal search engine go", which
// the field's code-aware analyzer then splits into tokens at index time.
func PathTokens(path string) string {
	replaced := strings.NewReplacer("/", " ", "\\", " ", ".", " ", "-", " ").Replace(path)
	return replaced
}
