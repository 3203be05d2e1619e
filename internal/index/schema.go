package index

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stemmer"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// Field names for the indexed chunk document.
const (
	FieldPath        = "path"
	FieldPathTokens  = "path_tokens"
	FieldFiletype    = "filetype"
	FieldChunkType   = "chunk_type"
	FieldChunkID     = "chunk_id"
	FieldChunkName   = "chunk_name"
	FieldDeclaration = "declaration"
	FieldBody        = "body"
	FieldStartLine   = "start_line"
	FieldEndLine     = "end_line"
)

// Field boost defaults for query construction.
const (
	WeightChunkName   = 3.0
	WeightDeclaration = 2.0
	WeightPathTokens  = 2.0
	WeightBody        = 1.0
)

// DefaultFields is the set searched by an unqualified query term.
var DefaultFields = []string{FieldChunkName, FieldDeclaration, FieldPathTokens, FieldBody}

// TokenizerConfig controls the code-aware analyzer's optional stemming,
// persisted in the MetadataStore header as a digest.
type TokenizerConfig struct {
	StemmingEnabled bool
	Language        string // bleve stemmer language code; "" means English default
}

// Digest renders a short string uniquely identifying this configuration,
// stored in metadata.Header.TokenizerDigest so a config change (stemming
// toggled, language changed) is detected as SchemaStale.
func (c TokenizerConfig) Digest() string {
	if !c.StemmingEnabled {
		return "nostem"
	}
	lang := c.Language
	if lang == "" {
		lang = "en"
	}
	return "stem:" + lang
}

const codeTokenizerName = "probe_code_tokenizer"
const codeStopFilterName = "probe_code_stop"
const codeAnalyzerPrefix = "probe_code_analyzer_"

var registerOnce sync.Once

// registerBaseComponents registers the code tokenizer and stop-word
// filter exactly once per process, through bleve/v2's global registry.
func registerBaseComponents() {
	registerOnce.Do(func() {
		_ = registry.RegisterTokenizer(codeTokenizerName, func(cfg map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
			return &codeTokenizer{}, nil
		})
		_ = registry.RegisterTokenFilter(codeStopFilterName, func(cfg map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
			return &codeStopFilter{stopWords: buildStopWordMap(DefaultCodeStopWords)}, nil
		})
	})
}

var stemmerMu sync.Mutex
var stemmerRegistered = map[string]bool{}

func stemmerFilterName(language string) string {
	lang := normalizeStemmerLanguage(language)
	return "probe_stemmer_" + lang
}

func registerStemmer(language string) (string, error) {
	lang := normalizeStemmerLanguage(language)
	name := stemmerFilterName(lang)

	stemmerMu.Lock()
	defer stemmerMu.Unlock()
	if stemmerRegistered[name] {
		return name, nil
	}
	err := registry.RegisterTokenFilter(name, func(cfg map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
		return stemmer.NewStemmerFilter(lang)
	})
	if err != nil {
		return "", err
	}
	stemmerRegistered[name] = true
	return name, nil
}

var supportedStemmerLanguages = map[string]bool{
	"en": true, "english": true, "fr": true, "de": true, "it": true,
	"pt": true, "es": true, "nl": true, "da": true, "fi": true, "hu": true,
	"no": true, "ro": true, "ru": true, "sv": true, "ta": true, "tr": true,
}

func normalizeStemmerLanguage(language string) string {
	if language == "" || language == "english" {
		return "en"
	}
	if supportedStemmerLanguages[language] {
		return language
	}
	return "en"
}

// codeAnalyzerName derives the per-TokenizerConfig analyzer name also
// registering its stemmer (global, idempotent) ahead of time.
func codeAnalyzerName(cfg TokenizerConfig) (string, []string, error) {
	registerBaseComponents()

	filters := []string{lowercase.Name, codeStopFilterName}
	if cfg.StemmingEnabled {
		stemName, err := registerStemmer(cfg.Language)
		if err != nil {
			return "", nil, fmt.Errorf("register stemmer: %w", err)
		}
		filters = append(filters, stemName)
	}

	return codeAnalyzerPrefix + cfg.Digest(), filters, nil
}

// BuildMapping constructs the bleve index mapping: exact-match keyword
// fields (path, filetype, chunk_type, chunk_id) and tokenized code-aware
// fields (chunk_name, declaration, body, path_tokens).
// start_line/end_line are stored but not indexed.
//
// bleve's custom analyzers live in the IndexMapping instance they were
// added to (not the global registry), so the analyzer must be added
// directly to the same *IndexMappingImpl this function returns.
func BuildMapping(cfg TokenizerConfig) (mapping.IndexMapping, error) {
	analyzerName, filters, err := codeAnalyzerName(cfg)
	if err != nil {
		return nil, err
	}

	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     codeTokenizerName,
		"token_filters": filters,
	}); err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	im.DefaultAnalyzer = analyzerName

	keywordField := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		fm.Index = true
		fm.IncludeInAll = false
		return fm
	}

	tokenizedField := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzerName
		fm.Store = true
		fm.Index = true
		fm.IncludeInAll = false
		return fm
	}

	numericStoredOnly := func() *mapping.FieldMapping {
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		fm.Index = false
		fm.IncludeInAll = false
		return fm
	}

	chunkDoc := bleve.NewDocumentMapping()
	chunkDoc.AddFieldMappingsAt(FieldPath, keywordField())
	chunkDoc.AddFieldMappingsAt(FieldPathTokens, tokenizedField())
	chunkDoc.AddFieldMappingsAt(FieldFiletype, keywordField())
	chunkDoc.AddFieldMappingsAt(FieldChunkType, keywordField())
	chunkDoc.AddFieldMappingsAt(FieldChunkID, keywordField())
	chunkDoc.AddFieldMappingsAt(FieldChunkName, tokenizedField())
	chunkDoc.AddFieldMappingsAt(FieldDeclaration, tokenizedField())
	chunkDoc.AddFieldMappingsAt(FieldBody, tokenizedField())
	chunkDoc.AddFieldMappingsAt(FieldStartLine, numericStoredOnly())
	chunkDoc.AddFieldMappingsAt(FieldEndLine, numericStoredOnly())

	im.DefaultMapping = chunkDoc
	return im, nil
}
