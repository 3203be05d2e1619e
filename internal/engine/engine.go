// Package engine implements the top-level orchestrator binding
// FileScanner, CodeChunker, MetadataStore, SearchIndex and Reranker into
// open_or_create, update, rebuild and search operations: an options
// pattern plus errgroup-based concurrent fan-out over the scan → diff →
// chunk → index pipeline, with stats reporting.
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/probehq/probe/internal/chunk"
	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/index"
	"github.com/probehq/probe/internal/metadata"
	"github.com/probehq/probe/internal/perr"
	"github.com/probehq/probe/internal/rerank"
	"github.com/probehq/probe/internal/scanner"
)

// SchemaVersion is the engine's compiled-in index schema version. Bump
// it whenever schema.go's field mapping changes in a way existing
// indexes can't read.
const SchemaVersion uint32 = 1

// IndexDirName is the hidden sibling directory holding the index, the
// metadata store and the writer lock.
const IndexDirName = ".probe"

// State is the index directory's lifecycle state.
type State string

const (
	StateAbsent    State = "absent"
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
	StateDirty     State = "dirty"
)

// RerankerScorer is the subset of rerank.Reranker's surface the engine
// depends on; satisfied by *rerank.Reranker in production and by a fake
// in tests that don't want to dial a live cross-encoder sidecar.
type RerankerScorer interface {
	Score(ctx context.Context, query string, declarations, bodies []string) ([]float64, error)
}

// Options configures an Engine.
type Options struct {
	Root     string
	Project  config.ProjectConfig
	Reranker RerankerScorer // nil disables reranking (Open Question i: library callers get no reranking by default)
	Logger   *slog.Logger
}

// Engine is the search engine orchestrator. One Engine owns its writer
// exclusively for its lifetime.
type Engine struct {
	root     string
	indexDir string

	tokenizerCfg index.TokenizerConfig
	header       metadata.Header

	writer      *index.Writer
	searchIndex *index.SearchIndex
	metaStore   *metadata.Store
	scan        *scanner.Scanner
	chunker     *chunk.CodeChunker
	adjust      index.ScoreAdjustment
	reranker    RerankerScorer
	logger      *slog.Logger

	mu    sync.Mutex
	state State
}

// OpenOrCreate loads or initializes the index directory under
// opts.Root, validating the schema header. A missing index directory
// transitions Absent→Empty; an existing one whose header matches
// transitions to Populated; a mismatched header transitions to Dirty
// (the caller's next Update or Search will react to the resulting
// SchemaStale condition).
func OpenOrCreate(opts Options) (*Engine, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "resolve project root")
	}
	indexDir := filepath.Join(absRoot, IndexDirName)

	tokCfg := index.TokenizerConfig{
		StemmingEnabled: opts.Project.Stemming.Enabled,
		Language:        opts.Project.Stemming.Language,
	}
	header := metadata.Header{SchemaVersion: SchemaVersion, TokenizerDigest: tokCfg.Digest()}

	sc, err := scanner.New()
	if err != nil {
		return nil, err
	}

	metaPath := filepath.Join(indexDir, "metadata.bin")
	_, statErr := os.Stat(indexDir)
	existed := statErr == nil

	meta, err := metadata.Open(metaPath)
	if err != nil {
		return nil, err
	}

	writer, err := index.OpenWriter(indexDir, tokCfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		root:         absRoot,
		indexDir:     indexDir,
		tokenizerCfg: tokCfg,
		header:       header,
		writer:       writer,
		metaStore:    meta,
		scan:         sc,
		chunker:      chunk.NewCodeChunker(),
		adjust:       index.DefaultScoreAdjustment(),
		reranker:     opts.Reranker,
		logger:       logger,
	}
	e.searchIndex = index.New(writer, e.adjust)

	switch {
	case !existed:
		e.state = StateEmpty
	case meta.IsStale(header):
		e.state = StateDirty
	default:
		e.state = StatePopulated
	}

	return e, nil
}

// State reports the index directory's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Close releases the writer lock and the chunker's tree-sitter parser.
func (e *Engine) Close() error {
	e.chunker.Close()
	return e.writer.Close()
}

// Stats is the report produced by Stats().
type Stats struct {
	DocumentCount uint64
	FileCount     int
	IndexBytes    int64
	SchemaVersion uint32
}

// Stats reports document count, unique file count, on-disk index size,
// and schema version.
func (e *Engine) Stats() (*Stats, error) {
	docCount, err := e.writer.DocCount()
	if err != nil {
		return nil, perr.Wrap(perr.IndexCorrupt, err, "count indexed documents")
	}

	size, err := dirSize(e.indexDir)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "measure index directory size")
	}

	return &Stats{
		DocumentCount: docCount,
		FileCount:     len(e.metaStore.Paths()),
		IndexBytes:    size,
		SchemaVersion: SchemaVersion,
	}, nil
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}

// Rebuild drops the index directory's contents and metadata, then runs
// Update() against a clean slate.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.mu.Lock()
	if err := e.writer.Close(); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := os.RemoveAll(e.indexDir); err != nil {
		e.mu.Unlock()
		return perr.Wrap(perr.IoError, err, "remove index directory")
	}

	writer, err := index.OpenWriter(e.indexDir, e.tokenizerCfg)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.writer = writer
	e.searchIndex = index.New(writer, e.adjust)
	e.metaStore, err = metadata.Open(filepath.Join(e.indexDir, "metadata.bin"))
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = StateEmpty
	e.mu.Unlock()

	if _, err := e.Update(ctx); err != nil {
		return err
	}
	return nil
}
