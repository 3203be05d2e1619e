package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/gofrs/flock"

	"github.com/probehq/probe/internal/chunk"
	"github.com/probehq/probe/internal/perr"
)

// Default batch thresholds: commit when either is exceeded, whichever
// comes first.
const (
	DefaultBatchChunks = 256
	DefaultBatchBytes  = 16 * 1024 * 1024
)

// indexDoc is the bleve document shape for one chunk. Field names match
// the schema in schema.go exactly.
type indexDoc struct {
	Path        string `json:"path"`
	PathTokens  string `json:"path_tokens"`
	Filetype    string `json:"filetype"`
	ChunkType   string `json:"chunk_type"`
	ChunkID     string `json:"chunk_id"`
	ChunkName   string `json:"chunk_name"`
	Declaration string `json:"declaration"`
	Body        string `json:"body"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
}

func docFromChunk(c *chunk.Chunk) indexDoc {
	return indexDoc{
		Path:        c.Path,
		PathTokens:  PathTokens(c.Path),
		Filetype:    c.Filetype,
		ChunkType:   string(c.Type),
		ChunkID:     c.ID,
		ChunkName:   c.Name,
		Declaration: c.Declaration,
		Body:        c.Body,
		StartLine:   c.StartLine,
		EndLine:     c.EndLine,
	}
}

// Writer owns the index directory's bleve index and its exclusive
// writer.lock: one active writer at a time, enforced by a lock file; the
// engine owns the writer exclusively.
type Writer struct {
	dir      string
	idxPath  string
	lockPath string
	lock     *flock.Flock
	idx      bleve.Index
	cfg      TokenizerConfig

	mu           sync.Mutex
	batch        *bleve.Batch
	batchCount   int
	batchBytes   int64
	batchChunks  int
	batchLimit   int64
}

// OpenWriter acquires the writer.lock (non-blocking; WriterBusy if held
// by another process) and opens or creates the bleve index under dir.
func OpenWriter(dir string, cfg TokenizerConfig) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrap(perr.IoError, err, "create index directory "+dir)
	}

	lockPath := filepath.Join(dir, "writer.lock")
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "acquire writer lock")
	}
	if !ok {
		return nil, perr.New(perr.WriterBusy, "another process holds the index writer lock").
			WithSuggestion("wait for the other probe process to finish, or check for a stale writer.lock")
	}

	idxPath := filepath.Join(dir, "index")
	idx, err := openOrCreateBleveIndex(idxPath, cfg)
	if err != nil {
		_ = fl.Unlock()
		return nil, err
	}

	return &Writer{
		dir: dir, idxPath: idxPath, lockPath: lockPath,
		lock: fl, idx: idx, cfg: cfg,
		batchChunks: DefaultBatchChunks, batchLimit: DefaultBatchBytes,
	}, nil
}

func openOrCreateBleveIndex(path string, cfg TokenizerConfig) (bleve.Index, error) {
	if validErr := validateIndexIntegrity(path); validErr != nil {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, perr.Wrap(perr.IndexCorrupt, rmErr, "index corrupted and could not be cleared: "+validErr.Error())
		}
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		m, mErr := BuildMapping(cfg)
		if mErr != nil {
			return nil, perr.Wrap(perr.IndexCorrupt, mErr, "build index mapping")
		}
		idx, err = bleve.New(path, m)
	} else if err != nil && isCorruptionError(err) {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, perr.Wrap(perr.IndexCorrupt, rmErr, "index open failed and could not be cleared: "+err.Error())
		}
		m, mErr := BuildMapping(cfg)
		if mErr != nil {
			return nil, perr.Wrap(perr.IndexCorrupt, mErr, "build index mapping")
		}
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, perr.Wrap(perr.IndexCorrupt, err, "open or create search index")
	}
	return idx, nil
}

// validateIndexIntegrity performs a cheap pre-open sanity check
// (index_meta.json exists, non-empty, valid JSON) before handing the
// path to bleve.Open.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		strings.Contains(s, "no such file or directory") ||
		err == bleve.ErrorIndexMetaCorrupt
}

func (w *Writer) ensureBatch() {
	if w.batch == nil {
		w.batch = w.idx.NewBatch()
	}
}

// DeletePath issues a delete-by-term on path, within the same batch as
// any subsequent inserts for that path, satisfying the
// delete-before-insert contract and per-path ordering invariant.
func (w *Writer) DeletePath(ctx context.Context, path string) error {
	ids, err := w.docIDsForPath(ctx, path)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureBatch()
	for _, id := range ids {
		w.batch.Delete(id)
		w.batchCount++
	}
	return w.flushIfDueLocked()
}

func (w *Writer) docIDsForPath(ctx context.Context, path string) ([]string, error) {
	q := bleve.NewTermQuery(path)
	q.SetField(FieldPath)
	req := bleve.NewSearchRequest(q)
	req.Size = 100000
	req.Fields = nil

	result, err := w.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, perr.Wrap(perr.IndexCorrupt, err, "search for existing chunks of "+path)
	}
	ids := make([]string, len(result.Hits))
	for i, h := range result.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// IndexChunks enqueues chunks for insertion, auto-flushing the batch
// once either threshold (256 chunks / 16 MiB) is crossed.
func (w *Writer) IndexChunks(ctx context.Context, chunks []*chunk.Chunk) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureBatch()

	for _, c := range chunks {
		doc := docFromChunk(c)
		if err := w.batch.Index(c.ID, doc); err != nil {
			return perr.Wrap(perr.IoError, err, "enqueue chunk "+c.ID)
		}
		w.batchCount++
		w.batchBytes += int64(len(doc.Body) + len(doc.Declaration) + len(doc.Path))
	}

	return w.flushIfDueLocked()
}

func (w *Writer) flushIfDueLocked() error {
	if w.batch == nil {
		return nil
	}
	if w.batchCount >= w.batchChunks || w.batchBytes >= w.batchLimit {
		return w.commitLocked()
	}
	return nil
}

// Commit flushes any pending batch regardless of thresholds. Callers
// must call this — and have it return successfully — before committing
// the MetadataStore.
func (w *Writer) Commit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commitLocked()
}

func (w *Writer) commitLocked() error {
	if w.batch == nil || w.batchCount == 0 {
		w.batch = nil
		w.batchCount = 0
		w.batchBytes = 0
		return nil
	}
	if err := w.idx.Batch(w.batch); err != nil {
		return perr.Wrap(perr.IndexCorrupt, err, "commit index batch")
	}
	w.batch = nil
	w.batchCount = 0
	w.batchBytes = 0
	return nil
}

// Index exposes the underlying bleve index for read-only query
// construction (search.go). It is safe to call concurrently with
// writes; bleve serializes internally.
func (w *Writer) Index() bleve.Index {
	return w.idx
}

// DocCount reports the number of indexed chunk documents.
func (w *Writer) DocCount() (uint64, error) {
	return w.idx.DocCount()
}

// Close commits any pending batch, closes the bleve index, and releases
// the writer.lock.
func (w *Writer) Close() error {
	w.mu.Lock()
	commitErr := w.commitLocked()
	w.mu.Unlock()

	closeErr := w.idx.Close()
	unlockErr := w.lock.Unlock()

	if commitErr != nil {
		return commitErr
	}
	if closeErr != nil {
		return perr.Wrap(perr.IoError, closeErr, "close index")
	}
	if unlockErr != nil {
		return perr.Wrap(perr.IoError, unlockErr, "release writer lock")
	}
	return nil
}
