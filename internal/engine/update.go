package engine

import (
	"context"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/probehq/probe/internal/chunk"
	"github.com/probehq/probe/internal/metadata"
	"github.com/probehq/probe/internal/perr"
	"github.com/probehq/probe/internal/scanner"
)

// parallelism bounds the parsing/chunking worker pool to the number of
// logical CPUs (runtime.NumCPU), not physical cores; the writer side is serialized internally through the
// single writer.lock file lock.
func parallelism() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// UpdateResult reports what one Update() pass did (for callers and for
// tests verifying idempotence).
type UpdateResult struct {
	Added      int
	Modified   int
	Deleted    int
	Unchanged  int
	FileErrors []error // per-file ParseError/IoError, non-fatal
}

// Update runs FileScanner → MetadataStore diff → chunk+index added and
// modified paths → commit writer and MetadataStore. If the persisted
// schema/tokenizer header disagrees with the engine's compiled-in
// values, Update transparently rebuilds instead.
func (e *Engine) Update(ctx context.Context) (*UpdateResult, error) {
	e.mu.Lock()
	dirty := e.state == StateDirty
	e.mu.Unlock()
	if dirty {
		if err := e.Rebuild(ctx); err != nil {
			return nil, err
		}
		// Rebuild() already ran a full Update() against the clean slate.
		return &UpdateResult{}, nil
	}

	entries, fileErrors, err := e.scanEntries(ctx)
	if err != nil {
		return nil, err
	}

	diff := e.metaStore.Diff(metadataScanEntries(entries))
	byPath := make(map[string]scanner.FileInfo, len(entries))
	for _, entry := range entries {
		byPath[entry.Path] = entry
	}

	for _, path := range diff.Deleted {
		if err := e.writer.DeletePath(ctx, path); err != nil {
			return nil, err
		}
	}

	toProcess := append(append([]string{}, diff.Added...), diff.Modified...)

	var mu sync.Mutex
	upserts := make(map[string]*metadata.FileRecord, len(toProcess))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism())

	for _, path := range toProcess {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil // cancellation: leave this file for next run
			default:
			}

			info := byPath[path]
			content, readErr := readFile(info.AbsPath)
			if readErr != nil {
				mu.Lock()
				fileErrors = append(fileErrors, perr.Wrap(perr.IoError, readErr, "read "+path))
				mu.Unlock()
				return nil
			}

			chunks, chunkErr := e.chunker.Chunk(gctx, &chunk.FileInput{
				Path: path, Content: content, Language: info.Language,
			})
			if chunkErr != nil {
				mu.Lock()
				fileErrors = append(fileErrors, perr.Wrap(perr.ParseError, chunkErr, "chunk "+path))
				mu.Unlock()
				return nil
			}

			// Per-path delete-before-insert within the same commit, routed
			// through this one goroutine for the path.
			if err := e.writer.DeletePath(gctx, path); err != nil {
				return err
			}
			if err := e.writer.IndexChunks(gctx, chunks); err != nil {
				return err
			}

			ids := make([]string, len(chunks))
			for i, c := range chunks {
				ids[i] = c.ID
			}
			mu.Lock()
			upserts[path] = &metadata.FileRecord{
				Path:        path,
				Fingerprint: metadata.FingerprintOf(info.Size, info.ModTime),
				ChunkIDs:    ids,
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Writer commit precedes metadata commit for crash-safety: if we
	// crash between the two, the next run sees these paths as
	// still-modified (fingerprint mismatch) and redoes them, which is
	// safe because delete-by-path precedes insert.
	if err := e.writer.Commit(ctx); err != nil {
		return nil, err
	}

	deleted := diff.Deleted
	if err := e.metaStore.Commit(upserts, deleted, e.header); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.state = StatePopulated
	e.mu.Unlock()

	return &UpdateResult{
		Added:      len(diff.Added),
		Modified:   len(diff.Modified),
		Deleted:    len(diff.Deleted),
		Unchanged:  len(diff.Unchanged),
		FileErrors: fileErrors,
	}, nil
}

func (e *Engine) scanEntries(ctx context.Context) ([]scanner.FileInfo, []error, error) {
	results, err := e.scan.Scan(ctx, &scanner.ScanOptions{
		RootDir:          e.root,
		RespectGitignore: true,
	})
	if err != nil {
		return nil, nil, err
	}

	var entries []scanner.FileInfo
	var fileErrors []error
	for res := range results {
		if res.Error != nil {
			fileErrors = append(fileErrors, res.Error)
			continue
		}
		entries = append(entries, *res.File)
	}
	return entries, fileErrors, nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// metadataScanEntries adapts scanner.FileInfo to metadata.ScanEntry for
// Diff, keeping the metadata package free of a scanner import.
func metadataScanEntries(infos []scanner.FileInfo) []metadata.ScanEntry {
	out := make([]metadata.ScanEntry, len(infos))
	for i, info := range infos {
		out[i] = metadata.ScanEntry{Path: info.Path, Size: info.Size, ModTime: info.ModTime}
	}
	return out
}
