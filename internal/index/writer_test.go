package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probehq/probe/internal/chunk"
	"github.com/probehq/probe/internal/perr"
)

func mustOpenWriter(t *testing.T, dir string) *Writer {
	t.Helper()
	w, err := OpenWriter(dir, TokenizerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func sampleChunks(path string) []*chunk.Chunk {
	return []*chunk.Chunk{
		{
			ID: "chunk-a", Path: path, Filetype: "go", Type: chunk.ChunkTypeFunction,
			Name: "HandleRequest", Declaration: "func HandleRequest(w http.ResponseWriter)",
			Body: "func HandleRequest(w http.ResponseWriter) { writeResponse(w) }",
			StartLine: 10, EndLine: 20,
		},
		{
			ID: "chunk-b", Path: path, Filetype: "go", Type: chunk.ChunkTypeFunction,
			Name: "writeResponse", Declaration: "func writeResponse(w http.ResponseWriter)",
			Body: "func writeResponse(w http.ResponseWriter) { w.Write(nil) }",
			StartLine: 22, EndLine: 25,
		},
	}
}

func TestWriter_IndexThenSearchFindsChunkByName(t *testing.T) {
	dir := t.TempDir()
	w := mustOpenWriter(t, dir)

	ctx := context.Background()
	require.NoError(t, w.IndexChunks(ctx, sampleChunks("internal/server/handler.go")))
	require.NoError(t, w.Commit(ctx))

	count, err := w.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	si := New(w, DefaultScoreAdjustment())
	hits, err := si.Search(ctx, "HandleRequest", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "chunk-a", hits[0].ChunkID)
}

func TestWriter_DeletePathRemovesOnlyThatPathsChunks(t *testing.T) {
	dir := t.TempDir()
	w := mustOpenWriter(t, dir)
	ctx := context.Background()

	require.NoError(t, w.IndexChunks(ctx, sampleChunks("a.go")))
	require.NoError(t, w.IndexChunks(ctx, sampleChunks("b.go")))
	require.NoError(t, w.Commit(ctx))

	count, err := w.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	require.NoError(t, w.DeletePath(ctx, "a.go"))
	require.NoError(t, w.Commit(ctx))

	count, err = w.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	si := New(w, DefaultScoreAdjustment())
	hits, err := si.Search(ctx, "path:b.go", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestWriter_AutoCommitsAtChunkThreshold(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWriter(dir, TokenizerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	w.batchChunks = 2

	ctx := context.Background()
	require.NoError(t, w.IndexChunks(ctx, sampleChunks("auto.go")))

	w.mu.Lock()
	autoCommitted := w.batch == nil
	w.mu.Unlock()
	assert.True(t, autoCommitted, "batch should have auto-flushed once the chunk threshold was reached")
}

func TestOpenWriter_SecondOpenOnSameDirIsWriterBusy(t *testing.T) {
	dir := t.TempDir()
	w1, err := OpenWriter(dir, TokenizerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w1.Close() })

	_, err = OpenWriter(dir, TokenizerConfig{})
	require.Error(t, err)
	var perrErr *perr.Error
	require.ErrorAs(t, err, &perrErr)
	assert.Equal(t, perr.WriterBusy, perrErr.Kind)
}

func TestOpenWriter_RebuildsOnCorruptIndexMeta(t *testing.T) {
	dir := t.TempDir()
	w := mustOpenWriter(t, dir)
	ctx := context.Background()
	require.NoError(t, w.IndexChunks(ctx, sampleChunks("x.go")))
	require.NoError(t, w.Commit(ctx))
	require.NoError(t, w.Close())

	metaPath := filepath.Join(dir, "index", "index_meta.json")
	require.NoError(t, os.WriteFile(metaPath, nil, 0o644))

	w2, err := OpenWriter(dir, TokenizerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w2.Close() })

	count, err := w2.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 0, count, "corrupt index should have been cleared and recreated empty")
}
