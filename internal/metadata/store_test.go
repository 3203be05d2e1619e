package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OpenMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.bin")

	s, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, s.Paths())
	assert.Equal(t, Header{}, s.Header())
}

func TestStore_CommitThenReopenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.bin")
	now := time.Now()

	s, err := Open(path)
	require.NoError(t, err)

	header := Header{SchemaVersion: 1, TokenizerDigest: "abc123"}
	err = s.Commit(map[string]*FileRecord{
		"a.go": {Path: "a.go", Fingerprint: FingerprintOf(100, now), ChunkIDs: []string{"c1", "c2"}},
	}, nil, header)
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, header, reopened.Header())

	rec, ok := reopened.Record("a.go")
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "c2"}, rec.ChunkIDs)
	assert.Equal(t, FingerprintOf(100, now), rec.Fingerprint)
}

func TestStore_DiffClassifiesAddedModifiedDeletedUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.bin")
	t0 := time.Now()
	t1 := t0.Add(time.Hour)

	s, err := Open(path)
	require.NoError(t, err)

	err = s.Commit(map[string]*FileRecord{
		"same.go":     {Path: "same.go", Fingerprint: FingerprintOf(10, t0)},
		"changed.go":  {Path: "changed.go", Fingerprint: FingerprintOf(20, t0)},
		"deleted.go":  {Path: "deleted.go", Fingerprint: FingerprintOf(30, t0)},
	}, nil, Header{SchemaVersion: 1})
	require.NoError(t, err)

	d := s.Diff([]ScanEntry{
		{Path: "same.go", Size: 10, ModTime: t0},
		{Path: "changed.go", Size: 20, ModTime: t1},
		{Path: "new.go", Size: 5, ModTime: t0},
	})

	assert.ElementsMatch(t, []string{"new.go"}, d.Added)
	assert.ElementsMatch(t, []string{"changed.go"}, d.Modified)
	assert.ElementsMatch(t, []string{"deleted.go"}, d.Deleted)
	assert.ElementsMatch(t, []string{"same.go"}, d.Unchanged)
}

func TestStore_CommitDeletesRemovedPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.bin")
	now := time.Now()

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Commit(map[string]*FileRecord{
		"a.go": {Path: "a.go", Fingerprint: FingerprintOf(1, now)},
		"b.go": {Path: "b.go", Fingerprint: FingerprintOf(2, now)},
	}, nil, Header{SchemaVersion: 1}))

	require.NoError(t, s.Commit(nil, []string{"a.go"}, Header{SchemaVersion: 1}))

	_, ok := s.Record("a.go")
	assert.False(t, ok)
	_, ok = s.Record("b.go")
	assert.True(t, ok)
}

func TestStore_IsStaleDetectsSchemaOrTokenizerChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.bin")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Commit(nil, nil, Header{SchemaVersion: 1, TokenizerDigest: "v1"}))

	assert.False(t, s.IsStale(Header{SchemaVersion: 1, TokenizerDigest: "v1"}))
	assert.True(t, s.IsStale(Header{SchemaVersion: 2, TokenizerDigest: "v1"}))
	assert.True(t, s.IsStale(Header{SchemaVersion: 1, TokenizerDigest: "v2"}))
}

func TestStore_RejectsCorruptMagicAndTruncatedFile(t *testing.T) {
	dir := t.TempDir()

	truncated := filepath.Join(dir, "truncated.bin")
	require.NoError(t, os.WriteFile(truncated, []byte{1, 2, 3}, 0o644))
	_, err := Open(truncated)
	require.Error(t, err)

	badMagic := filepath.Join(dir, "badmagic.bin")
	require.NoError(t, os.WriteFile(badMagic, []byte("XXXX0001payload"), 0o644))
	_, err = Open(badMagic)
	require.Error(t, err)
}
