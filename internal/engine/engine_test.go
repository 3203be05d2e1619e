package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/perr"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const javaSample = `package demo;

class UserManager {
    User getUserById(String id) {
        return repo.find(id);
    }

    User createUser(String name, String email) {
        return repo.save(name, email);
    }
}
`

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	e, err := OpenOrCreate(Options{Root: root, Project: config.DefaultProjectConfig()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_OpenOrCreate_StartsEmpty(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)
	assert.Equal(t, StateEmpty, e.State())
}

func TestEngine_UpdateThenSearch_JavaClass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "UserManager.java", javaSample)

	e := newTestEngine(t, root)
	res, err := e.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, StatePopulated, e.State())

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, SchemaVersion, stats.SchemaVersion)
	assert.Equal(t, 1, stats.FileCount)

	results, err := e.Search(context.Background(), "getUserById", SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results.Results)
	assert.Equal(t, "UserManager.java", results.Results[0].Path)
}

func TestEngine_Update_IdempotentOnUnchangedTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")

	e := newTestEngine(t, root)
	_, err := e.Update(context.Background())
	require.NoError(t, err)

	statsBefore, err := e.Stats()
	require.NoError(t, err)

	res, err := e.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 0, res.Modified)
	assert.Equal(t, 0, res.Deleted)

	statsAfter, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsBefore.DocumentCount, statsAfter.DocumentCount)
}

func TestEngine_Update_DeletionRemovesChunks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package a\n\nfunc Keep() {}\n")
	writeFile(t, root, "gone.go", "package a\n\nfunc UniqueTermXyz() {}\n")

	e := newTestEngine(t, root)
	_, err := e.Update(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.go")))
	res, err := e.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	results, err := e.Search(context.Background(), "UniqueTermXyz", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results.Results)
}

func TestEngine_Rebuild_MatchesFreshUpdate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")

	e := newTestEngine(t, root)
	_, err := e.Update(context.Background())
	require.NoError(t, err)

	statsBeforeRebuild, err := e.Stats()
	require.NoError(t, err)

	require.NoError(t, e.Rebuild(context.Background()))

	statsAfterRebuild, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsBeforeRebuild.DocumentCount, statsAfterRebuild.DocumentCount)
}

func TestEngine_Search_PathPrefixFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", "package pkg\n\nfunc SearchTargetFn() {}\n")
	writeFile(t, root, "other/b.go", "package other\n\nfunc SearchTargetFn() {}\n")

	e := newTestEngine(t, root)
	_, err := e.Update(context.Background())
	require.NoError(t, err)

	results, err := e.Search(context.Background(), "SearchTargetFn", SearchOptions{PathPrefix: "pkg/"})
	require.NoError(t, err)
	for _, r := range results.Results {
		assert.Contains(t, r.Path, "pkg/")
	}
}

// fakeReranker scores every (declaration, body) pair by whether it
// mentions needle, letting tests control rerank order without depending
// on the structural processor's exact signature string format.
type fakeReranker struct {
	needle    string
	lowScore  float64
	highScore float64
}

func (f *fakeReranker) Score(_ context.Context, _ string, declarations, bodies []string) ([]float64, error) {
	out := make([]float64, len(declarations))
	for i := range declarations {
		if strings.Contains(declarations[i]+bodies[i], f.needle) {
			out[i] = f.highScore
		} else {
			out[i] = f.lowScore
		}
	}
	return out, nil
}

func TestEngine_Search_RerankAlphaZeroUsesRerankOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc SearchAlpha() {}\n")
	writeFile(t, root, "b.go", "package a\n\nfunc SearchBeta() {}\n")

	e, err := OpenOrCreate(Options{
		Root:     root,
		Project:  config.DefaultProjectConfig(),
		Reranker: &fakeReranker{needle: "SearchBeta", lowScore: 0.1, highScore: 0.9},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	_, err = e.Update(context.Background())
	require.NoError(t, err)

	// Alpha 0 selects rerank.DefaultAlpha; the rerank-favored b.go still
	// ranks first. Each file yields a function chunk and a whole-file
	// chunk, and both contain the term.
	results, err := e.Search(context.Background(), "Search", SearchOptions{Rerank: true, Alpha: 0})
	require.NoError(t, err)
	require.Len(t, results.Results, 4)
	assert.Equal(t, "b.go", results.Results[0].Path)
}

func TestEngine_SchemaBump_TriggersRebuildOnUpdate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")

	stemOn := config.ProjectConfig{Stemming: config.StemmingConfig{Enabled: true, Language: "en"}}
	e1, err := OpenOrCreate(Options{Root: root, Project: stemOn})
	require.NoError(t, err)
	_, err = e1.Update(context.Background())
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	stemOff := config.ProjectConfig{Stemming: config.StemmingConfig{Enabled: false, Language: "en"}}
	e2, err := OpenOrCreate(Options{Root: root, Project: stemOff})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e2.Close() })

	assert.Equal(t, StateDirty, e2.State())

	_, err = e2.Search(context.Background(), "Foo", SearchOptions{})
	require.Error(t, err)
	kind, ok := perr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, perr.SchemaStale, kind)

	_, err = e2.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePopulated, e2.State())

	results, err := e2.Search(context.Background(), "Foo", SearchOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, results.Results)
}
