package index

import (
	"context"
	"testing"

	"github.com/probehq/probe/internal/chunk"
)

// newTestSearchIndex opens a Writer over a fresh temp directory, indexes
// chunks, commits, and wraps it in a SearchIndex with the default score
// adjustment.
func newTestSearchIndex(t *testing.T, chunks []*chunk.Chunk) *SearchIndex {
	t.Helper()
	ctx := context.Background()

	w, err := OpenWriter(t.TempDir(), TokenizerConfig{})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if err := w.IndexChunks(ctx, chunks); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	return New(w, DefaultScoreAdjustment())
}

// TestSearchIndex_Search_NameMatchOutranksBodyMatch seeds the field-boost
// scenario directly: one chunk whose name is searchUsers (the term lands
// in chunk_name, weighted 3x) against one whose name is findData and
// which only mentions "search" in its body (weighted 1x). The
// name-matching chunk must rank first.
func TestSearchIndex_Search_NameMatchOutranksBodyMatch(t *testing.T) {
	byName := &chunk.Chunk{
		ID:          "svc.go:function:0",
		Path:        "internal/service/svc.go",
		Filetype:    "go",
		Type:        chunk.ChunkTypeFunction,
		Name:        "searchUsers",
		Declaration: "func searchUsers(db *sql.DB, query string) ([]User, error)",
		Body:        "func searchUsers(db *sql.DB, query string) ([]User, error) {\n\treturn db.Query(query)\n}",
		StartLine:   1,
		EndLine:     3,
	}
	byBody := &chunk.Chunk{
		ID:          "other.go:function:0",
		Path:        "internal/service/other.go",
		Filetype:    "go",
		Type:        chunk.ChunkTypeFunction,
		Name:        "findData",
		Declaration: "func findData(ctx context.Context) ([]Record, error)",
		Body:        "func findData(ctx context.Context) ([]Record, error) {\n\t// a plain text search of the cache happens here\n\treturn cache.search(ctx)\n}",
		StartLine:   1,
		EndLine:     4,
	}

	si := newTestSearchIndex(t, []*chunk.Chunk{byBody, byName})

	hits, err := si.Search(context.Background(), "search", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d: %+v", len(hits), hits)
	}
	if hits[0].ChunkName != "searchUsers" {
		t.Fatalf("want searchUsers ranked first (chunk_name weighted over body), got %q first with score %v (second: %q score %v)",
			hits[0].ChunkName, hits[0].Score, hits[1].ChunkName, hits[1].Score)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("want name-matched hit to outscore body-matched hit, got %v <= %v", hits[0].Score, hits[1].Score)
	}
}

func TestScoreAdjustment_ClassMultiplierAppliesOnlyToClassChunks(t *testing.T) {
	adj := DefaultScoreAdjustment()

	got := adj.Apply("class", "internal/model/user.go", 10.0)
	if got != 8.0 {
		t.Fatalf("class chunk: want 8.0, got %v", got)
	}

	got = adj.Apply("function", "internal/model/user.go", 10.0)
	if got != 10.0 {
		t.Fatalf("non-class, non-test, non-main path: want unchanged 10.0, got %v", got)
	}
}

func TestScoreAdjustment_TestPathPenalized(t *testing.T) {
	adj := DefaultScoreAdjustment()

	got := adj.Apply("function", "internal/index/writer_test.go", 10.0)
	if got != 7.0 {
		t.Fatalf("test path: want 7.0, got %v", got)
	}
}

func TestScoreAdjustment_MainPathBoosted(t *testing.T) {
	adj := DefaultScoreAdjustment()

	got := adj.Apply("function", "cmd/probe/main.go", 10.0)
	if got != 12.0 {
		t.Fatalf("main path: want 12.0, got %v", got)
	}
}

func TestScoreAdjustment_TestAndMainAreMutuallyExclusive(t *testing.T) {
	adj := DefaultScoreAdjustment()

	// A path matching the test glob takes the test penalty even if it
	// sits under cmd/, since the test check runs first.
	got := adj.Apply("function", "cmd/probe/main_test.go", 10.0)
	if got != 7.0 {
		t.Fatalf("test path under cmd/: want 7.0 (test penalty wins), got %v", got)
	}
}

func TestMatchesAnyGlob_DoubleStarPrefixMatchesAnyDepth(t *testing.T) {
	cases := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"a_test.go", "**/*_test.go", true},
		{"internal/foo/bar_test.go", "**/*_test.go", true},
		{"internal/foo/bar.go", "**/*_test.go", false},
		{"main.go", "**/main.go", true},
		{"cmd/probe/main.go", "**/main.go", true},
		{"cmd/probe/server.go", "**/cmd/**", true},
		{"internal/cmd/helper.go", "**/cmd/**", true},
		{"internal/other/helper.go", "**/cmd/**", false},
	}
	for _, c := range cases {
		got := matchGlob(c.path, c.pattern)
		if got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.path, c.pattern, got, c.want)
		}
	}
}
