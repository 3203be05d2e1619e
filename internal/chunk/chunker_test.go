package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunksByType(chunks []*Chunk, kind ChunkType) []*Chunk {
	var out []*Chunk
	for _, c := range chunks {
		if c.Type == kind {
			out = append(out, c)
		}
	}
	return out
}

func chunkNames(chunks []*Chunk) []string {
	names := make([]string, len(chunks))
	for i, c := range chunks {
		names[i] = c.Name
	}
	return names
}

// A Java class with two methods produces exactly one class chunk and two
// method chunks, plus the always-emitted whole-file chunk.
func TestCodeChunker_JavaClassAndMethods(t *testing.T) {
	source := []byte(`public class UserManager {
    User getUserById(String id) {
        return repository.find(id);
    }

    User createUser(String u, String e) {
        return repository.save(u, e);
    }
}
`)

	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "UserManager.java", Content: source, Language: "java",
	})
	require.NoError(t, err)

	classes := chunksByType(chunks, ChunkTypeClass)
	methods := chunksByType(chunks, ChunkTypeMethod)
	files := chunksByType(chunks, ChunkTypeFile)

	require.Len(t, classes, 1)
	require.Len(t, methods, 2)
	require.Len(t, files, 1)

	assert.Equal(t, "UserManager", classes[0].Name)
	assert.ElementsMatch(t, []string{"getUserById", "createUser"}, chunkNames(methods))

	for _, m := range methods {
		assert.LessOrEqual(t, m.StartLine, m.EndLine)
		assert.GreaterOrEqual(t, m.StartLine, classes[0].StartLine)
		assert.LessOrEqual(t, m.EndLine, classes[0].EndLine)
	}
}

func TestCodeChunker_GoFunctionsAndTypes(t *testing.T) {
	source := []byte(`package main

func Hello() {
	println("hi")
}

type Calculator struct {
	value int
}

func (c *Calculator) Add(n int) int {
	return c.value + n
}
`)

	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.go", Content: source, Language: "go",
	})
	require.NoError(t, err)

	functions := chunksByType(chunks, ChunkTypeFunction)
	methods := chunksByType(chunks, ChunkTypeMethod)

	require.Len(t, functions, 1)
	require.Len(t, methods, 1)
	assert.Equal(t, "Hello", functions[0].Name)
	assert.Equal(t, "Add", methods[0].Name)
}

func TestCodeChunker_GenericFallbackForUnknownLanguage(t *testing.T) {
	lines := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		lines = append(lines, "line of config content")
	}
	content := []byte(strings.Join(lines, "\n"))

	chunker := NewCodeChunkerWithOptions(120, 10)
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "config.yaml", Content: content, Language: "yaml",
	})
	require.NoError(t, err)

	blocks := chunksByType(chunks, ChunkTypeBlock)
	files := chunksByType(chunks, ChunkTypeFile)
	require.Len(t, files, 1)
	require.NotEmpty(t, blocks)

	for _, b := range blocks {
		assert.Empty(t, b.Declaration)
		assert.Empty(t, b.Name)
		assert.LessOrEqual(t, b.StartLine, b.EndLine)
	}
}

func TestCodeChunker_EmptyFileStillYieldsWholeFileChunk(t *testing.T) {
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "empty.go", Content: []byte(""), Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, ChunkTypeFile, chunks[0].Type)
}

func TestCodeChunker_NormalizesCRLFLineEndings(t *testing.T) {
	source := []byte("package main\r\n\r\nfunc Hi() {\r\n\tprintln(1)\r\n}\r\n")

	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "crlf.go", Content: source, Language: "go",
	})
	require.NoError(t, err)

	functions := chunksByType(chunks, ChunkTypeFunction)
	require.Len(t, functions, 1)
	assert.False(t, strings.Contains(functions[0].Body, "\r"))
}

func TestDeriveChunkID_StableAcrossContentPreservingRebuild(t *testing.T) {
	id1 := deriveChunkID("a/b.go", ChunkTypeFunction, 0)
	id2 := deriveChunkID("a/b.go", ChunkTypeFunction, 0)
	assert.Equal(t, id1, id2)

	id3 := deriveChunkID("a/b.go", ChunkTypeFunction, 1)
	assert.NotEqual(t, id1, id3)
}
