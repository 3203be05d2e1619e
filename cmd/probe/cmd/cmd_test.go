package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make(map[string]bool)
	for _, sc := range cmd.Commands() {
		names[sc.Name()] = true
	}
	for _, want := range []string{"rebuild", "stats", "list-models", "show-chunks"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestSearch_NoArgsPrintsHelp(t *testing.T) {
	root := t.TempDir()
	out, err := runCLI(t, "--dir", root, "--no-rerank")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage")
}

func TestSearch_FindsIndexedFunction(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a\n\nfunc UniqueSearchTarget() {}\n")

	out, err := runCLI(t, "--dir", root, "--no-rerank", "--json", "UniqueSearchTarget")
	require.NoError(t, err)
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "UniqueSearchTarget")
}

func TestRebuild_Succeeds(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")

	_, err := runCLI(t, "--dir", root, "rebuild")
	require.NoError(t, err)
}

func TestStats_PrintsJSON(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")

	_, err := runCLI(t, "--dir", root, "rebuild")
	require.NoError(t, err)

	out, err := runCLI(t, "--dir", root, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "document_count")
	assert.Contains(t, out, "schema_version")
}

func TestListModels_IncludesBuiltin(t *testing.T) {
	out, err := runCLI(t, "list-models", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "cross-encoder-mini")
}

func TestShowChunks_PrintsChunks(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")

	out, err := runCLI(t, "--dir", root, "show-chunks", "a.go")
	require.NoError(t, err)
	assert.Contains(t, out, "a.go")
}
