package rerank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probehq/probe/internal/perr"
)

func writeModelFiles(t *testing.T, modelsDir string, desc ModelDescriptor, skip string) {
	t.Helper()
	dir := filepath.Join(modelsDir, desc.ID)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	files := append([]string{desc.ModelFile}, desc.AdditionalFiles...)
	for _, f := range files {
		if f == skip {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("stub"), 0o644))
	}
}

func TestResolveModel_AllFilesPresentSucceeds(t *testing.T) {
	// Given: a model cache directory with every declared file present
	modelsDir := t.TempDir()
	desc := BuiltinModels[DefaultModelID]
	writeModelFiles(t, modelsDir, desc, "")

	// When: resolving the model
	resolved, err := ResolveModel(modelsDir, desc)

	// Then: it succeeds and points at the weights file
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(modelsDir, desc.ID, desc.ModelFile), resolved.WeightsPath)
}

func TestResolveModel_MissingWeightsFileFailsWithModelMissing(t *testing.T) {
	modelsDir := t.TempDir()
	desc := BuiltinModels[DefaultModelID]
	writeModelFiles(t, modelsDir, desc, desc.ModelFile)

	_, err := ResolveModel(modelsDir, desc)
	require.Error(t, err)

	var perrErr *perr.Error
	require.ErrorAs(t, err, &perrErr)
	assert.Equal(t, perr.ModelMissing, perrErr.Kind)
}

func TestResolveModel_MissingAdditionalFileFailsWithModelMissing(t *testing.T) {
	modelsDir := t.TempDir()
	desc := BuiltinModels[DefaultModelID]
	writeModelFiles(t, modelsDir, desc, tokenizerFileName)

	_, err := ResolveModel(modelsDir, desc)
	require.Error(t, err)

	var perrErr *perr.Error
	require.ErrorAs(t, err, &perrErr)
	assert.Equal(t, perr.ModelMissing, perrErr.Kind)
}

func TestResolveModel_NeverFetchesMissingModel(t *testing.T) {
	// Given: a models directory that doesn't even exist yet
	modelsDir := filepath.Join(t.TempDir(), "does-not-exist")
	desc := BuiltinModels[DefaultModelID]

	// When: resolving
	_, err := ResolveModel(modelsDir, desc)

	// Then: it fails rather than attempting any download
	require.Error(t, err)
	_, statErr := os.Stat(modelsDir)
	assert.True(t, os.IsNotExist(statErr), "ResolveModel must not create or populate the models directory")
}
