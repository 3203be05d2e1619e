package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectConfig_Missing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadProjectConfig(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Stemming.Enabled)
	assert.Equal(t, "en", cfg.Stemming.Language)
}

func TestLoadProjectConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	content := "stemming:\n  enabled: false\n  language: fr\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "probe.yml"), []byte(content), 0o644))

	cfg, err := LoadProjectConfig(dir)
	require.NoError(t, err)
	assert.False(t, cfg.Stemming.Enabled)
	assert.Equal(t, "fr", cfg.Stemming.Language)
}

func TestLoadProjectConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "probe.yml"), []byte("stemming: [this is not a map"), 0o644))

	_, err := LoadProjectConfig(dir)
	require.Error(t, err)
}

func TestLoadUserConfig_Missing(t *testing.T) {
	cfg, err := LoadUserConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.DefaultReranker)
	assert.Empty(t, cfg.CustomRerankers)
}

func TestLoadUserConfig_CustomRerankers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `default_reranker: my-model
custom_rerankers:
  my-model:
    description: team cross-encoder
    model_code: org/my-model
    model_file: model.onnx
    additional_files:
      - tokenizer.json
      - config.json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadUserConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "my-model", cfg.DefaultReranker)
	require.Contains(t, cfg.CustomRerankers, "my-model")
	entry := cfg.CustomRerankers["my-model"]
	assert.Equal(t, "org/my-model", entry.ModelCode)
	assert.Equal(t, []string{"tokenizer.json", "config.json"}, entry.AdditionalFiles)
}
