// Package rerank resolves a built-in or custom cross-encoder model to a
// local cache directory, scores (query, document) batches over a local
// inference sidecar, and blends those scores with BM25 per the search
// engine's policy.
package rerank

import (
	"os"
	"path/filepath"

	"github.com/probehq/probe/internal/perr"
)

const (
	tokenizerFileName = "tokenizer.json"
	configFileName    = "config.json"
)

// ModelDescriptor names one cross-encoder model: either a built-in id or
// a user-declared custom_rerankers entry from ~/.probe/config.yaml.
type ModelDescriptor struct {
	ID              string
	Description     string
	ModelCode       string // hf-repo-path; informational only, the core never fetches
	ModelFile       string
	AdditionalFiles []string
}

// BuiltinModels is the core's built-in model registry, surfaced by the
// CLI's list-models command.
var BuiltinModels = map[string]ModelDescriptor{
	"cross-encoder-mini": {
		ID:              "cross-encoder-mini",
		Description:     "small built-in cross-encoder; default rerank model",
		ModelCode:       "cross-encoder/ms-marco-MiniLM-L-6-v2",
		ModelFile:       "model.onnx",
		AdditionalFiles: []string{tokenizerFileName, configFileName},
	},
}

// DefaultModelID is used when the CLI's --rerank-model flag and the user
// config's default_reranker are both absent.
const DefaultModelID = "cross-encoder-mini"

// ResolvedModel is a model whose cache directory has been verified to
// hold every declared file.
type ResolvedModel struct {
	Descriptor  ModelDescriptor
	Dir         string
	WeightsPath string
}

// ResolveModel locates modelsDir/<id> and verifies the weights file,
// declared additional files, tokenizer, and config are all present.
// Strictly read-only: a missing file fails with ModelMissing rather than
// downloading it, since fetching a model is an external collaborator's
// job, not the core's.
func ResolveModel(modelsDir string, desc ModelDescriptor) (*ResolvedModel, error) {
	dir := filepath.Join(modelsDir, desc.ID)
	weightsPath := filepath.Join(dir, desc.ModelFile)
	if !fileExists(weightsPath) {
		return nil, missingFileErr(desc.ID, dir, weightsPath)
	}
	for _, f := range desc.AdditionalFiles {
		p := filepath.Join(dir, f)
		if !fileExists(p) {
			return nil, missingFileErr(desc.ID, dir, p)
		}
	}
	for _, f := range []string{tokenizerFileName, configFileName} {
		p := filepath.Join(dir, f)
		if !fileExists(p) {
			return nil, missingFileErr(desc.ID, dir, p)
		}
	}
	return &ResolvedModel{Descriptor: desc, Dir: dir, WeightsPath: weightsPath}, nil
}

func missingFileErr(id, dir, path string) error {
	return perr.Newf(perr.ModelMissing, "model %q: required file not found: %s", id, path).
		WithSuggestion("place the model's files under " + dir + "; probe does not download models itself")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// DefaultModelsDir returns ~/.probe/models, the reranker model cache
// root.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".probe", "models")
}
