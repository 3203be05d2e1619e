package cmd

import (
	"context"

	"github.com/probehq/probe/internal/config"
	"github.com/probehq/probe/internal/engine"
	"github.com/probehq/probe/internal/perr"
	"github.com/probehq/probe/internal/rerank"
)

// userConfigPath resolves --config, falling back to
// config.DefaultUserConfigPath().
func userConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.DefaultUserConfigPath()
}

// resolveModelDescriptor picks the model id from --rerank-model, the
// user config's default_reranker, or rerank.DefaultModelID, then
// resolves it against the built-in registry or the user's
// custom_rerankers map.
func resolveModelDescriptor(id string, user config.UserConfig) (rerank.ModelDescriptor, error) {
	if id == "" {
		id = user.DefaultReranker
	}
	if id == "" {
		id = rerank.DefaultModelID
	}

	if custom, ok := user.CustomRerankers[id]; ok {
		return rerank.ModelDescriptor{
			ID:              id,
			Description:     custom.Description,
			ModelCode:       custom.ModelCode,
			ModelFile:       custom.ModelFile,
			AdditionalFiles: custom.AdditionalFiles,
		}, nil
	}
	if builtin, ok := rerank.BuiltinModels[id]; ok {
		return builtin, nil
	}
	return rerank.ModelDescriptor{}, perr.Newf(perr.ModelMissing, "unknown reranker model %q", id).
		WithSuggestion("run `probe list-models` to see available models")
}

// buildReranker resolves and dials the reranker named by --rerank-model
// (falling back to the user config's default_reranker, then the
// built-in cross-encoder-mini), unless --no-rerank was passed. A
// missing model or unreachable sidecar is reported rather than silently
// disabling reranking, since reranking is on by default.
func buildReranker(ctx context.Context) (engine.RerankerScorer, func() error, error) {
	if noRerankFlag {
		return nil, nil, nil
	}

	user, err := config.LoadUserConfig(userConfigPath())
	if err != nil {
		return nil, nil, err
	}

	desc, err := resolveModelDescriptor(rerankModelFlag, user)
	if err != nil {
		return nil, nil, err
	}

	resolved, err := rerank.ResolveModel(rerank.DefaultModelsDir(), desc)
	if err != nil {
		return nil, nil, err
	}

	ce, err := rerank.NewCrossEncoder(ctx, resolved.Descriptor.ID, rerank.CrossEncoderConfig{})
	if err != nil {
		return nil, nil, err
	}

	reranker := rerank.New(ce)
	return reranker, ce.Close, nil
}
