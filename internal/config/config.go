// Package config loads probe's two on-disk configuration files: the
// per-project `probe.yml` (tokenizer stemming) and the per-user
// `~/.probe/config.yaml` (custom reranker registry). Both are optional;
// a missing file falls back to defaults rather than erroring.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/probehq/probe/internal/perr"
)

// StemmingConfig is probe.yml's only block.
type StemmingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Language string `yaml:"language"`
}

// ProjectConfig is the parsed shape of `<root>/probe.yml`.
type ProjectConfig struct {
	Stemming StemmingConfig `yaml:"stemming"`
}

// DefaultProjectConfig is the default stemming policy: enabled, English.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{Stemming: StemmingConfig{Enabled: true, Language: "en"}}
}

// LoadProjectConfig reads `<root>/probe.yml`. A missing file is not an
// error — it returns DefaultProjectConfig(), since project configuration
// is optional.
func LoadProjectConfig(root string) (ProjectConfig, error) {
	cfg := DefaultProjectConfig()
	path := filepath.Join(root, "probe.yml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, perr.Wrap(perr.IoError, err, "read "+path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, perr.Wrap(perr.IoError, err, "parse "+path)
	}
	if cfg.Stemming.Language == "" {
		cfg.Stemming.Language = "en"
	}
	return cfg, nil
}

// CustomReranker is one entry under user_config's custom_rerankers map.
type CustomReranker struct {
	Description     string   `yaml:"description"`
	ModelCode       string   `yaml:"model_code"`
	ModelFile       string   `yaml:"model_file"`
	AdditionalFiles []string `yaml:"additional_files"`
}

// UserConfig is the parsed shape of `~/.probe/config.yaml`.
type UserConfig struct {
	DefaultReranker string                    `yaml:"default_reranker"`
	CustomRerankers map[string]CustomReranker `yaml:"custom_rerankers"`
}

// DefaultUserConfigPath returns `~/.probe/config.yaml`, falling back to a
// relative path if the home directory can't be resolved.
func DefaultUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".probe", "config.yaml")
	}
	return filepath.Join(home, ".probe", "config.yaml")
}

// LoadUserConfig reads path (or DefaultUserConfigPath() if path is
// empty). A missing file is not an error — it returns an empty
// UserConfig, since user configuration is optional.
func LoadUserConfig(path string) (UserConfig, error) {
	var cfg UserConfig
	if path == "" {
		path = DefaultUserConfigPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, perr.Wrap(perr.IoError, err, "read "+path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, perr.Wrap(perr.IoError, err, "parse "+path)
	}
	return cfg, nil
}
