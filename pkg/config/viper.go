package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// from configDir (or the working directory when empty), and binds
// environment variables with the FIELDMAP_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the commands)
//  2. Environment variables (FIELDMAP_API_LISTEN, FIELDMAP_EMBEDDING_MODEL, ...)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery.
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: FIELDMAP_ARTIFACTS_DIR, FIELDMAP_API_LISTEN, etc.
	v.SetEnvPrefix("FIELDMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper state.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Artifacts: ArtifactsConfig{
			Dir:        v.GetString("artifacts.dir"),
			Vocabulary: v.GetString("artifacts.vocabulary"),
			Embeddings: v.GetString("artifacts.embeddings"),
			Index:      v.GetString("artifacts.index"),
			Reranker:   v.GetString("artifacts.reranker"),
			Mapping:    v.GetString("artifacts.mapping"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Embedding: EmbeddingConfig{
			Provider: v.GetString("embedding.provider"),
			Target:   v.GetString("embedding.target"),
			Model:    v.GetString("embedding.model"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
		},
		Reranker: RerankerConfig{
			Estimators:   v.GetInt("reranker.estimators"),
			LearningRate: v.GetFloat64("reranker.learning_rate"),
		},
		Match: MatchConfig{
			TopK: v.GetInt("match.top_k"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Artifacts
	v.SetDefault("artifacts.dir", d.Artifacts.Dir)
	v.SetDefault("artifacts.vocabulary", d.Artifacts.Vocabulary)
	v.SetDefault("artifacts.embeddings", d.Artifacts.Embeddings)
	v.SetDefault("artifacts.index", d.Artifacts.Index)
	v.SetDefault("artifacts.reranker", d.Artifacts.Reranker)
	v.SetDefault("artifacts.mapping", d.Artifacts.Mapping)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)

	// Reranker
	v.SetDefault("reranker.estimators", d.Reranker.Estimators)
	v.SetDefault("reranker.learning_rate", d.Reranker.LearningRate)

	// Match
	v.SetDefault("match.top_k", d.Match.TopK)
}
