package config

import "path/filepath"

// Config represents the persistent fieldmap configuration stored as
// config.toml. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Artifacts   ArtifactsConfig   `toml:"artifacts"`
	API         APIConfig         `toml:"api"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Reranker    RerankerConfig    `toml:"reranker"`
	Match       MatchConfig       `toml:"match"`
}

// ArtifactsConfig enumerates the storage locations of every persisted
// artifact. Relative paths are resolved against Dir so the whole artifact
// set can be relocated with a single setting.
type ArtifactsConfig struct {
	Dir        string `toml:"dir,omitempty"`
	Vocabulary string `toml:"vocabulary,omitempty"`
	Embeddings string `toml:"embeddings,omitempty"`
	Index      string `toml:"index,omitempty"`
	Reranker   string `toml:"reranker,omitempty"`
	Mapping    string `toml:"mapping,omitempty"`
}

func (a ArtifactsConfig) resolve(name string) string {
	if filepath.IsAbs(name) || a.Dir == "" {
		return name
	}
	return filepath.Join(a.Dir, name)
}

// VocabularyPath is the JSON list of canonical target identifiers.
func (a ArtifactsConfig) VocabularyPath() string { return a.resolve(a.Vocabulary) }

// EmbeddingsPath is the base path for the binary embedding matrix; each
// snapshot writes its matrix there suffixed with the snapshot revision.
func (a ArtifactsConfig) EmbeddingsPath() string { return a.resolve(a.Embeddings) }

// IndexPath is the sqlite-vec index database derived from the matrix.
func (a ArtifactsConfig) IndexPath() string { return a.resolve(a.Index) }

// RerankerPath is the trained reranker artifact.
func (a ArtifactsConfig) RerankerPath() string { return a.resolve(a.Reranker) }

// MappingPath is the ViewMapping document holding ground truth and corrections.
func (a ArtifactsConfig) MappingPath() string { return a.resolve(a.Mapping) }

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
}

// RerankerConfig holds reranker training hyperparameters.
type RerankerConfig struct {
	Estimators   int     `toml:"estimators,omitempty"`
	LearningRate float64 `toml:"learning_rate,omitempty"`
}

// MatchConfig holds candidate retrieval settings.
type MatchConfig struct {
	TopK int `toml:"top_k,omitempty"`
}
