package config

const (
	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0

	defaultArtifactsDir  = "fieldmap-data"
	defaultVocabularyRel = "targets.json"
	defaultEmbeddingsRel = "target_embs.bin"
	defaultIndexRel      = "targets.index.db"
	defaultRerankerRel   = "reranker.json"
	defaultMappingRel    = "ViewMapping.xml"

	defaultAPIListen = ":8082"

	defaultEmbeddingProvider = "ollama"
	defaultEmbeddingTarget   = "http://localhost:11434"
	defaultEmbeddingModel    = "nomic-embed-text"

	defaultVectorProvider = "sqlitevec"

	defaultEstimators   = 200
	defaultLearningRate = 0.1

	defaultTopK = 10
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Artifacts: ArtifactsConfig{
			Dir:        defaultArtifactsDir,
			Vocabulary: defaultVocabularyRel,
			Embeddings: defaultEmbeddingsRel,
			Index:      defaultIndexRel,
			Reranker:   defaultRerankerRel,
			Mapping:    defaultMappingRel,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
			Target:   defaultEmbeddingTarget,
			Model:    defaultEmbeddingModel,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Reranker: RerankerConfig{
			Estimators:   defaultEstimators,
			LearningRate: defaultLearningRate,
		},
		Match: MatchConfig{
			TopK: defaultTopK,
		},
	}
}
