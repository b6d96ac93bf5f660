// Package engine wires the pipeline components into the three operations
// the system exposes: train, predict, and feedback.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/config"
	"github.com/clinforge/fieldmap/pkg/edc"
	"github.com/clinforge/fieldmap/pkg/embeddings"
	embeddingutils "github.com/clinforge/fieldmap/pkg/embeddings/utils"
	"github.com/clinforge/fieldmap/pkg/feedback"
	"github.com/clinforge/fieldmap/pkg/match"
	"github.com/clinforge/fieldmap/pkg/reranker"
	"github.com/clinforge/fieldmap/pkg/trainer"
	"github.com/clinforge/fieldmap/pkg/vector"
	vectorutils "github.com/clinforge/fieldmap/pkg/vector/utils"
	"github.com/clinforge/fieldmap/pkg/vocab"
)

// Options carries the dependencies of a Service. Logger defaults to noop
// when nil; the rest are required.
type Options struct {
	Embedder       embeddings.Embedder
	Store          *vocab.Store
	Reranker       *reranker.Reranker
	RerankerParams reranker.Params
	TopK           int
	MappingPath    string
	Logger         *zap.Logger
}

// Service is the mapping engine facade. It owns no goroutines; every
// operation blocks until complete, and writers must be serialized by the
// caller.
type Service struct {
	embedder     embeddings.Embedder
	store        *vocab.Store
	reranker     *reranker.Reranker
	params       reranker.Params
	builder      *trainer.Builder
	matcher      *match.Engine
	incorporator *feedback.Incorporator
	mappingPath  string
	logger       *zap.Logger
}

// NewService composes a Service from explicit dependencies.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		embedder:     opts.Embedder,
		store:        opts.Store,
		reranker:     opts.Reranker,
		params:       opts.RerankerParams,
		builder:      trainer.NewBuilder(opts.Embedder, opts.Store, opts.TopK, logger),
		matcher:      match.NewEngine(opts.Store, opts.Embedder, opts.Reranker, opts.TopK, logger),
		incorporator: feedback.NewIncorporator(opts.Embedder, opts.Store, opts.MappingPath, logger),
		mappingPath:  opts.MappingPath,
		logger:       logger,
	}
}

// FromConfig builds a Service with the configured providers and artifact
// locations. Call Open before using it.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	openDriver := func(dims uint) (vector.Driver, error) {
		return vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
			ProviderType: cfg.VectorStore.Provider,
			IndexPath:    cfg.Artifacts.IndexPath(),
			Dimensions:   dims,
			Logger:       logger,
		})
	}

	store := vocab.NewStore(vocab.Paths{
		Vocabulary: cfg.Artifacts.VocabularyPath(),
		Embeddings: cfg.Artifacts.EmbeddingsPath(),
		Index:      cfg.Artifacts.IndexPath(),
	}, openDriver, logger)

	return NewService(Options{
		Embedder: embedder,
		Store:    store,
		Reranker: reranker.New(cfg.Artifacts.RerankerPath(), logger),
		RerankerParams: reranker.Params{
			Estimators:   cfg.Reranker.Estimators,
			LearningRate: cfg.Reranker.LearningRate,
		},
		TopK:        cfg.Match.TopK,
		MappingPath: cfg.Artifacts.MappingPath(),
		Logger:      logger,
	}), nil
}

// Open loads the persisted snapshot and, best-effort, the reranker
// artifact. A first run with no prior state opens empty.
func (s *Service) Open(ctx context.Context) error {
	if err := s.store.LoadSnapshot(ctx); err != nil {
		return fmt.Errorf("loading vocabulary snapshot: %w", err)
	}
	if s.reranker != nil && !s.reranker.Loaded() {
		s.reranker.Load()
	}
	return nil
}

// Close releases the embedder and the snapshot store.
func (s *Service) Close() error {
	var errs []error
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

// Train ingests a StudyData export plus a ViewMapping document, commits
// the vocabulary snapshot, fits the reranker, and persists the mapping
// document as the engine's durable ground truth.
func (s *Service) Train(ctx context.Context, sourceDoc, mappingDoc []byte) (trainer.Stats, error) {
	events, err := edc.ParseSource(sourceDoc)
	if err != nil {
		return trainer.Stats{}, err
	}
	design, err := edc.ParseViewMapping(mappingDoc)
	if err != nil {
		return trainer.Stats{}, err
	}

	x, y, stats, err := s.builder.CreateTrainingData(ctx, events, design)
	if err != nil {
		return trainer.Stats{}, err
	}

	if stats.Samples > 0 {
		if err := s.reranker.Train(x, y, s.params); err != nil {
			return trainer.Stats{}, fmt.Errorf("training reranker: %w", err)
		}
	} else {
		s.logger.Warn("no training samples produced, reranker left untouched")
	}

	if err := design.WriteFile(s.mappingPath); err != nil {
		return trainer.Stats{}, fmt.Errorf("persisting mapping document: %w", err)
	}
	return stats, nil
}

// Predict classifies every event of a StudyData export against the
// trained vocabulary.
func (s *Service) Predict(ctx context.Context, sourceDoc []byte) ([]match.EventResult, error) {
	events, err := edc.ParseSource(sourceDoc)
	if err != nil {
		return nil, err
	}
	return s.matcher.Predict(ctx, events)
}

// Suggest returns ranked advisory candidates for every event of the
// export that has no confident mapping, keyed by event identifier.
func (s *Service) Suggest(ctx context.Context, sourceDoc []byte) (map[string][]match.Suggestion, error) {
	events, err := edc.ParseSource(sourceDoc)
	if err != nil {
		return nil, err
	}
	results, err := s.matcher.Predict(ctx, events)
	if err != nil {
		return nil, err
	}

	suggestions := make(map[string][]match.Suggestion)
	for i, result := range results {
		if !result.NeedsReview {
			continue
		}
		ranked, err := s.matcher.Suggest(ctx, events[i])
		if err != nil {
			return nil, err
		}
		suggestions[result.StudyEventOID] = ranked
	}
	return suggestions, nil
}

// SubmitFeedback records a reviewer's canonical label for a source event.
func (s *Service) SubmitFeedback(ctx context.Context, eventOID, label string) error {
	return s.incorporator.Submit(ctx, eventOID, label)
}
