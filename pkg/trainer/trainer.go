// Package trainer turns a ground-truth mapping document plus source event
// samples into a labeled feature matrix. It owns the training-time half of
// the pipeline: vocabulary construction, snapshot commit, candidate
// retrieval, feature extraction, and label assignment.
package trainer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/edc"
	"github.com/clinforge/fieldmap/pkg/embeddings"
	"github.com/clinforge/fieldmap/pkg/features"
	"github.com/clinforge/fieldmap/pkg/vocab"
)

// Stats summarizes a produced training matrix.
type Stats struct {
	// Samples is the number of labeled candidate rows.
	Samples int

	// Positives is the number of rows labeled as true mappings.
	Positives int
}

// Builder assembles training data from source events and ground truth.
type Builder struct {
	embedder embeddings.Embedder
	store    *vocab.Store
	topK     int
	logger   *zap.Logger
}

// NewBuilder creates a training data builder. topK bounds the candidates
// retrieved per source event.
func NewBuilder(embedder embeddings.Embedder, store *vocab.Store, topK int, logger *zap.Logger) *Builder {
	return &Builder{
		embedder: embedder,
		store:    store,
		topK:     topK,
		logger:   logger,
	}
}

// CreateTrainingData builds the vocabulary from the mapping document,
// commits it as the active snapshot, and labels the top-k retrieval
// candidates of every source event against the event's ground-truth
// attribute set.
//
// A true target that never surfaces in an event's top-k candidates simply
// produces no training row. Recall is bounded by retrieval.
func (b *Builder) CreateTrainingData(ctx context.Context, events []edc.SourceEvent, design *edc.VisitDesign) ([][]float64, []int, Stats, error) {
	mappings := design.Mappings()
	if len(mappings) == 0 {
		return nil, nil, Stats{}, ErrNoGroundTruth
	}

	names := vocabularyNames(mappings)
	b.logger.Info("building vocabulary from ground truth",
		zap.Int("mappings", len(mappings)),
		zap.Int("vocabulary", len(names)),
	)

	matrix, err := b.embedder.EmbedBatch(ctx, names)
	if err != nil {
		return nil, nil, Stats{}, fmt.Errorf("embedding vocabulary: %w", err)
	}
	if err := b.store.CommitSnapshot(ctx, names, matrix); err != nil {
		return nil, nil, Stats{}, fmt.Errorf("committing vocabulary snapshot: %w", err)
	}

	truth := groundTruthSets(mappings)

	var (
		x     [][]float64
		y     []int
		stats Stats
	)
	for _, event := range events {
		query, err := b.embedder.Embed(ctx, event.QueryText())
		if err != nil {
			return nil, nil, Stats{}, fmt.Errorf("embedding event %s: %w", event.StudyEventOID, err)
		}

		neighbors, err := b.store.Search(ctx, query, b.topK)
		if err != nil {
			return nil, nil, Stats{}, fmt.Errorf("retrieving candidates for event %s: %w", event.StudyEventOID, err)
		}

		eventTruth := truth[event.StudyEventOID]
		for _, n := range neighbors {
			cosine := 1 - float64(n.Distance)/2
			x = append(x, features.Vector(event.Items, n.Name, cosine))

			label := 0
			if eventTruth[n.Name] {
				label = 1
			}
			y = append(y, label)

			stats.Samples++
			stats.Positives += label
		}
	}

	b.logger.Info("training data built",
		zap.Int("events", len(events)),
		zap.Int("samples", stats.Samples),
		zap.Int("positives", stats.Positives),
	)
	return x, y, stats, nil
}

// vocabularyNames collects the sorted set of distinct ground-truth
// attribute identifiers.
func vocabularyNames(mappings []edc.Mapping) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range mappings {
		if m.EDCAttributeID == "" || seen[m.EDCAttributeID] {
			continue
		}
		seen[m.EDCAttributeID] = true
		names = append(names, m.EDCAttributeID)
	}
	sort.Strings(names)
	return names
}

// groundTruthSets indexes the attribute associations by source visit
// identifier for label lookup.
func groundTruthSets(mappings []edc.Mapping) map[string]map[string]bool {
	truth := make(map[string]map[string]bool)
	for _, m := range mappings {
		set, ok := truth[m.EDCVisitID]
		if !ok {
			set = make(map[string]bool)
			truth[m.EDCVisitID] = set
		}
		set[m.EDCAttributeID] = true
	}
	return truth
}
