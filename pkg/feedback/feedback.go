// Package feedback folds human review decisions back into the durable
// state: the mapping document and the vocabulary snapshot.
package feedback

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/edc"
	"github.com/clinforge/fieldmap/pkg/embeddings"
	"github.com/clinforge/fieldmap/pkg/vocab"
)

// Incorporator applies reviewer corrections. Every effect is individually
// idempotent, so a retried submission converges on the same final state.
type Incorporator struct {
	embedder    embeddings.Embedder
	store       *vocab.Store
	mappingPath string
	logger      *zap.Logger
}

// NewIncorporator creates a feedback incorporator writing the mapping
// document at mappingPath.
func NewIncorporator(embedder embeddings.Embedder, store *vocab.Store, mappingPath string, logger *zap.Logger) *Incorporator {
	return &Incorporator{
		embedder:    embedder,
		store:       store,
		mappingPath: mappingPath,
		logger:      logger,
	}
}

// Submit records a human-supplied canonical label for the given source
// event. The mapping document gains the visit association unless already
// present; a label new to the vocabulary appends to it, re-embedding the
// entire vocabulary so the snapshot stays row-aligned.
//
// Re-embedding everything is O(vocabulary) per new label. That keeps the
// operation all-or-nothing and safely repeatable.
func (inc *Incorporator) Submit(ctx context.Context, eventOID, label string) error {
	design, err := edc.LoadViewMapping(inc.mappingPath)
	if err != nil {
		return fmt.Errorf("loading mapping document: %w", err)
	}

	if design.EnsureMapping(eventOID, label) {
		if err := design.WriteFile(inc.mappingPath); err != nil {
			return fmt.Errorf("persisting mapping document: %w", err)
		}
		inc.logger.Info("mapping document updated",
			zap.String("event", eventOID),
			zap.String("label", label),
		)
	}

	if inc.store.Contains(label) {
		return nil
	}

	names := append(inc.store.Names(), label)
	matrix, err := inc.embedder.EmbedBatch(ctx, names)
	if err != nil {
		return fmt.Errorf("re-embedding vocabulary: %w", err)
	}
	if err := inc.store.CommitSnapshot(ctx, names, matrix); err != nil {
		return fmt.Errorf("committing vocabulary snapshot: %w", err)
	}

	inc.logger.Info("vocabulary extended",
		zap.String("label", label),
		zap.Int("size", inc.store.Len()),
	)
	return nil
}
