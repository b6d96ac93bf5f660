// Package match is the prediction engine. Confident mappings come from
// exact vocabulary lookup only; fields without an exact match route to
// human review, optionally accompanied by ranked advisory suggestions.
package match

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/edc"
	"github.com/clinforge/fieldmap/pkg/embeddings"
	"github.com/clinforge/fieldmap/pkg/features"
	"github.com/clinforge/fieldmap/pkg/reranker"
	"github.com/clinforge/fieldmap/pkg/vocab"
)

// FieldMatch is one confidently mapped field.
type FieldMatch struct {
	// ItemOID is the source field identifier.
	ItemOID string `json:"itemOid"`

	// Target is the matched vocabulary entry. Exact matches map a field
	// onto its own identifier.
	Target string `json:"target"`

	// Score is the final confidence. Exact matches are pinned at 1.0.
	Score float64 `json:"score"`

	// Cosine is the raw similarity. Exact matches are pinned at 1.0.
	Cosine float64 `json:"cosine"`
}

// EventResult is the terminal mapping state of one source event.
type EventResult struct {
	// StudyEventOID identifies the event.
	StudyEventOID string `json:"studyEventOid"`

	// Matches lists the event's confident field mappings.
	Matches []FieldMatch `json:"matches"`

	// NeedsReview marks an event with zero confident matches as a unit
	// requiring human review.
	NeedsReview bool `json:"needsReview"`
}

// Suggestion is one ranked advisory candidate for an unmapped event. It
// never counts as a confident match.
type Suggestion struct {
	// Target is the suggested vocabulary entry.
	Target string `json:"target"`

	// Cosine is the retrieval similarity to the event text.
	Cosine float64 `json:"cosine"`

	// Score is the reranker probability when a trained model is loaded,
	// otherwise the cosine similarity.
	Score float64 `json:"score"`
}

// Engine maps source events onto the trained vocabulary.
type Engine struct {
	store    *vocab.Store
	embedder embeddings.Embedder
	reranker *reranker.Reranker
	topK     int
	logger   *zap.Logger
}

// NewEngine creates a prediction engine over the given snapshot store.
// The reranker may be nil; suggestions then rank by cosine alone.
func NewEngine(store *vocab.Store, embedder embeddings.Embedder, rr *reranker.Reranker, topK int, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		reranker: rr,
		topK:     topK,
		logger:   logger,
	}
}

// Predict classifies every field of every event. A field is confidently
// mapped iff its identifier is literally present in the vocabulary; an
// event with zero confident fields is flagged for review.
func (e *Engine) Predict(ctx context.Context, events []edc.SourceEvent) ([]EventResult, error) {
	if e.store.Len() == 0 {
		return nil, ErrNoVocabulary
	}

	results := make([]EventResult, 0, len(events))
	for _, event := range events {
		// Matches starts as an empty slice so review events serialize
		// with an empty array rather than null.
		result := EventResult{
			StudyEventOID: event.StudyEventOID,
			Matches:       []FieldMatch{},
		}
		for _, item := range event.Items {
			if item.ItemOID == "" {
				continue
			}
			if !e.store.Contains(item.ItemOID) {
				continue
			}
			result.Matches = append(result.Matches, FieldMatch{
				ItemOID: item.ItemOID,
				Target:  item.ItemOID,
				Score:   1.0,
				Cosine:  1.0,
			})
		}
		result.NeedsReview = len(result.Matches) == 0
		results = append(results, result)

		e.logger.Debug("event classified",
			zap.String("event", event.StudyEventOID),
			zap.Int("matches", len(result.Matches)),
			zap.Bool("needsReview", result.NeedsReview),
		)
	}
	return results, nil
}

// Suggest retrieves and rescores the top-k vocabulary candidates for one
// event, descending by score. Suggestions are advisory context for the
// reviewer; they never enter the confident-match set.
func (e *Engine) Suggest(ctx context.Context, event edc.SourceEvent) ([]Suggestion, error) {
	if e.store.Len() == 0 {
		return nil, ErrNoVocabulary
	}

	query, err := e.embedder.Embed(ctx, event.QueryText())
	if err != nil {
		return nil, fmt.Errorf("embedding event %s: %w", event.StudyEventOID, err)
	}

	neighbors, err := e.store.Search(ctx, query, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates for event %s: %w", event.StudyEventOID, err)
	}

	suggestions := make([]Suggestion, 0, len(neighbors))
	vectors := make([][]float64, 0, len(neighbors))
	for _, n := range neighbors {
		cosine := 1 - float64(n.Distance)/2
		suggestions = append(suggestions, Suggestion{
			Target: n.Name,
			Cosine: cosine,
			Score:  cosine,
		})
		vectors = append(vectors, features.Vector(event.Items, n.Name, cosine))
	}

	if e.reranker != nil && e.reranker.Loaded() {
		probs, err := e.reranker.PredictProba(vectors)
		if err != nil {
			return nil, fmt.Errorf("rescoring candidates for event %s: %w", event.StudyEventOID, err)
		}
		for i := range suggestions {
			suggestions[i].Score = probs[i]
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	return suggestions, nil
}
