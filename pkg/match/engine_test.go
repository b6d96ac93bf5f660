package match_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/edc"
	"github.com/clinforge/fieldmap/pkg/match"
	testutils "github.com/clinforge/fieldmap/pkg/utils/test"
	"github.com/clinforge/fieldmap/pkg/vector"
	"github.com/clinforge/fieldmap/pkg/vocab"
)

var _ = Describe("Engine", func() {
	var (
		ctx      context.Context
		store    *vocab.Store
		embedder *testutils.MockEmbedder
		engine   *match.Engine
	)

	openDriver := func(_ uint) (vector.Driver, error) {
		return testutils.NewMockVectorDriver(), nil
	}

	commitVocabulary := func(names ...string) {
		matrix, err := embedder.EmbedBatch(ctx, names)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.CommitSnapshot(ctx, names, matrix)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir := GinkgoT().TempDir()
		paths := vocab.Paths{
			Vocabulary: filepath.Join(tmpDir, "targets.json"),
			Embeddings: filepath.Join(tmpDir, "target_embs.bin"),
			Index:      filepath.Join(tmpDir, "targets.index.db"),
		}

		store = vocab.NewStore(paths, openDriver, zap.NewNop())
		DeferCleanup(store.Close)

		embedder = testutils.NewMockEmbedder()
		engine = match.NewEngine(store, embedder, nil, 5, zap.NewNop())
	})

	Describe("Predict", func() {
		It("fails with ErrNoVocabulary before any training", func() {
			_, err := engine.Predict(ctx, []edc.SourceEvent{{StudyEventOID: "VISIT1"}})
			Expect(err).To(MatchError(match.ErrNoVocabulary))
		})

		It("maps fields present verbatim in the vocabulary with score 1.0", func() {
			commitVocabulary("AGE", "DOB")

			results, err := engine.Predict(ctx, []edc.SourceEvent{
				{
					StudyEventOID: "VISIT1",
					Items: []edc.Item{
						{ItemOID: "AGE", Value: "42"},
					},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].NeedsReview).To(BeFalse())
			Expect(results[0].Matches).To(ConsistOf(match.FieldMatch{
				ItemOID: "AGE",
				Target:  "AGE",
				Score:   1.0,
				Cosine:  1.0,
			}))
		})

		It("flags events with zero exact matches for review", func() {
			commitVocabulary("AGE", "DOB")

			results, err := engine.Predict(ctx, []edc.SourceEvent{
				{
					StudyEventOID: "VISIT1",
					Items: []edc.Item{
						{ItemOID: "HEIGHT", Value: "172"},
					},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Matches).To(BeEmpty())
			// Review events still carry an empty array, never a nil
			// slice, so clients see "matches": [] on the wire.
			Expect(results[0].Matches).NotTo(BeNil())
			Expect(results[0].NeedsReview).To(BeTrue())
		})

		It("ignores items with empty identifiers", func() {
			commitVocabulary("AGE")

			results, err := engine.Predict(ctx, []edc.SourceEvent{
				{
					StudyEventOID: "VISIT1",
					Items: []edc.Item{
						{ItemOID: "", Value: "stray"},
						{ItemOID: "AGE", Value: "42"},
					},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Matches).To(HaveLen(1))
			Expect(results[0].Matches[0].ItemOID).To(Equal("AGE"))
		})

		It("matching is case-sensitive, exact-string only", func() {
			commitVocabulary("AGE")

			results, err := engine.Predict(ctx, []edc.SourceEvent{
				{
					StudyEventOID: "VISIT1",
					Items: []edc.Item{
						{ItemOID: "age", Value: "42"},
					},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].NeedsReview).To(BeTrue())
		})
	})

	Describe("Suggest", func() {
		It("fails with ErrNoVocabulary before any training", func() {
			_, err := engine.Suggest(ctx, edc.SourceEvent{StudyEventOID: "VISIT1"})
			Expect(err).To(MatchError(match.ErrNoVocabulary))
		})

		It("ranks the textual twin of the event first", func() {
			commitVocabulary("AGE", "DOB", "HEIGHT")

			suggestions, err := engine.Suggest(ctx, edc.SourceEvent{
				StudyEventOID: "VISIT1",
				Items: []edc.Item{
					{ItemOID: "HEIGHT", Value: "172"},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(suggestions).To(HaveLen(3))
			Expect(suggestions[0].Target).To(Equal("HEIGHT"))
			Expect(suggestions[0].Cosine).To(BeNumerically("~", 1.0, 1e-5))

			for i := 1; i < len(suggestions); i++ {
				Expect(suggestions[i].Score).To(BeNumerically("<=", suggestions[i-1].Score))
			}
		})
	})
})
