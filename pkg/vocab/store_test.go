package vocab_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/vector"
	"github.com/clinforge/fieldmap/pkg/vector/sqlitevec"
	"github.com/clinforge/fieldmap/pkg/vocab"
)

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		tmpDir string
		paths  vocab.Paths
	)

	openDriver := func(dims uint) (vector.Driver, error) {
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     paths.Index,
			Dimensions: dims,
		}, zap.NewNop())
	}

	newStore := func() *vocab.Store {
		s := vocab.NewStore(paths, openDriver, zap.NewNop())
		DeferCleanup(s.Close)
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		paths = vocab.Paths{
			Vocabulary: filepath.Join(tmpDir, "targets.json"),
			Embeddings: filepath.Join(tmpDir, "target_embs.bin"),
			Index:      filepath.Join(tmpDir, "targets.index.db"),
		}
	})

	Describe("LoadSnapshot", func() {
		It("loads empty when no artifacts exist", func() {
			s := newStore()
			Expect(s.LoadSnapshot(ctx)).To(Succeed())
			Expect(s.Len()).To(Equal(0))
			Expect(s.Version()).To(Equal(0))
		})

		It("round-trips a committed snapshot", func() {
			first := newStore()
			Expect(first.CommitSnapshot(ctx,
				[]string{"AGE", "DOB"},
				[][]float32{{1, 0}, {0, 1}},
			)).To(Succeed())
			Expect(first.Close()).To(Succeed())

			second := newStore()
			Expect(second.LoadSnapshot(ctx)).To(Succeed())
			Expect(second.Names()).To(Equal([]string{"AGE", "DOB"}))
			Expect(second.Matrix()).To(HaveLen(2))
			Expect(second.Version()).To(Equal(1))
			Expect(second.Revision()).NotTo(BeEmpty())
			Expect(second.Contains("AGE")).To(BeTrue())
			Expect(second.Contains("WEIGHT")).To(BeFalse())
		})

		It("surfaces a vocabulary without its matrix as corruption", func() {
			s := newStore()
			Expect(s.CommitSnapshot(ctx, []string{"AGE"}, [][]float32{{1, 0}})).To(Succeed())
			rev := s.Revision()
			Expect(s.Close()).To(Succeed())
			Expect(os.Remove(paths.Embeddings + "." + rev)).To(Succeed())

			fresh := newStore()
			Expect(fresh.LoadSnapshot(ctx)).To(MatchError(vocab.ErrCorrupt))
		})

		It("surfaces a row-count mismatch as corruption", func() {
			s := newStore()
			Expect(s.CommitSnapshot(ctx, []string{"AGE", "DOB"}, [][]float32{{1, 0}, {0, 1}})).To(Succeed())
			rev := s.Revision()
			Expect(s.Close()).To(Succeed())

			// Truncate the vocabulary to one entry behind the matrix's back.
			Expect(os.WriteFile(paths.Vocabulary,
				[]byte(`{"revision":"`+rev+`","version":2,"names":["AGE"]}`), 0o644)).To(Succeed())

			fresh := newStore()
			Expect(fresh.LoadSnapshot(ctx)).To(MatchError(vocab.ErrCorrupt))
		})

		It("ignores an orphaned matrix from an interrupted commit", func() {
			s := newStore()
			Expect(s.CommitSnapshot(ctx, []string{"AGE", "DOB"}, [][]float32{{1, 0}, {0, 1}})).To(Succeed())
			Expect(s.Close()).To(Succeed())

			// A crash between the matrix write and the vocabulary rename
			// leaves a matrix for a revision the vocabulary never names.
			Expect(os.WriteFile(paths.Embeddings+".deadbeef-0000-0000-0000-000000000000",
				[]byte("not a committed generation"), 0o644)).To(Succeed())

			fresh := newStore()
			Expect(fresh.LoadSnapshot(ctx)).To(Succeed())
			Expect(fresh.Names()).To(Equal([]string{"AGE", "DOB"}))
			Expect(fresh.Version()).To(Equal(1))
		})
	})

	Describe("CommitSnapshot", func() {
		It("rejects duplicate names", func() {
			s := newStore()
			err := s.CommitSnapshot(ctx, []string{"AGE", "AGE"}, [][]float32{{1, 0}, {1, 0}})
			Expect(err).To(MatchError(vocab.ErrDuplicate))
		})

		It("rejects a misaligned matrix", func() {
			s := newStore()
			err := s.CommitSnapshot(ctx, []string{"AGE", "DOB"}, [][]float32{{1, 0}})
			Expect(err).To(MatchError(vocab.ErrMisaligned))
		})

		It("bumps the version and changes the revision on every commit", func() {
			s := newStore()
			Expect(s.CommitSnapshot(ctx, []string{"AGE"}, [][]float32{{1, 0}})).To(Succeed())
			firstRev := s.Revision()

			Expect(s.CommitSnapshot(ctx, []string{"AGE", "DOB"}, [][]float32{{1, 0}, {0, 1}})).To(Succeed())
			Expect(s.Version()).To(Equal(2))
			Expect(s.Revision()).NotTo(Equal(firstRev))
		})

		It("removes the superseded matrix generation", func() {
			s := newStore()
			Expect(s.CommitSnapshot(ctx, []string{"AGE"}, [][]float32{{1, 0}})).To(Succeed())
			firstRev := s.Revision()

			Expect(s.CommitSnapshot(ctx, []string{"AGE", "DOB"}, [][]float32{{1, 0}, {0, 1}})).To(Succeed())

			_, err := os.Stat(paths.Embeddings + "." + firstRev)
			Expect(err).To(MatchError(os.ErrNotExist))
			_, err = os.Stat(paths.Embeddings + "." + s.Revision())
			Expect(err).NotTo(HaveOccurred())
		})

		It("leaves no temp files behind", func() {
			s := newStore()
			Expect(s.CommitSnapshot(ctx, []string{"AGE"}, [][]float32{{1, 0}})).To(Succeed())

			entries, err := os.ReadDir(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			for _, e := range entries {
				Expect(e.Name()).NotTo(HaveSuffix(".tmp"))
			}
		})
	})

	Describe("Search", func() {
		It("fails with ErrNotReady before build or load", func() {
			s := newStore()
			_, err := s.Search(ctx, []float32{1, 0}, 5)
			Expect(err).To(MatchError(vector.ErrNotReady))
		})

		It("searches the committed snapshot", func() {
			s := newStore()
			Expect(s.CommitSnapshot(ctx,
				[]string{"AGE", "DOB"},
				[][]float32{{1, 0}, {0, 1}},
			)).To(Succeed())

			neighbors, err := s.Search(ctx, []float32{0.9, 0.1}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(neighbors).To(HaveLen(1))
			Expect(neighbors[0].Name).To(Equal("AGE"))
		})
	})
})
