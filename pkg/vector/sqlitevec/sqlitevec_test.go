package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/vector"
	"github.com/clinforge/fieldmap/pkg/vector/sqlitevec"
)

var _ = Describe("SQLiteVecDriver", func() {
	var (
		logger *zap.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = zap.NewNop()
		ctx = context.Background()
	})

	newDriver := func(dims uint) *sqlitevec.SQLiteVecDriver {
		driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Dimensions: dims,
		}, logger)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)
		return driver
	}

	Describe("NewSQLiteVecDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("should implement vector.Driver", func() {
			var _ vector.Driver = (*sqlitevec.SQLiteVecDriver)(nil)
		})
	})

	Describe("Search", func() {
		It("returns ErrNotReady before any rebuild", func() {
			driver := newDriver(2)
			_, err := driver.Search(ctx, []float32{1, 0}, 3)
			Expect(err).To(MatchError(vector.ErrNotReady))
		})

		It("returns the truly closest rows by squared L2 distance, ascending", func() {
			driver := newDriver(2)
			Expect(driver.Rebuild(ctx, []vector.Entry{
				{Position: 0, Name: "AGE", Embedding: []float32{1, 0}},
				{Position: 1, Name: "DOB", Embedding: []float32{0, 1}},
				{Position: 2, Name: "HEIGHT", Embedding: []float32{-1, 0}},
			})).To(Succeed())

			neighbors, err := driver.Search(ctx, []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(neighbors).To(HaveLen(3))

			// Exact squared L2 on unit vectors: 0, 2, 4.
			Expect(neighbors[0].Name).To(Equal("AGE"))
			Expect(neighbors[0].Distance).To(BeNumerically("~", 0.0, 1e-5))
			Expect(neighbors[1].Name).To(Equal("DOB"))
			Expect(neighbors[1].Distance).To(BeNumerically("~", 2.0, 1e-5))
			Expect(neighbors[2].Name).To(Equal("HEIGHT"))
			Expect(neighbors[2].Distance).To(BeNumerically("~", 4.0, 1e-5))
		})

		It("breaks distance ties by vocabulary insertion order", func() {
			driver := newDriver(2)
			Expect(driver.Rebuild(ctx, []vector.Entry{
				{Position: 0, Name: "FIRST", Embedding: []float32{0, 1}},
				{Position: 1, Name: "SECOND", Embedding: []float32{0, 1}},
				{Position: 2, Name: "THIRD", Embedding: []float32{0, 1}},
			})).To(Succeed())

			neighbors, err := driver.Search(ctx, []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(neighbors).To(HaveLen(3))
			Expect(neighbors[0].Name).To(Equal("FIRST"))
			Expect(neighbors[1].Name).To(Equal("SECOND"))
			Expect(neighbors[2].Name).To(Equal("THIRD"))
			Expect(neighbors[1].Distance).To(Equal(neighbors[0].Distance))
			Expect(neighbors[2].Distance).To(Equal(neighbors[0].Distance))
		})

		It("keeps ties ordered by position without disturbing closer rows", func() {
			driver := newDriver(2)
			Expect(driver.Rebuild(ctx, []vector.Entry{
				{Position: 0, Name: "FAR_A", Embedding: []float32{0, 1}},
				{Position: 1, Name: "NEAR", Embedding: []float32{1, 0}},
				{Position: 2, Name: "FAR_B", Embedding: []float32{0, 1}},
			})).To(Succeed())

			neighbors, err := driver.Search(ctx, []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(neighbors[0].Name).To(Equal("NEAR"))
			Expect(neighbors[1].Name).To(Equal("FAR_A"))
			Expect(neighbors[2].Name).To(Equal("FAR_B"))
		})

		It("returns all entries when k exceeds the vocabulary size", func() {
			driver := newDriver(2)
			Expect(driver.Rebuild(ctx, []vector.Entry{
				{Position: 0, Name: "ONLY", Embedding: []float32{1, 0}},
			})).To(Succeed())

			neighbors, err := driver.Search(ctx, []float32{0, 1}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(neighbors).To(HaveLen(1))
		})
	})

	Describe("Rebuild", func() {
		It("replaces prior content entirely", func() {
			driver := newDriver(2)
			Expect(driver.Rebuild(ctx, []vector.Entry{
				{Position: 0, Name: "OLD", Embedding: []float32{1, 0}},
			})).To(Succeed())
			Expect(driver.Rebuild(ctx, []vector.Entry{
				{Position: 0, Name: "NEW_A", Embedding: []float32{1, 0}},
				{Position: 1, Name: "NEW_B", Embedding: []float32{0, 1}},
			})).To(Succeed())

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))

			neighbors, err := driver.Search(ctx, []float32{1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(neighbors[0].Name).To(Equal("NEW_A"))
		})
	})
})
