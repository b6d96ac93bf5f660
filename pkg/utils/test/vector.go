package testutils

import (
	"context"
	"sort"

	"github.com/clinforge/fieldmap/pkg/vector"
)

// MockVectorDriver is an in-memory vector driver with brute-force search.
// It honors the same contract as the sqlite-vec driver: squared Euclidean
// distance, ascending, ties broken by vocabulary position.
type MockVectorDriver struct {
	entries []vector.Entry
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		entries: make([]vector.Entry, 0),
	}
}

func (m *MockVectorDriver) Rebuild(_ context.Context, entries []vector.Entry) error {
	m.entries = append(m.entries[:0], entries...)
	return nil
}

func (m *MockVectorDriver) Search(_ context.Context, embedding []float32, k int) ([]vector.Neighbor, error) {
	if len(m.entries) == 0 {
		return nil, vector.ErrNotReady
	}

	neighbors := make([]vector.Neighbor, 0, len(m.entries))
	for _, e := range m.entries {
		var dist float32
		for i := range embedding {
			d := embedding[i] - e.Embedding[i]
			dist += d * d
		}
		neighbors = append(neighbors, vector.Neighbor{
			Position: e.Position,
			Name:     e.Name,
			Distance: dist,
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].Position < neighbors[j].Position
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	return len(m.entries), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
