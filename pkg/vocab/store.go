// Package vocab persists the canonical target vocabulary as a single
// logical snapshot: the ordered name list, its embedding matrix, and the
// nearest-neighbor index derived from the matrix. LoadSnapshot and
// CommitSnapshot are the only mutation surface. Each commit writes its
// matrix to a revision-keyed path and then atomically renames the
// vocabulary file into place as the single commit point, so a crash
// mid-commit always leaves the previous snapshot intact and loadable.
package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/vector"
)

// Paths names the on-disk artifacts of one vocabulary snapshot.
// Embeddings is a base path; each commit writes its matrix beside it,
// suffixed with the snapshot revision.
type Paths struct {
	Vocabulary string
	Embeddings string
	Index      string
}

// OpenDriverFunc opens the index driver for a given embedding
// dimensionality. The dimensionality is only known once a matrix exists,
// so the driver is opened lazily on load/commit.
type OpenDriverFunc func(dims uint) (vector.Driver, error)

// snapshotFile is the JSON layout of the vocabulary artifact.
type snapshotFile struct {
	Revision string   `json:"revision"`
	Version  int      `json:"version"`
	Names    []string `json:"names"`
}

// Store owns the persisted vocabulary snapshot and its derived index.
// It is a single-writer structure; concurrent writers must be serialized
// by the caller.
type Store struct {
	paths      Paths
	openDriver OpenDriverFunc
	logger     *zap.Logger

	revision string
	version  int
	names    []string
	matrix   [][]float32
	nameSet  map[string]struct{}
	driver   vector.Driver
}

// NewStore creates a store over the given artifact paths. No files are
// touched until LoadSnapshot or CommitSnapshot.
func NewStore(paths Paths, openDriver OpenDriverFunc, logger *zap.Logger) *Store {
	return &Store{
		paths:      paths,
		openDriver: openDriver,
		logger:     logger,
		nameSet:    make(map[string]struct{}),
	}
}

// LoadSnapshot reads the persisted snapshot and rebuilds the index from
// the embedding matrix. A completely absent snapshot is the bootstrap case
// and loads as empty; a partially present or undecodable one is corruption
// and surfaces as ErrCorrupt.
func (s *Store) LoadSnapshot(ctx context.Context) error {
	data, err := os.ReadFile(s.paths.Vocabulary)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no persisted vocabulary, starting empty")
			return nil
		}
		return fmt.Errorf("reading vocabulary: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: decoding vocabulary: %v", ErrCorrupt, err)
	}

	matrix := [][]float32{}
	if len(file.Names) > 0 {
		var rev string
		rev, matrix, err = readMatrix(s.matrixPath(file.Revision))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: vocabulary present but embedding matrix missing", ErrCorrupt)
			}
			return err
		}
		if rev != file.Revision {
			return fmt.Errorf("%w: matrix belongs to revision %q, vocabulary is %q", ErrCorrupt, rev, file.Revision)
		}
		if len(matrix) != len(file.Names) {
			return fmt.Errorf("%w: %d vocabulary entries, %d matrix rows", ErrCorrupt, len(file.Names), len(matrix))
		}
	}

	s.revision = file.Revision
	s.version = file.Version
	s.names = file.Names
	s.matrix = matrix
	s.rebuildNameSet()

	if err := s.rebuildIndex(ctx); err != nil {
		return err
	}

	s.logger.Info("loaded vocabulary snapshot",
		zap.String("revision", s.revision),
		zap.Int("version", s.version),
		zap.Int("entries", len(s.names)),
	)
	return nil
}

// CommitSnapshot replaces the persisted snapshot with the given vocabulary
// and embedding matrix, then rebuilds the index. The matrix is written
// first under the new revision's path, and renaming the vocabulary file
// into place is the commit point: a crash before that rename leaves only
// an orphaned matrix, which loads ignore. Superseded matrix generations
// are removed after the commit lands.
func (s *Store) CommitSnapshot(ctx context.Context, names []string, matrix [][]float32) error {
	if len(names) != len(matrix) {
		return fmt.Errorf("%w: %d names, %d matrix rows", ErrMisaligned, len(names), len(matrix))
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicate, n)
		}
		seen[n] = struct{}{}
	}

	for _, p := range []string{s.paths.Vocabulary, s.paths.Embeddings, s.paths.Index} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating artifact dir: %w", err)
			}
		}
	}

	file := snapshotFile{
		Revision: uuid.NewString(),
		Version:  s.version + 1,
		Names:    names,
	}
	if err := writeMatrix(s.matrixPath(file.Revision), file.Revision, matrix); err != nil {
		return err
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding vocabulary: %w", err)
	}
	tmp := s.paths.Vocabulary + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp vocabulary: %w", err)
	}
	if err := os.Rename(tmp, s.paths.Vocabulary); err != nil {
		return fmt.Errorf("renaming vocabulary: %w", err)
	}
	s.pruneMatrices(file.Revision)

	s.revision = file.Revision
	s.version = file.Version
	s.names = append([]string(nil), names...)
	s.matrix = matrix
	s.rebuildNameSet()

	if err := s.rebuildIndex(ctx); err != nil {
		return err
	}

	s.logger.Info("committed vocabulary snapshot",
		zap.String("revision", s.revision),
		zap.Int("version", s.version),
		zap.Int("entries", len(names)),
	)
	return nil
}

func (s *Store) matrixPath(revision string) string {
	return s.paths.Embeddings + "." + revision
}

// pruneMatrices removes matrix files from earlier generations, along with
// any leftover temp files. Best effort; a stale file is harmless since
// loads only ever read the matrix the vocabulary file names.
func (s *Store) pruneMatrices(keep string) {
	stale, err := filepath.Glob(s.paths.Embeddings + ".*")
	if err != nil {
		return
	}
	for _, p := range stale {
		if p == s.matrixPath(keep) {
			continue
		}
		if err := os.Remove(p); err != nil {
			s.logger.Warn("removing superseded matrix", zap.String("path", p), zap.Error(err))
		}
	}
}

func (s *Store) rebuildNameSet() {
	s.nameSet = make(map[string]struct{}, len(s.names))
	for _, n := range s.names {
		s.nameSet[n] = struct{}{}
	}
}

func (s *Store) rebuildIndex(ctx context.Context) error {
	if len(s.matrix) == 0 {
		return nil
	}

	if s.driver != nil {
		s.driver.Close()
		s.driver = nil
	}

	driver, err := s.openDriver(uint(len(s.matrix[0])))
	if err != nil {
		return fmt.Errorf("opening index driver: %w", err)
	}

	entries := make([]vector.Entry, len(s.names))
	for i, name := range s.names {
		entries[i] = vector.Entry{Position: i, Name: name, Embedding: s.matrix[i]}
	}
	if err := driver.Rebuild(ctx, entries); err != nil {
		driver.Close()
		return fmt.Errorf("rebuilding index: %w", err)
	}

	s.driver = driver
	return nil
}

// Search returns the k nearest vocabulary entries to the query embedding.
// It fails with vector.ErrNotReady before any snapshot has been built or
// loaded.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]vector.Neighbor, error) {
	if s.driver == nil || len(s.names) == 0 {
		return nil, vector.ErrNotReady
	}
	return s.driver.Search(ctx, embedding, k)
}

// Names returns a copy of the vocabulary in insertion order.
func (s *Store) Names() []string {
	return append([]string(nil), s.names...)
}

// Matrix returns the embedding matrix, row-aligned with Names.
func (s *Store) Matrix() [][]float32 {
	return s.matrix
}

// Contains reports whether name is literally present in the vocabulary.
func (s *Store) Contains(name string) bool {
	_, ok := s.nameSet[name]
	return ok
}

// Len reports the vocabulary size.
func (s *Store) Len() int {
	return len(s.names)
}

// Version reports the snapshot's monotonic version counter.
func (s *Store) Version() int {
	return s.version
}

// Revision reports the snapshot's commit identifier.
func (s *Store) Revision() string {
	return s.revision
}

// Close releases the index driver.
func (s *Store) Close() error {
	if s.driver != nil {
		err := s.driver.Close()
		s.driver = nil
		return err
	}
	return nil
}
