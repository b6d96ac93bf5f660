// Package sqlitevec provides a SQLite-backed vocabulary index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/vector"
)

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
// vec0 KNN queries are brute-force over the whole table, which gives the
// exact flat-L2 search semantics the matching engine relies on: no
// approximation error, a correctness baseline rather than a scalability
// optimization.
type SQLiteVecDriver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewSQLiteVecDriver creates a new SQLite vocabulary index backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *zap.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// vec0 virtual tables use integer rowids; the entries table maps
	// vocabulary positions and names onto them. rowid = position + 1 keeps
	// KNN tie-breaking aligned with vocabulary insertion order.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vocab_entries (
			rowid INTEGER PRIMARY KEY,
			position INTEGER NOT NULL UNIQUE,
			name TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating entries table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vocab_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vocabulary index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &SQLiteVecDriver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Rebuild replaces the entire index content with the given entries.
func (d *SQLiteVecDriver) Rebuild(ctx context.Context, entries []vector.Entry) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vocab_entries`); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vocab_embeddings`); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}

	for _, entry := range entries {
		rowID := int64(entry.Position) + 1

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vocab_entries(rowid, position, name) VALUES (?, ?, ?)`,
			rowID, entry.Position, entry.Name,
		); err != nil {
			return fmt.Errorf("inserting entry %q: %w", entry.Name, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vocab_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(entry.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for %q: %w", entry.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("rebuilt sqlite-vec index",
		zap.Int("entries", len(entries)),
	)

	return nil
}

// Search returns the k nearest entries by squared Euclidean distance.
func (d *SQLiteVecDriver) Search(ctx context.Context, embedding []float32, k int) ([]vector.Neighbor, error) {
	if k <= 0 {
		k = 10
	}

	count, err := d.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, vector.ErrNotReady
	}

	// Use KNN query via vec0 MATCH, then JOIN back to get position and name.
	// vec0 reports Euclidean distance; the contract is squared L2, so the
	// distance is squared before returning. vec0 only accepts a single
	// `ORDER BY distance` on KNN queries and its tie ordering is
	// unspecified, so the position tie-break is applied in Go below.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			e.position,
			e.name,
			ve.distance
		FROM vocab_embeddings ve
		INNER JOIN vocab_entries e ON e.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, serializeFloat32(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Neighbor
	for rows.Next() {
		var position int
		var name string
		var distance float64
		if err := rows.Scan(&position, &name, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		results = append(results, vector.Neighbor{
			Position: position,
			Name:     name,
			Distance: float32(distance * distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	// Equidistant entries come back from vec0 in unspecified order; the
	// contract breaks ties by vocabulary position.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Position < results[j].Position
	})

	d.logger.Debug("queried sqlite-vec index",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Count reports the number of indexed entries.
func (d *SQLiteVecDriver) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vocab_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

// Ensure SQLiteVecDriver implements vector.Driver
var _ vector.Driver = (*SQLiteVecDriver)(nil)
