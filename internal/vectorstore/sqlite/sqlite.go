// Package sqlite provides the durable vector store backend. Entries
// live in a single database file; a full read snapshot is loaded at
// open and swapped wholesale on rebuild, so the query path never
// touches SQL and reads run concurrently.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"dirqa/internal/domain"
	"dirqa/internal/vectorstore"
)

// Store is a vector store persisted to a SQLite file.
type Store struct {
	db *sqlx.DB

	mu  sync.RWMutex
	idx *vectorstore.Index
}

// Open connects to the database file at path, creates the schema if
// needed and loads the current index snapshot. A file that has never
// completed a build opens fine; searches against it fail until the
// first rebuild.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init index schema: %w", err)
	}
	if err := s.loadSnapshot(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load index snapshot: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS index_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			dimension INTEGER NOT NULL,
			embedding_model TEXT NOT NULL,
			built_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			position INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS chunks (
			chunk_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			text TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			vector BLOB NOT NULL,
			position INTEGER NOT NULL,
			FOREIGN KEY(document_id) REFERENCES documents(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// loadSnapshot rebuilds the in-memory index from the database. Without
// a meta row no build has ever completed and the snapshot stays nil.
func (s *Store) loadSnapshot() error {
	var snap domain.Snapshot
	row := s.db.QueryRow(`SELECT dimension, embedding_model, built_at FROM index_meta WHERE id = 1`)
	if err := row.Scan(&snap.Dimension, &snap.EmbeddingModel, &snap.BuiltAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	rows, err := s.db.Queryx(`SELECT id, name, category FROM documents ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.Category); err != nil {
			return err
		}
		snap.Documents = append(snap.Documents, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	chunkRows, err := s.db.Queryx(`SELECT chunk_id, document_id, ordinal, text, start_offset, end_offset, vector
		FROM chunks ORDER BY position`)
	if err != nil {
		return err
	}
	defer chunkRows.Close()
	for chunkRows.Next() {
		var e domain.IndexEntry
		var blob []byte
		if err := chunkRows.Scan(&e.Chunk.ChunkID, &e.Chunk.DocumentID, &e.Chunk.Ordinal,
			&e.Chunk.Text, &e.Chunk.Start, &e.Chunk.End, &blob); err != nil {
			return err
		}
		e.Vector = decodeVector(blob)
		snap.Entries = append(snap.Entries, e)
	}
	if err := chunkRows.Err(); err != nil {
		return err
	}

	idx, err := vectorstore.NewIndex(snap)
	if err != nil {
		return err
	}
	s.idx = idx
	return nil
}

// Rebuild atomically replaces the whole index, on disk and in memory.
// The database write is one transaction; the snapshot swap happens only
// after a successful commit, so a failed rebuild leaves the previous
// index fully intact.
func (s *Store) Rebuild(ctx context.Context, snap domain.Snapshot) error {
	idx, err := vectorstore.NewIndex(snap)
	if err != nil {
		return err
	}
	if snap.BuiltAt.IsZero() {
		snap.BuiltAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_meta`); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}

	for i, d := range snap.Documents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, name, category, position) VALUES (?, ?, ?, ?)`,
			d.ID, d.Name, d.Category, i); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}
	for i, e := range snap.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (chunk_id, document_id, ordinal, text, start_offset, end_offset, vector, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Chunk.ChunkID, e.Chunk.DocumentID, e.Chunk.Ordinal, e.Chunk.Text,
			e.Chunk.Start, e.Chunk.End, encodeVector(e.Vector), i); err != nil {
			return fmt.Errorf("insert chunk %s: %w", e.Chunk.ChunkID, err)
		}
	}

	stats := idx.Stats()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta (id, dimension, embedding_model, built_at) VALUES (1, ?, ?, ?)`,
		stats.Dimension, snap.EmbeddingModel, snap.BuiltAt); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()
	return nil
}

// Upsert adds or replaces one entry keyed by chunk id. The index must
// have completed a build first. The entry is validated against the
// snapshot dimension before anything is written, so disk and memory
// cannot diverge.
func (s *Store) Upsert(ctx context.Context, entry domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil {
		return fmt.Errorf("%w: upsert before build", domain.ErrIndexNotFound)
	}
	if err := s.idx.Validate(entry); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx, `SELECT position FROM chunks WHERE chunk_id = ?`, entry.Chunk.ChunkID).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position)+1, 0) FROM chunks`).Scan(&position); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("find entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks (chunk_id, document_id, ordinal, text, start_offset, end_offset, vector, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Chunk.ChunkID, entry.Chunk.DocumentID, entry.Chunk.Ordinal, entry.Chunk.Text,
		entry.Chunk.Start, entry.Chunk.End, encodeVector(entry.Vector), position); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	return s.idx.Put(entry)
}

func (s *Store) Search(ctx context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil, fmt.Errorf("%w: search before build", domain.ErrIndexNotFound)
	}
	return s.idx.Search(vector, k, filter)
}

func (s *Store) Documents(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil, fmt.Errorf("%w: no build has completed", domain.ErrIndexNotFound)
	}
	return s.idx.Documents(), nil
}

func (s *Store) Stats(ctx context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return domain.IndexStats{}, fmt.Errorf("%w: no build has completed", domain.ErrIndexNotFound)
	}
	return s.idx.Stats(), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Vectors are stored as little-endian float32 blobs, 4 bytes per
// component.

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
