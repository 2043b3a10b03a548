package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/google/uuid"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/models"
)

const sqliteChunkSchema = `
CREATE TABLE IF NOT EXISTS chunk_namespaces (
	name TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	namespace TEXT NOT NULL,
	source_id TEXT NOT NULL,
	label TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	chunk_text TEXT NOT NULL,
	embedding BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_namespace_source ON chunks(namespace, source_id);
CREATE INDEX IF NOT EXISTS idx_chunks_namespace_label ON chunks(namespace, label);
`

// SQLiteChunkStore is a single-file chunk store for deployments without Postgres.
// Similarity is brute-force cosine distance computed in Go.
type SQLiteChunkStore struct {
	db   *sql.DB
	path string
}

var _ chunkindex.Store = (*SQLiteChunkStore)(nil)

// NewSQLiteChunkStore opens or creates the database at path
func NewSQLiteChunkStore(path string) (*SQLiteChunkStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(sqliteChunkSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunk schema: %w", err)
	}

	return &SQLiteChunkStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteChunkStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteChunkStore) Path() string {
	return s.path
}

// EnsureNamespace registers namespace
func (s *SQLiteChunkStore) EnsureNamespace(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chunk_namespaces (name, created_at) VALUES (?, ?)`,
		namespace, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("creating namespace: %w", err)
	}
	return nil
}

// Replace deletes the chunks of sourceID and inserts records in one transaction
func (s *SQLiteChunkStore) Replace(ctx context.Context, namespace, sourceID string, records []models.ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO chunk_namespaces (name, created_at) VALUES (?, ?)`, namespace, now); err != nil {
		return fmt.Errorf("creating namespace: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE namespace = ? AND source_id = ?`, namespace, sourceID); err != nil {
		return fmt.Errorf("deleting existing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, namespace, source_id, label, chunk_index, chunk_text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		id := rec.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := stmt.ExecContext(ctx,
			id.String(), namespace, sourceID, rec.Label, rec.ChunkIndex, rec.Text,
			float32SliceToBytes(rec.Embedding), now,
		); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", rec.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteSource deletes every chunk of sourceID
func (s *SQLiteChunkStore) DeleteSource(ctx context.Context, namespace, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE namespace = ? AND source_id = ?`, namespace, sourceID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Query scores every chunk of namespace and returns the closest topK
func (s *SQLiteChunkStore) Query(
	ctx context.Context,
	namespace string,
	embedding []float32,
	topK int,
	excludeLabel string,
) ([]models.ChunkHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, chunk_text, source_id, label, chunk_index, embedding
		FROM chunks
		WHERE namespace = ? AND (? = '' OR label <> ?)
		ORDER BY seq`, namespace, excludeLabel, excludeLabel)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	type scored struct {
		seq int64
		hit models.ChunkHit
	}
	var candidates []scored
	for rows.Next() {
		var (
			c    scored
			blob []byte
		)
		if err := rows.Scan(&c.seq, &c.hit.Text, &c.hit.SourceID, &c.hit.Label, &c.hit.ChunkIndex, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.hit.Distance = chunkindex.CosineDistance(embedding, bytesToFloat32Slice(blob))
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].hit.Distance != candidates[j].hit.Distance {
			return candidates[i].hit.Distance < candidates[j].hit.Distance
		}
		return candidates[i].seq < candidates[j].seq
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	hits := make([]models.ChunkHit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.hit
	}
	return hits, nil
}

// ListByLabel returns the chunks of label in sequence order
func (s *SQLiteChunkStore) ListByLabel(ctx context.Context, namespace, label string) ([]models.ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, label, chunk_index, chunk_text
		FROM chunks
		WHERE namespace = ? AND label = ?
		ORDER BY seq`, namespace, label)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var records []models.ChunkRecord
	for rows.Next() {
		var (
			rec models.ChunkRecord
			id  string
		)
		if err := rows.Scan(&id, &rec.SourceID, &rec.Label, &rec.ChunkIndex, &rec.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		rec.ID, _ = uuid.Parse(id)
		rec.Namespace = namespace
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of chunks in namespace
func (s *SQLiteChunkStore) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE namespace = ?`, namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Sources summarizes namespace per source
func (s *SQLiteChunkStore) Sources(ctx context.Context, namespace string) ([]models.SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, MIN(label), COUNT(*), MIN(created_at)
		FROM chunks
		WHERE namespace = ?
		GROUP BY source_id
		ORDER BY MIN(seq)`, namespace)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []models.SourceInfo
	for rows.Next() {
		var (
			info    models.SourceInfo
			created int64
		)
		if err := rows.Scan(&info.SourceID, &info.Label, &info.ChunkCount, &created); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		info.IndexedAt = time.Unix(0, created)
		sources = append(sources, info)
	}
	return sources, rows.Err()
}

// DropNamespace deletes namespace and its chunks
func (s *SQLiteChunkStore) DropNamespace(ctx context.Context, namespace string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_namespaces WHERE name = ?`, namespace); err != nil {
		return fmt.Errorf("deleting namespace: %w", err)
	}
	return tx.Commit()
}

// Namespaces lists registered namespaces
func (s *SQLiteChunkStore) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM chunk_namespaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning namespace: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
