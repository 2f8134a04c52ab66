package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	rerrors "github.com/contextlab/recall/internal/errors"
)

// SQLiteStore implements Store using SQLite.
// WAL mode allows the MCP server and CLI tooling to share one database.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// validateIntegrity checks a database file before opening.
// Returns nil if valid or absent, an error describing corruption if not.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // will be created
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	return nil
}

// NewSQLiteStore opens or creates the store at path.
// If path is empty, an in-memory store is created for testing.
func NewSQLiteStore(path string, cacheSizeMB int) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, rerrors.New(rerrors.ErrCodeStorageUnavailable,
				fmt.Sprintf("failed to create storage directory %s", dir), err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("memory_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			return nil, rerrors.New(rerrors.ErrCodeStorageCorrupt,
				fmt.Sprintf("memory store corrupted at %s", path), validErr).
				WithSuggestion("remove the database file and re-import your data")
		}

		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, rerrors.New(rerrors.ErrCodeStorageUnavailable, "failed to open memory store", err)
	}

	// Single writer prevents lock contention with the pure Go driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if cacheSizeMB <= 0 {
		cacheSizeMB = 64
	}

	// Pragmas must be set via statements, DSN params may be ignored by
	// modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cacheSizeMB*1024),
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, rerrors.New(rerrors.ErrCodeStorageUnavailable, "failed to set pragma", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, rerrors.New(rerrors.ErrCodeStorageUnavailable, "failed to initialize schema", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id         TEXT PRIMARY KEY,
		scope      TEXT NOT NULL,
		text       TEXT NOT NULL,
		seq        INTEGER NOT NULL DEFAULT 0,
		tags       TEXT NOT NULL DEFAULT '[]',
		embedding  BLOB,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_scope ON chunks(scope);

	CREATE TABLE IF NOT EXISTS entity_facts (
		scope  TEXT NOT NULL,
		entity TEXT NOT NULL,
		fact   TEXT NOT NULL,
		UNIQUE(scope, entity, fact)
	);
	CREATE INDEX IF NOT EXISTS idx_entity_facts_scope ON entity_facts(scope);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadChunks returns all chunks for a user scope, ordered by sequence index.
func (s *SQLiteStore) LoadChunks(ctx context.Context, scope string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, rerrors.New(rerrors.ErrCodeStorageUnavailable, "memory store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope, text, seq, tags, embedding, created_at
		 FROM chunks WHERE scope = ? ORDER BY seq, id`, scope)
	if err != nil {
		return nil, rerrors.New(rerrors.ErrCodeStorageQuery, "chunk query failed", err).
			WithDetail("scope", scope)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var (
			c         Chunk
			tagsJSON  string
			embedding []byte
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.Scope, &c.Text, &c.SequenceIndex, &tagsJSON, &embedding, &createdAt); err != nil {
			return nil, rerrors.New(rerrors.ErrCodeStorageQuery, "chunk scan failed", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
			return nil, rerrors.New(rerrors.ErrCodeStorageCorrupt,
				fmt.Sprintf("invalid tags for chunk %s", c.ID), err)
		}
		c.Embedding = decodeVector(embedding)
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		chunks = append(chunks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, rerrors.New(rerrors.ErrCodeStorageQuery, "chunk iteration failed", err)
	}
	return chunks, nil
}

// LoadEntityIndex returns the entity index for a user scope.
// Entity names are lowercased so lookup is case-insensitive.
func (s *SQLiteStore) LoadEntityIndex(ctx context.Context, scope string) (EntityIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, rerrors.New(rerrors.ErrCodeStorageUnavailable, "memory store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity, fact FROM entity_facts WHERE scope = ? ORDER BY entity, rowid`, scope)
	if err != nil {
		return nil, rerrors.New(rerrors.ErrCodeStorageQuery, "entity index query failed", err).
			WithDetail("scope", scope)
	}
	defer rows.Close()

	index := make(EntityIndex)
	for rows.Next() {
		var entity, fact string
		if err := rows.Scan(&entity, &fact); err != nil {
			return nil, rerrors.New(rerrors.ErrCodeStorageQuery, "entity fact scan failed", err)
		}
		key := strings.ToLower(entity)
		index[key] = append(index[key], fact)
	}

	if err := rows.Err(); err != nil {
		return nil, rerrors.New(rerrors.ErrCodeStorageQuery, "entity index iteration failed", err)
	}
	return index, nil
}

// SaveChunks inserts or replaces chunks.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rerrors.New(rerrors.ErrCodeStorageUnavailable, "memory store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rerrors.New(rerrors.ErrCodeStorageQuery, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, scope, text, seq, tags, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return rerrors.New(rerrors.ErrCodeStorageQuery, "failed to prepare chunk insert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		tagsJSON, err := json.Marshal(c.Tags)
		if err != nil {
			return rerrors.New(rerrors.ErrCodeInvalidInput,
				fmt.Sprintf("invalid tags for chunk %s", c.ID), err)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Scope, c.Text, c.SequenceIndex,
			string(tagsJSON), encodeVector(c.Embedding), createdAt.Unix()); err != nil {
			return rerrors.New(rerrors.ErrCodeStorageQuery,
				fmt.Sprintf("failed to save chunk %s", c.ID), err)
		}
	}

	return tx.Commit()
}

// SaveEntityFacts inserts entity facts, ignoring exact duplicates.
func (s *SQLiteStore) SaveEntityFacts(ctx context.Context, facts []*EntityFact) error {
	if len(facts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rerrors.New(rerrors.ErrCodeStorageUnavailable, "memory store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rerrors.New(rerrors.ErrCodeStorageQuery, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO entity_facts (scope, entity, fact) VALUES (?, ?, ?)`)
	if err != nil {
		return rerrors.New(rerrors.ErrCodeStorageQuery, "failed to prepare fact insert", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f.Scope, strings.ToLower(f.Entity), f.Fact); err != nil {
			return rerrors.New(rerrors.ErrCodeStorageQuery,
				fmt.Sprintf("failed to save fact for entity %s", f.Entity), err)
		}
	}

	return tx.Commit()
}

// DeleteChunk removes a chunk by id.
func (s *SQLiteStore) DeleteChunk(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rerrors.New(rerrors.ErrCodeStorageUnavailable, "memory store is closed", nil)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id); err != nil {
		return rerrors.New(rerrors.ErrCodeStorageQuery,
			fmt.Sprintf("failed to delete chunk %s", id), err)
	}
	return nil
}

// DeleteEntity removes all facts for an entity within a scope.
func (s *SQLiteStore) DeleteEntity(ctx context.Context, scope, entity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rerrors.New(rerrors.ErrCodeStorageUnavailable, "memory store is closed", nil)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM entity_facts WHERE scope = ? AND entity = ?`,
		scope, strings.ToLower(entity)); err != nil {
		return rerrors.New(rerrors.ErrCodeStorageQuery,
			fmt.Sprintf("failed to delete entity %s", entity), err)
	}
	return nil
}

// Stats returns per-scope counts.
func (s *SQLiteStore) Stats(ctx context.Context, scope string) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return StoreStats{}, rerrors.New(rerrors.ErrCodeStorageUnavailable, "memory store is closed", nil)
	}

	var stats StoreStats
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE scope = ?`, scope).Scan(&stats.Chunks); err != nil {
		return StoreStats{}, rerrors.New(rerrors.ErrCodeStorageQuery, "chunk count failed", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT entity), COUNT(*) FROM entity_facts WHERE scope = ?`,
		scope).Scan(&stats.Entities, &stats.EntityFacts); err != nil {
		return StoreStats{}, rerrors.New(rerrors.ErrCodeStorageQuery, "fact count failed", err)
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// encodeVector packs a float32 vector into a little-endian byte blob.
// Returns nil for an empty vector so the column stays NULL.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a blob written by encodeVector.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
