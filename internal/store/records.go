package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// RecordStore persists chunk records in SQLite with an FTS5 mirror for
// keyword search. WAL mode allows a reader (status, MCP) while an index
// run holds the writer.
type RecordStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// validateSQLiteIntegrity checks if a SQLite database is valid before
// opening. Returns nil if valid or missing.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Database doesn't exist, will be created
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	return nil
}

// NewRecordStore opens (or creates) the record database at path.
// If path is empty, an in-memory database is used for testing.
func NewRecordStore(path string) (*RecordStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if err := validateSQLiteIntegrity(path); err != nil {
			return nil, fmt.Errorf("record store at %s is corrupt: %w", path, err)
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents SQLite lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params may
	// be ignored
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	rs := &RecordStore{db: db, path: path}

	if err := rs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return rs, nil
}

// initSchema creates the records, FTS5 and state tables.
func (s *RecordStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS records (
		chunk_id     TEXT PRIMARY KEY,
		doc_id       TEXT NOT NULL,
		source_path  TEXT NOT NULL,
		content      TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_doc ON records(doc_id);

	-- FTS5 mirror for keyword search; chunk_id is stored but not indexed
	CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
		chunk_id UNINDEXED,
		content,
		tokenize='unicode61'
	);

	CREATE TABLE IF NOT EXISTS store_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRecords inserts or replaces records by chunk ID, keeping the FTS
// mirror in sync.
func (s *RecordStore) SaveRecords(ctx context.Context, records []KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("record store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	recordStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records
		(chunk_id, doc_id, source_path, content, start_offset, end_offset)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record statement: %w", err)
	}
	defer func() { _ = recordStmt.Close() }()

	// FTS5 virtual tables don't support REPLACE, delete first
	ftsDeleteStmt, err := tx.PrepareContext(ctx,
		`DELETE FROM records_fts WHERE chunk_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare fts delete statement: %w", err)
	}
	defer func() { _ = ftsDeleteStmt.Close() }()

	ftsInsertStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records_fts(chunk_id, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare fts insert statement: %w", err)
	}
	defer func() { _ = ftsInsertStmt.Close() }()

	for _, r := range records {
		if _, err := recordStmt.ExecContext(ctx,
			r.ChunkID, r.DocumentID, r.SourcePath, r.Content,
			r.StartOffset, r.EndOffset); err != nil {
			return fmt.Errorf("failed to save record %s: %w", r.ChunkID, err)
		}
		if _, err := ftsDeleteStmt.ExecContext(ctx, r.ChunkID); err != nil {
			return fmt.Errorf("failed to clear fts row %s: %w", r.ChunkID, err)
		}
		if _, err := ftsInsertStmt.ExecContext(ctx, r.ChunkID, r.Content); err != nil {
			return fmt.Errorf("failed to index fts row %s: %w", r.ChunkID, err)
		}
	}

	return tx.Commit()
}

// GetRecords fetches records by chunk ID. Missing IDs are skipped; the
// result preserves the requested order.
func (s *RecordStore) GetRecords(ctx context.Context, chunkIDs []string) ([]KnowledgeRecord, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("record store is closed")
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT chunk_id, doc_id, source_path, content, start_offset, end_offset
		FROM records WHERE chunk_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]KnowledgeRecord, len(chunkIDs))
	for rows.Next() {
		var r KnowledgeRecord
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.SourcePath,
			&r.Content, &r.StartOffset, &r.EndOffset); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		byID[r.ChunkID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	results := make([]KnowledgeRecord, 0, len(byID))
	for _, id := range chunkIDs {
		if r, ok := byID[id]; ok {
			results = append(results, r)
		}
	}
	return results, nil
}

// KeywordSearch runs an FTS5 match over record content, best first.
func (s *RecordStore) KeywordSearch(ctx context.Context, query string, limit int) ([]KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("record store is closed")
	}

	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	// Quote each term to avoid FTS5 query syntax errors on user input
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	ftsQuery := strings.Join(terms, " ")

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.chunk_id, r.doc_id, r.source_path, r.content,
		       r.start_offset, r.end_offset
		FROM records_fts f
		JOIN records r ON r.chunk_id = f.chunk_id
		WHERE records_fts MATCH ?
		ORDER BY bm25(records_fts)
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []KnowledgeRecord
	for rows.Next() {
		var r KnowledgeRecord
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.SourcePath,
			&r.Content, &r.StartOffset, &r.EndOffset); err != nil {
			return nil, fmt.Errorf("failed to scan keyword result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns the number of stored records.
func (s *RecordStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("record store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Clear removes all records, FTS rows and state.
func (s *RecordStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("record store is closed")
	}

	for _, stmt := range []string{
		`DELETE FROM records`,
		`DELETE FROM records_fts`,
		`DELETE FROM store_state`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	}
	return nil
}

// GetState returns a state value, or "" if the key is unset.
func (s *RecordStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("record store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM store_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState stores a state value.
func (s *RecordStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("record store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO store_state(key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}
