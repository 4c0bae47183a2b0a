package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT    NOT NULL,
	type    TEXT    NOT NULL,
	at_ms   INTEGER NOT NULL,
	payload BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS journal_run ON journal(run_id, seq);
CREATE INDEX IF NOT EXISTS journal_at ON journal(at_ms);
`

const selectEntries = "SELECT seq, run_id, type, at_ms, payload FROM journal"

// SQLiteStore is a Store backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the journal at dbPath, creating the schema on first use.
// Use ":memory:" for an in-memory journal.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
	}
	// one connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrInitializeSchemaFailed, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.At.IsZero() {
		e.At = time.Now()
	}
	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO journal (run_id, type, at_ms, payload) VALUES (?, ?, ?, ?)",
		e.RunID, e.Type, e.At.UnixMilli(), payload,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEventAppendFailed, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEventAppendFailed, err)
	}
	return seq, nil
}

// Run implements Store.
func (s *SQLiteStore) Run(ctx context.Context, runID string) ([]Entry, error) {
	return s.query(ctx, selectEntries+" WHERE run_id = ? ORDER BY seq", runID)
}

// Between implements Store.
func (s *SQLiteStore) Between(ctx context.Context, from, to time.Time) ([]Entry, error) {
	return s.query(ctx, selectEntries+" WHERE at_ms >= ? AND at_ms <= ? ORDER BY seq", from.UnixMilli(), to.UnixMilli())
}

// RecentRuns implements Store.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id FROM journal GROUP BY run_id ORDER BY MAX(seq) DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventQueryFailed, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrEventQueryFailed, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %w", ErrEventQueryFailed, err)
	}
	return ids, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventQueryFailed, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var atMS int64
		var payload []byte
		if err := rows.Scan(&e.Seq, &e.RunID, &e.Type, &atMS, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrEventQueryFailed, err)
		}
		e.At = time.UnixMilli(atMS)
		e.Payload = payload
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %w", ErrEventQueryFailed, err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
