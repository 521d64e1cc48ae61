package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteRecorder persists dispatch records to SQLite.
// It is suitable for single-process production use.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteRecorder creates a new SQLite dispatch journal.
// The path should be a file path (e.g., "./journal.db") or ":memory:" for testing.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatches (
			event_id TEXT NOT NULL PRIMARY KEY,
			seq INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			adapter TEXT NOT NULL,
			blocked INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms REAL NOT NULL,
			nodes BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_dispatches_seq
		ON dispatches(seq)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteRecorder{db: db}, nil
}

// Record implements Recorder.
func (s *SQLiteRecorder) Record(ctx context.Context, rec *DispatchRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	nodes, err := json.Marshal(rec.Nodes)
	if err != nil {
		return fmt.Errorf("serialize node records: %w", err)
	}

	failed := 0
	for _, n := range rec.Nodes {
		if n.Status == StatusFailed {
			failed = 1
			break
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispatches (event_id, seq, event_type, adapter, blocked, failed, started_at, duration_ms, nodes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			blocked = excluded.blocked,
			failed = excluded.failed,
			duration_ms = excluded.duration_ms,
			nodes = excluded.nodes
	`, rec.EventID, rec.Seq, rec.EventType, rec.Adapter, boolToInt(rec.Blocked), failed,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), float64(rec.Duration.Milliseconds()), nodes)

	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// Load implements Recorder.
func (s *SQLiteRecorder) Load(ctx context.Context, eventID string) (*DispatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT event_id, seq, event_type, adapter, blocked, started_at, duration_ms, nodes
		FROM dispatches
		WHERE event_id = ?
	`, eventID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load dispatch record: %w", err)
	}
	return rec, nil
}

// List implements Recorder.
func (s *SQLiteRecorder) List(ctx context.Context, limit int) ([]*DispatchRecord, error) {
	return s.query(ctx, `
		SELECT event_id, seq, event_type, adapter, blocked, started_at, duration_ms, nodes
		FROM dispatches
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
}

// Failures implements Recorder.
func (s *SQLiteRecorder) Failures(ctx context.Context, limit int) ([]*DispatchRecord, error) {
	return s.query(ctx, `
		SELECT event_id, seq, event_type, adapter, blocked, started_at, duration_ms, nodes
		FROM dispatches
		WHERE failed = 1
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
}

// Close implements Recorder.
func (s *SQLiteRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteRecorder) query(ctx context.Context, q string, limit int) ([]*DispatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatch records: %w", err)
	}
	defer rows.Close()

	var recs []*DispatchRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*DispatchRecord, error) {
	var (
		rec        DispatchRecord
		blocked    int
		startedAt  string
		durationMs float64
		nodes      []byte
	)
	if err := row.Scan(&rec.EventID, &rec.Seq, &rec.EventType, &rec.Adapter,
		&blocked, &startedAt, &durationMs, &nodes); err != nil {
		return nil, err
	}
	rec.Blocked = blocked != 0
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		rec.StartedAt = t
	}
	rec.Duration = time.Duration(durationMs * float64(time.Millisecond))
	if err := json.Unmarshal(nodes, &rec.Nodes); err != nil {
		return nil, fmt.Errorf("deserialize node records: %w", err)
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
