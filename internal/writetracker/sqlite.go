package writetracker

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	kindWrite   = "write"
	kindContent = "content"
)

// SQLiteStore keeps the snapshot in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracked (
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (kind, path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load implements SnapshotStore.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT kind, path, fingerprint FROM tracked")
	if err != nil {
		return Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{Writes: map[string]uint64{}, Contents: map[string]uint64{}}
	rowCount := 0
	for rows.Next() {
		var kind, p, raw string
		if err := rows.Scan(&kind, &p, &raw); err != nil {
			return Snapshot{}, fmt.Errorf("scan snapshot row: %w", err)
		}
		fp, err := strconv.ParseUint(raw, 16, 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("parse fingerprint for %s: %w", p, err)
		}
		switch kind {
		case kindWrite:
			snap.Writes[p] = fp
		case kindContent:
			snap.Contents[p] = fp
		default:
			return Snapshot{}, fmt.Errorf("unknown snapshot kind %q", kind)
		}
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate snapshot: %w", err)
	}
	if rowCount == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

// Save implements SnapshotStore. The previous snapshot is replaced atomically.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tracked"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO tracked (kind, path, fingerprint) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind string, m map[string]uint64) error {
		for p, fp := range m {
			if _, err := stmt.ExecContext(ctx, kind, p, strconv.FormatUint(fp, 16)); err != nil {
				return fmt.Errorf("insert %s %s: %w", kind, p, err)
			}
		}
		return nil
	}
	if err := insert(kindWrite, snap.Writes); err != nil {
		return err
	}
	if err := insert(kindContent, snap.Contents); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
