// Package snapshot stores named copies of stage graphs in SQLite so boards
// can be saved and restored across editor sessions.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/stageflow/internal/stage"
)

// ErrNotFound is returned when no snapshot matches a lookup.
var ErrNotFound = errors.New("snapshot not found")

var errNotOpen = errors.New("database not opened")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Snapshot is a saved graph.
type Snapshot struct {
	ID        string
	Name      string
	Stages    int
	CreatedAt time.Time
	Graph     stage.Graph
}

// Summary describes a snapshot without its payload.
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Stages    int       `json:"stages" yaml:"stages"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Store is a SQLite-backed snapshot store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
	keep int
}

// Open opens (creating if needed) the database at path and applies
// migrations. Use MemoryPath for a throwaway store.
func Open(path string) (*Store, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == MemoryPath {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing, already migrated connection.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SetRetention makes every Save prune the saved name down to its newest
// keep snapshots. Zero or less disables pruning.
func (s *Store) SetRetention(keep int) {
	s.keep = keep
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores g under name and returns the new snapshot.
func (s *Store) Save(ctx context.Context, name string, g stage.Graph) (*Snapshot, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	payload, err := stage.Encode(g, stage.FormatJSON)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:        uuid.New().String(),
		Name:      name,
		Stages:    len(g.Stages),
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Graph:     g.Clone(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, stages, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.Stages, string(payload), snap.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}
	if _, err := s.Prune(ctx, name, s.keep); err != nil {
		return nil, err
	}
	return snap, nil
}

// Latest returns the most recent snapshot saved under name.
func (s *Store) Latest(ctx context.Context, name string) (*Snapshot, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, stages, payload, created_at FROM snapshots
		WHERE name = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, name)
	return scanSnapshot(row, name)
}

// Get returns the snapshot with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, stages, payload, created_at FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row, id)
}

func scanSnapshot(row *sql.Row, key string) (*Snapshot, error) {
	var (
		snap    Snapshot
		payload string
		created int64
	)
	err := row.Scan(&snap.ID, &snap.Name, &snap.Stages, &payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	g, err := stage.Decode([]byte(payload), stage.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s is corrupt: %w", snap.ID, err)
	}
	snap.Graph = g
	snap.CreatedAt = time.UnixMilli(created).UTC()
	return &snap, nil
}

// List returns every snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, stages, created_at FROM snapshots
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Stages, &created); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		sum.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Delete removes every snapshot saved under name and returns how many
// were removed.
func (s *Store) Delete(ctx context.Context, name string) (int64, error) {
	if s.db == nil {
		return 0, errNotOpen
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots %s: %w", name, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return n, nil
}

// Prune keeps only the newest keep snapshots of name and returns how many
// were removed. keep <= 0 removes nothing.
func (s *Store) Prune(ctx context.Context, name string, keep int) (int64, error) {
	if s.db == nil {
		return 0, errNotOpen
	}
	if keep <= 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE name = ? AND id NOT IN (
			SELECT id FROM snapshots
			WHERE name = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, name, name, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots %s: %w", name, err)
	}
	return n, nil
}
