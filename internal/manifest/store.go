// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest persists the history of export runs and the per-item
// outcome of each run in a SQLite database, and writes run manifests as
// YAML or JSON.
package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/connvault/pkg/types"
)

const (
	dbFile       = "history.db"
	manifestsDir = "manifests"

	defaultListLimit = 20

	// timeLayout has a fixed width so stored timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRunNotFound is returned when no run matches a requested ID.
var ErrRunNotFound = errors.New("run not found")

// Store manages the run history database.
type Store struct {
	db       *sql.DB
	stateDir string
}

// NewStore opens or creates the history database at stateDir/history.db
// and creates the schema if it does not exist.
func NewStore(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, stateDir: stateDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			vault_dir TEXT,
			destination_root TEXT,
			seeds TEXT,
			copied INTEGER,
			failed INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			identifier TEXT NOT NULL,
			path TEXT,
			dest TEXT,
			status TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_run_id ON items(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its items in a single transaction. Recording
// the same run ID again replaces the earlier record.
func (s *Store) Record(ctx context.Context, run types.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("deleting old items: %w", err)
	}

	seedsJSON, _ := json.Marshal(run.Seeds)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, vault_dir, destination_root, seeds, copied, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			started_at=excluded.started_at, finished_at=excluded.finished_at,
			vault_dir=excluded.vault_dir, destination_root=excluded.destination_root,
			seeds=excluded.seeds, copied=excluded.copied, failed=excluded.failed`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.VaultDir, run.DestinationRoot, string(seedsJSON), run.Copied, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (run_id, identifier, path, dest, status, error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range run.Items {
		if _, err := stmt.ExecContext(ctx, run.ID, it.ID, it.Path, it.Dest, string(it.Status), it.Error); err != nil {
			return fmt.Errorf("inserting item %s: %w", it.ID, err)
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first, without their items.
// A limit of zero or less selects the default of 20.
func (s *Store) Runs(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, vault_dir, destination_root, seeds, copied, failed
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns the run whose ID equals id or starts with it, including its
// items. A prefix matching several runs is an error.
func (s *Store) Run(ctx context.Context, id string) (types.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, vault_dir, destination_root, seeds, copied, failed
		 FROM runs WHERE substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2`, id, id)
	if err != nil {
		return types.Run{}, fmt.Errorf("querying run: %w", err)
	}
	var matches []types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return types.Run{}, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return types.Run{}, err
	}

	switch {
	case len(matches) == 0:
		return types.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return types.Run{}, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}

	run := matches[0]
	items, err := s.items(ctx, run.ID)
	if err != nil {
		return types.Run{}, err
	}
	run.Items = items
	return run, nil
}

// Latest returns the most recently started run with its items.
func (s *Store) Latest(ctx context.Context) (types.Run, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil {
		return types.Run{}, err
	}
	if len(runs) == 0 {
		return types.Run{}, fmt.Errorf("%w: no runs recorded", ErrRunNotFound)
	}
	return s.Run(ctx, runs[0].ID)
}

func (s *Store) items(ctx context.Context, runID string) ([]types.ItemResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, path, dest, status, error FROM items WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []types.ItemResult
	for rows.Next() {
		var (
			it                     types.ItemResult
			path, dest, errMessage sql.NullString
			status                 string
		)
		if err := rows.Scan(&it.ID, &path, &dest, &status, &errMessage); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Path = path.String
		it.Dest = dest.String
		it.Status = types.ItemStatus(status)
		it.Error = errMessage.String
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (types.Run, error) {
	var (
		run                     types.Run
		started                 string
		finished, vaultDir, dst sql.NullString
		seeds                   sql.NullString
		copied, failed          sql.NullInt64
	)
	if err := row.Scan(&run.ID, &started, &finished, &vaultDir, &dst, &seeds, &copied, &failed); err != nil {
		return types.Run{}, fmt.Errorf("scanning run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished.String)
	run.VaultDir = vaultDir.String
	run.DestinationRoot = dst.String
	run.Copied = int(copied.Int64)
	run.Failed = int(failed.Int64)
	if seeds.String != "" {
		if err := json.Unmarshal([]byte(seeds.String), &run.Seeds); err != nil {
			return types.Run{}, fmt.Errorf("scanning run seeds: %w", err)
		}
	}
	return run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
