// Package store persists change events to SQLite: an append-only history
// table and a single-row current_state table that is replaced on every change.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sweeney/parking-logger/internal/logic"
)

const schema = `
CREATE TABLE IF NOT EXISTS parking_logs (
	id             TEXT PRIMARY KEY,
	timestamp      TEXT NOT NULL,
	slot_available INTEGER NOT NULL,
	slots          TEXT NOT NULL,
	description    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS parking_logs_timestamp ON parking_logs (timestamp);
CREATE TABLE IF NOT EXISTS current_state (
	singleton      INTEGER PRIMARY KEY CHECK (singleton = 1),
	last_updated   TEXT NOT NULL,
	slot_available INTEGER NOT NULL,
	slots          TEXT NOT NULL,
	last_change    TEXT NOT NULL
);
`

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNoState is returned by Current before any change has been stored.
var ErrNoState = errors.New("no state stored")

// Store is a SQLite-backed change sink.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Name identifies the sink in logs.
func (s *Store) Name() string { return "sqlite" }

// Write appends the event to the history and replaces the current state,
// atomically.
func (s *Store) Write(ctx context.Context, ev logic.ChangeEvent) (err error) {
	available, err := ev.Record.Available()
	if err != nil {
		return err
	}
	ts := ev.Timestamp.UTC().Format(tsLayout)
	slots := strings.Join(ev.Record.Slots(), ",")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO parking_logs (id, timestamp, slot_available, slots, description) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ts, available, slots, ev.Description); err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO current_state (singleton, last_updated, slot_available, slots, last_change)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (singleton) DO UPDATE SET
		   last_updated = excluded.last_updated,
		   slot_available = excluded.slot_available,
		   slots = excluded.slots,
		   last_change = excluded.last_change`,
		ts, available, slots, ev.Description); err != nil {
		return fmt.Errorf("upsert current state: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Entry is one stored change.
type Entry struct {
	ID            string
	Timestamp     time.Time
	SlotAvailable int
	Slots         logic.SlotState
	Description   string
}

// Current returns the latest stored state.
func (s *Store) Current(ctx context.Context) (Entry, error) {
	var (
		e     Entry
		ts    string
		slots string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT last_updated, slot_available, slots, last_change FROM current_state WHERE singleton = 1`).
		Scan(&ts, &e.SlotAvailable, &slots, &e.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNoState
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query current state: %w", err)
	}
	return finishEntry(e, ts, slots)
}

// Recent returns up to limit history entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, slot_available, slots, description FROM parking_logs
		 ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			ts    string
			slots string
		)
		if err := rows.Scan(&e.ID, &ts, &e.SlotAvailable, &slots, &e.Description); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if e, err = finishEntry(e, ts, slots); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func finishEntry(e Entry, ts, slots string) (Entry, error) {
	t, err := time.Parse(tsLayout, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	e.Timestamp = t
	e.Slots = logic.SlotState(strings.Split(slots, ","))
	return e, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
