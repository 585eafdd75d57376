// Package store owns the per-feed SQLite database built from a GTFS
// feed directory and exposes the read-only queries consumed by the map
// and poster front ends.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lisaec/MappingYourTransit-hosted/internal/gtfs"
)

var (
	// ErrEmptyAgencyTable is returned when a summary needs the agency
	// name or url but the agency table has no rows.
	ErrEmptyAgencyTable = errors.New("agency table is empty")

	// ErrEmptyFeed is returned when a spatial aggregate has no shape
	// points to work with.
	ErrEmptyFeed = errors.New("feed has no shape points")
)

// feed_loads records each completed build. It is metadata, not the
// cache-validity marker; the marker is the agency table itself.
const createFeedLoadsSQL = `CREATE TABLE IF NOT EXISTS feed_loads (
    load_id TEXT PRIMARY KEY,
    feed_name TEXT,
    loaded_at_utc TEXT
)`

// Store is an open connection to one feed's relational database. All
// query methods are read-only; the only write path is the initial
// build.
type Store struct {
	db      *sql.DB
	name    string
	path    string
	writeMu sync.Mutex
}

// Connect opens the SQLite database at path with WAL mode enabled.
// Foreign keys stay unenforced: they are declared in the schema for
// structure, but real feeds violate them often enough (shape ids with
// no shapes row, service ids with no calendar) that enforcement would
// reject otherwise loadable data.
func Connect(path, feedName string) (*Store, error) {
	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer; a single connection plus the write
	// mutex keeps the build serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	return &Store{db: db, name: feedName, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name returns the feed name the store was built from.
func (s *Store) Name() string {
	return s.name
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Built reports whether this store already holds a completed load. The
// signal is the existence of the agency table: the build runs inside a
// single transaction, so a failed build leaves no tables behind.
func (s *Store) Built(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'agency'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check store marker: %w", err)
	}
	return true, nil
}

// Build creates the schema and inserts every table of the feed, all in
// one transaction. Tables are inserted in foreign-key dependency order
// (agency, stops, shapes, routes, trips, stop_times, then optional
// files).
func (s *Store) Build(ctx context.Context, feed *gtfs.Feed) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tables, err := feed.Tables()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, def := range gtfs.Tables {
		if _, err := tx.ExecContext(ctx, def.CreateSQL()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", def.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, createFeedLoadsSQL); err != nil {
		return fmt.Errorf("failed to create feed_loads: %w", err)
	}

	for _, table := range tables {
		if err := insertTable(ctx, tx, table); err != nil {
			return err
		}
		log.Printf("Loaded %d rows into %s", len(table.Rows), table.Name)
	}

	loadID := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO feed_loads (load_id, feed_name, loaded_at_utc) VALUES (?, ?, ?)",
		loadID, feed.Name(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}
	log.Printf("Built store for feed %s (load %s)", feed.Name(), loadID)
	return nil
}

func insertTable(ctx context.Context, tx *sql.Tx, table *gtfs.Table) error {
	if len(table.Columns) == 0 || len(table.Rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.Columns)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(table.Columns, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", table.Name, err)
	}
	defer stmt.Close()

	for _, row := range table.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table.Name, err)
		}
	}
	return nil
}

// LastLoad returns the most recent load recorded in feed_loads.
func (s *Store) LastLoad(ctx context.Context) (loadID string, loadedAt time.Time, err error) {
	var at string
	err = s.db.QueryRowContext(ctx,
		"SELECT load_id, loaded_at_utc FROM feed_loads ORDER BY loaded_at_utc DESC LIMIT 1",
	).Scan(&loadID, &at)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read feed_loads: %w", err)
	}
	loadedAt, err = time.Parse(time.RFC3339, at)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse load timestamp: %w", err)
	}
	return loadID, loadedAt, nil
}
