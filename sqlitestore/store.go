// Package sqlitestore persists a ledger in a SQLite database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/taxlot"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store is a taxlot.Store backed by SQLite.
type Store struct {
	repo
	conn *sql.DB
	path string
}

var _ taxlot.Store = (*Store)(nil)

// Open opens, and creates if needed, the database at path.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", buildConnectionString(absPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", absPath, err)
	}
	// A single connection serialises units of work, SQLite has one writer.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", absPath, err)
	}

	s := &Store{repo: repo{q: conn}, conn: conn, path: absPath}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// buildConnectionString creates the connection string with the PRAGMAs of an
// audit trail: durable writes and enforced foreign keys.
func buildConnectionString(path string) string {
	connStr := "file:" + path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(FULL)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	return connStr
}

// migrate creates the schema of an empty database and checks the version
// of an existing one.
func (s *Store) migrate() error {
	var version int
	if err := s.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: database schema version %d is newer than %d", taxlot.ErrUnsupported, version, schemaVersion)
	}
	return withTransaction(s.conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		return nil
	})
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close implements taxlot.Store.
func (s *Store) Close() error { return s.conn.Close() }

// Atomic implements taxlot.Store with a database transaction.
func (s *Store) Atomic(fn func(taxlot.Repository) error) error {
	return withTransaction(s.conn, func(tx *sql.Tx) error {
		return fn(repo{q: tx})
	})
}

// withTransaction runs fn in a transaction, committed if fn returns nil and
// rolled back otherwise, panics included.
func withTransaction(conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
