// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package store keeps the declaration index in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/mdhender/snippet/model"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// memoryDSN is a private in-memory database. Each connection to it would
// be a separate database, so stores using it hold a single connection.
const memoryDSN = "file::memory:?_pragma=foreign_keys(1)"

// SQLiteStore is the SQLite implementation of model.Store.
type SQLiteStore struct {
	db *sql.DB
}

var _ model.Store = (*SQLiteStore)(nil)

// StoreConfig selects the database a store opens.
type StoreConfig struct {
	// Path is the database file. Empty means a new in-memory database.
	Path string

	// InitSchema runs schema.sql after opening a file.
	// In-memory databases always get the schema.
	InitSchema bool
}

// NewSQLiteStore returns a store over a fresh in-memory database.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(StoreConfig{})
}

// NewSQLiteStoreWithConfig opens the database named by cfg.
// A database file must already exist; InitDatabase creates one.
func NewSQLiteStoreWithConfig(cfg StoreConfig) (*SQLiteStore, error) {
	dsn, initSchema := memoryDSN, true
	if cfg.Path != "" {
		if err := mustExist(cfg.Path); err != nil {
			return nil, fmt.Errorf("%w (run init-db to create it)", err)
		}
		dsn, initSchema = fileDSN(cfg.Path), cfg.InitSchema
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Path == "" {
		db.SetMaxOpenConns(1)
	}
	if initSchema {
		if _, err := db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// InitDatabase creates the database file at path and loads the schema.
// It refuses to touch a file that is already there.
func InitDatabase(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("database file already exists: %s", path)
	}
	db, err := sql.Open("sqlite", fileDSN(path))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	return nil
}

// CompactDatabase folds the write-ahead log back into the database file
// and rebuilds it to release free pages.
func CompactDatabase(path string) error {
	if err := mustExist(path); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", fileDSN(path))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	for _, stmt := range []string{"PRAGMA wal_checkpoint(TRUNCATE)", "VACUUM"} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// mustExist keeps SQLite from quietly creating a missing file.
func mustExist(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("database file does not exist: %s", path)
	}
	return nil
}

// fileDSN sets the pragmas in the DSN so every pooled connection gets them.
func fileDSN(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)"
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// indexTables are the tables reported by TableStats.
var indexTables = []string{"sources", "declarations", "failures", "work"}

// TableStats returns the row count of each index table.
func (s *SQLiteStore) TableStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(indexTables))
	for _, table := range indexTables {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

// Times are stored as RFC 3339 text in UTC, which sorts correctly as text.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
