package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite archive of exported compilation snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
  id              INTEGER PRIMARY KEY,
  file            TEXT NOT NULL,
  seq             INTEGER NOT NULL,
  success         INTEGER NOT NULL,
  source_hash     TEXT NOT NULL,
  compiled_at     TIMESTAMP NOT NULL,
  output          TEXT NOT NULL,
  facts           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  severity        TEXT NOT NULL,
  code            TEXT NOT NULL,
  message         TEXT NOT NULL,
  file            TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  symbol_kind     TEXT,
  symbol_id       TEXT
);

CREATE TABLE IF NOT EXISTS definitions (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  key             TEXT NOT NULL,
  kind            TEXT NOT NULL,
  name            TEXT,
  file            TEXT,
  start_line      INTEGER,
  detail          TEXT NOT NULL,
  UNIQUE(snapshot_id, key)
);

CREATE TABLE IF NOT EXISTS property_usage (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  entity_type     TEXT NOT NULL,
  property        TEXT NOT NULL,
  read_count      INTEGER NOT NULL,
  write_count     INTEGER NOT NULL,
  read_indices    TEXT NOT NULL,
  write_indices   TEXT NOT NULL,
  orphaned        TEXT
);

CREATE INDEX IF NOT EXISTS idx_snapshots_file ON snapshots(file, id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_snapshot ON diagnostics(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON diagnostics(code);
CREATE INDEX IF NOT EXISTS idx_definitions_kind ON definitions(snapshot_id, kind);
CREATE INDEX IF NOT EXISTS idx_property_usage_snapshot ON property_usage(snapshot_id);
`
