package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/gridcore/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions, tracked in PRAGMA user_version:
//
//	1 - transactions table with the (origin, seq) index
//	2 - journal_meta records the versions that created the journal
const currentSchemaVersion = 2

// ErrUnsupportedVersion is returned for a journal, or an entry in one,
// written with an operation format this build cannot decode.
var ErrUnsupportedVersion = errors.New("unsupported operations version")

// Store is the durable journal of committed transactions.
type Store struct {
	db *sql.DB
}

// Meta describes the build that created a journal.
type Meta struct {
	OperationsVersion string
	EngineVersion     string
}

// Open creates or opens the journal at path. ":memory:" opens a private
// in-memory journal.
//
// Connections are opened in WAL mode with synchronous=NORMAL, a 5 second
// busy timeout and foreign keys on. A journal created with a different
// operations version is refused with ErrUnsupportedVersion.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal %s: %w", path, err)
	}

	// One connection: a single writer, and an in-memory journal lives and
	// dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.checkMeta(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// dsn adds the connection pragmas as go-sqlite3 DSN parameters so every
// pooled connection gets them.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Meta returns the versions recorded when the journal was created.
func (s *Store) Meta(ctx context.Context) (Meta, error) {
	var m Meta
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM journal_meta`)
	if err != nil {
		return Meta{}, fmt.Errorf("read journal meta: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Meta{}, fmt.Errorf("scan journal meta: %w", err)
		}
		switch key {
		case "operations_version":
			m.OperationsVersion = value
		case "engine_version":
			m.EngineVersion = value
		}
	}
	return m, rows.Err()
}

// checkMeta stamps a new journal with this build's versions, or refuses
// one stamped with another operations version.
func (s *Store) checkMeta(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO journal_meta (key, value) VALUES
			('operations_version', ?),
			('engine_version', ?)
	`, ir.OperationsVersion, ir.EngineVersion)
	if err != nil {
		return fmt.Errorf("stamp journal meta: %w", err)
	}

	m, err := s.Meta(ctx)
	if err != nil {
		return err
	}
	if m.OperationsVersion != ir.OperationsVersion {
		return fmt.Errorf("journal written with operations version %q, want %q: %w",
			m.OperationsVersion, ir.OperationsVersion, ErrUnsupportedVersion)
	}
	return nil
}

// migrate applies the schema and any pending migrations. Idempotent.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	migrations := []func(*sql.DB) error{migrateToV1, migrateToV2}
	for v := version; v < currentSchemaVersion; v++ {
		if err := migrations[v](s.db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the origin index for journals created before it was
// part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transactions_origin
		ON transactions(origin, seq)
	`)
	return err
}

// migrateToV2 stamps a journal created before journal_meta existed. Its
// rows all carry their own operations version, so the first row's is used.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO journal_meta (key, value)
		SELECT 'operations_version', operations_version
		FROM transactions ORDER BY seq ASC LIMIT 1
	`)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
