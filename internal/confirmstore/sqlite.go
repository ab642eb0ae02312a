package confirmstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/semfilter/internal/canonical"
	"github.com/roach88/semfilter/internal/filterir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added expiry index for purge-on-read
const currentSchemaVersion = 1

// SQLite is a durable Store backed by a SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite creates or opens the store at path. Applies required pragmas
// and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return newSQLite(db, opts...), nil
}

// newSQLite wraps an already configured database.
func newSQLite(db *sql.DB, opts ...Option) *SQLite {
	o := buildOptions(opts)
	return &SQLite{db: db, now: o.now}
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put implements Store.
func (s *SQLite) Put(ctx context.Context, session string, c filterir.Confirmation, expiresAt time.Time) error {
	if err := checkPut(session, c); err != nil {
		return err
	}

	terms := make([]any, len(c.Terms))
	for i, t := range c.Terms {
		terms[i] = t
	}
	termsJSON, err := canonical.Marshal(terms)
	if err != nil {
		return fmt.Errorf("put confirmation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO confirmations (session_id, token, terms, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, token) DO UPDATE SET
			terms = excluded.terms,
			expires_at = excluded.expires_at
	`, session, c.Token, string(termsJSON), expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("put confirmation: %w", err)
	}
	return nil
}

// Snapshot implements Store. Expired rows of every session are purged
// first.
func (s *SQLite) Snapshot(ctx context.Context, session string) ([]filterir.Confirmation, error) {
	now := s.now().Unix()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM confirmations WHERE expires_at <= ?`, now); err != nil {
		return nil, fmt.Errorf("purge expired confirmations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT token, terms FROM confirmations
		WHERE session_id = ? AND expires_at > ?
		ORDER BY id ASC
	`, session, now)
	if err != nil {
		return nil, fmt.Errorf("query confirmations: %w", err)
	}
	defer rows.Close()

	out := []filterir.Confirmation{}
	for rows.Next() {
		var (
			tok       string
			termsJSON string
		)
		if err := rows.Scan(&tok, &termsJSON); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		var terms []string
		if err := json.Unmarshal([]byte(termsJSON), &terms); err != nil {
			return nil, fmt.Errorf("decode terms of session %s: %w", session, err)
		}
		out = append(out, filterir.Confirmation{Token: tok, Terms: terms})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmations: %w", err)
	}
	return out, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the expiry index used by the purge in Snapshot.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_confirmations_expiry
		ON confirmations(expires_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
