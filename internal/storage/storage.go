// Package storage provides the local client-state store for the EduCloud CLI.
//
// All persisted client state (cart snapshot, cached sessions) lives in a
// single SQLite database split into two scopes: a durable scope that survives
// restarts and a volatile scope tied to one terminal session. The store is a
// cache, not a ledger - corrupt entries are discarded by callers, never
// repaired.
package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added partial index on kv.session_id for volatile purges
const currentSchemaVersion = 1

// Scope selects which of the two storage scopes a key lives in.
type Scope string

const (
	// ScopeVolatile holds state for the current terminal session only.
	// Entries are purged when a different session opens the store.
	ScopeVolatile Scope = "volatile"

	// ScopeDurable holds state that survives restarts.
	ScopeDurable Scope = "durable"
)

// Store is the SQLite-backed dual-scope key/value store.
// Uses WAL mode for concurrent read access.
type Store struct {
	db        *sql.DB
	sessionID string
}

// Open creates or opens the client-state database at the given path.
// Applies required pragmas and migrations automatically, then purges
// volatile entries left behind by other terminal sessions.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
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

	s := &Store{db: db, sessionID: currentSessionID()}

	if err := s.purgeStaleVolatile(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to purge stale volatile entries: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SessionID returns the terminal session identifier owning the volatile scope.
func (s *Store) SessionID() string {
	return s.sessionID
}

// currentSessionID identifies the terminal session the volatile scope belongs
// to. EDUCLOUD_SESSION wins when set (shell integrations, tests); otherwise
// the parent process id stands in for the login shell.
func currentSessionID() string {
	if id := os.Getenv("EDUCLOUD_SESSION"); id != "" {
		return id
	}
	return strconv.Itoa(os.Getppid())
}

// purgeStaleVolatile drops volatile entries owned by other terminal sessions.
// This is what makes the volatile scope "session storage": a new session
// starts with an empty volatile scope.
func (s *Store) purgeStaleVolatile() error {
	_, err := s.db.Exec(
		`DELETE FROM kv WHERE scope = ? AND session_id != ?`,
		string(ScopeVolatile), s.sessionID,
	)
	return err
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
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the volatile-session index for databases created before v1.
// New databases get this from schema.sql.
func migrateToV1(db *sql.DB) error {
	// CREATE INDEX IF NOT EXISTS is safe - no-op if index exists
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_kv_session
		ON kv(session_id) WHERE scope = 'volatile'
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
