package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the value stored under (scope, key).
// Absent keys are not an error: ok is false and err is nil.
func (s *Store) Get(scope Scope, key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT value FROM kv WHERE scope = ? AND key = ?`,
		string(scope), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

// GetWithFallback reads key from the volatile scope first, then the durable
// scope. The first non-empty hit wins. This is the read precedence used for
// session lookups: a session-scoped login shadows a remembered one.
func (s *Store) GetWithFallback(key string) (value string, ok bool, err error) {
	for _, scope := range []Scope{ScopeVolatile, ScopeDurable} {
		value, ok, err = s.Get(scope, key)
		if err != nil || ok {
			return value, ok, err
		}
	}
	return "", false, nil
}

// Put writes value under (scope, key), replacing any previous value.
// Volatile writes are stamped with the owning terminal session id.
func (s *Store) Put(scope Scope, key, value string) error {
	sessionID := ""
	if scope == ScopeVolatile {
		sessionID = s.sessionID
	}

	_, err := s.db.Exec(`
		INSERT INTO kv (scope, key, value, session_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET
			value = excluded.value,
			session_id = excluded.session_id,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, string(scope), key, value, sessionID)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete removes (scope, key). Deleting an absent key is a no-op.
func (s *Store) Delete(scope Scope, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM kv WHERE scope = ? AND key = ?`,
		string(scope), key,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", scope, key, err)
	}
	return nil
}
