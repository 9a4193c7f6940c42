// Package session caches the authenticated session locally so commands can
// answer "is a user logged in, and as whom" without a round trip.
//
// The token and user profile live in one of two storage scopes chosen at login
// time: "remember me" puts them in the durable scope, otherwise they go in the
// volatile scope and vanish with the terminal session. Reads check volatile
// first, durable second; the first token found wins.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/educloud/educloud-cli/internal/storage"
)

// nowFunc is swapped out in tests for deterministic expiry checks.
var nowFunc = time.Now

// Storage keys, duplicated across both scopes.
const (
	TokenKey = "educloud_token"
	UserKey  = "educloud_user"
)

// Session is the active authenticated identity.
type Session struct {
	Token    string
	Username string
	TenantID string
}

// User is the profile half of a session, persisted separately from the token.
// Token and user are always written and cleared together.
type User struct {
	Username string `json:"username"`
	TenantID string `json:"tenant_id"`
}

// Cache reads and writes the session through the local storage store and
// notifies subscribers when the session changes.
type Cache struct {
	backing *storage.Store
	subs    []func()
}

// NewCache creates a session cache over the given storage store.
func NewCache(backing *storage.Store) *Cache {
	return &Cache{backing: backing}
}

// Login stores the session. remember selects the durable scope; otherwise the
// volatile scope is used and the session ends with the terminal session.
// Either both keys are written or neither: the profile is serialized before
// anything is stored, and a failed user write rolls the token back out.
// Subscribers are notified after a successful write.
func (c *Cache) Login(sess Session, remember bool) error {
	scope := storage.ScopeVolatile
	if remember {
		scope = storage.ScopeDurable
	}

	profile, err := json.Marshal(User{Username: sess.Username, TenantID: sess.TenantID})
	if err != nil {
		return fmt.Errorf("serialize user profile: %w", err)
	}

	if err := c.backing.Put(scope, TokenKey, sess.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := c.backing.Put(scope, UserKey, string(profile)); err != nil {
		// Keep the both-or-neither invariant: a token without a profile is
		// worse than no session at all.
		_ = c.backing.Delete(scope, TokenKey)
		return fmt.Errorf("store user profile: %w", err)
	}

	c.notify()
	return nil
}

// Logout removes the token and user keys from both scopes unconditionally.
// The scope used at login time is not tracked, so both are cleared, then
// subscribers are notified.
func (c *Cache) Logout() error {
	var firstErr error
	for _, scope := range []storage.Scope{storage.ScopeVolatile, storage.ScopeDurable} {
		for _, key := range []string{TokenKey, UserKey} {
			if err := c.backing.Delete(scope, key); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	c.notify()
	return firstErr
}

// Token returns the cached token, volatile scope first. A missing token is
// not an error: ok is false.
func (c *Cache) Token() (token string, ok bool) {
	token, ok, err := c.backing.GetWithFallback(TokenKey)
	if err != nil {
		return "", false
	}
	return token, ok
}

// User returns the cached profile, volatile scope first. Absent or unparsable
// profiles yield ok=false; reads never fail the caller.
func (c *Cache) User() (User, bool) {
	raw, ok, err := c.backing.GetWithFallback(UserKey)
	if err != nil || !ok {
		return User{}, false
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, false
	}
	return u, true
}

// Subscribe registers fn to run whenever the session changes (login or
// logout). Callbacks run synchronously in subscription order and must be
// idempotent pure re-reads of Token/User. The returned func unsubscribes.
func (c *Cache) Subscribe(fn func()) (unsubscribe func()) {
	c.subs = append(c.subs, fn)
	idx := len(c.subs) - 1
	return func() {
		c.subs[idx] = nil
	}
}

func (c *Cache) notify() {
	for _, fn := range c.subs {
		if fn != nil {
			fn()
		}
	}
}

// Claims returns the unverified JWT claims of the cached token, for display
// fallback and expiry warnings only. Verification belongs to the backend; a
// token that does not parse as a JWT is still a valid opaque token, so ok is
// false without any error.
func (c *Cache) Claims() (jwt.MapClaims, bool) {
	token, ok := c.Token()
	if !ok {
		return nil, false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// TokenExpired reports whether the cached token carries an exp claim in the
// past. Opaque (non-JWT) tokens and tokens without exp are never reported
// expired.
func (c *Cache) TokenExpired() bool {
	claims, ok := c.Claims()
	if !ok {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(nowFunc())
}
