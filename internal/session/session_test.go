package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educloud/educloud-cli/internal/storage"
)

func newTestCache(t *testing.T) (*Cache, *storage.Store) {
	t.Helper()
	t.Setenv("EDUCLOUD_SESSION", "session-test")

	backing, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })
	return NewCache(backing), backing
}

func testSession() Session {
	return Session{Token: "tok-123", Username: "maria", TenantID: "UNI"}
}

func TestLogin_RememberUsesDurableScopeOnly(t *testing.T) {
	c, backing := newTestCache(t)

	require.NoError(t, c.Login(testSession(), true))

	token, ok, _ := backing.Get(storage.ScopeDurable, TokenKey)
	require.True(t, ok)
	assert.Equal(t, "tok-123", token)
	_, ok, _ = backing.Get(storage.ScopeDurable, UserKey)
	assert.True(t, ok)

	_, ok, _ = backing.Get(storage.ScopeVolatile, TokenKey)
	assert.False(t, ok, "remember=true must not touch the volatile scope")
	_, ok, _ = backing.Get(storage.ScopeVolatile, UserKey)
	assert.False(t, ok)
}

func TestLogin_NoRememberUsesVolatileScopeOnly(t *testing.T) {
	c, backing := newTestCache(t)

	require.NoError(t, c.Login(testSession(), false))

	_, ok, _ := backing.Get(storage.ScopeVolatile, TokenKey)
	assert.True(t, ok)
	_, ok, _ = backing.Get(storage.ScopeDurable, TokenKey)
	assert.False(t, ok, "remember=false must not touch the durable scope")
}

func TestLogout_ClearsBothScopes(t *testing.T) {
	for _, remember := range []bool{true, false} {
		c, backing := newTestCache(t)
		require.NoError(t, c.Login(testSession(), remember))

		require.NoError(t, c.Logout())

		for _, scope := range []storage.Scope{storage.ScopeVolatile, storage.ScopeDurable} {
			for _, key := range []string{TokenKey, UserKey} {
				_, ok, _ := backing.Get(scope, key)
				assert.False(t, ok, "remember=%v: %s/%s should be gone after logout", remember, scope, key)
			}
		}
	}
}

func TestTokenAndUser_Reads(t *testing.T) {
	c, _ := newTestCache(t)

	_, ok := c.Token()
	assert.False(t, ok)
	_, ok = c.User()
	assert.False(t, ok)

	require.NoError(t, c.Login(testSession(), false))

	token, ok := c.Token()
	require.True(t, ok)
	assert.Equal(t, "tok-123", token)

	user, ok := c.User()
	require.True(t, ok)
	assert.Equal(t, User{Username: "maria", TenantID: "UNI"}, user)
}

func TestToken_VolatileShadowsDurable(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Login(Session{Token: "remembered", Username: "a", TenantID: "T"}, true))
	require.NoError(t, c.Login(Session{Token: "this-session", Username: "b", TenantID: "T"}, false))

	token, ok := c.Token()
	require.True(t, ok)
	assert.Equal(t, "this-session", token)
}

func TestUser_UnparsableProfileIsNotFatal(t *testing.T) {
	c, backing := newTestCache(t)
	require.NoError(t, backing.Put(storage.ScopeDurable, UserKey, "{broken"))

	_, ok := c.User()
	assert.False(t, ok)
}

func TestSubscribe_NotifiedOnLoginAndLogout(t *testing.T) {
	c, _ := newTestCache(t)

	var calls int
	unsubscribe := c.Subscribe(func() { calls++ })

	require.NoError(t, c.Login(testSession(), false))
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Logout())
	assert.Equal(t, 2, calls)

	unsubscribe()
	require.NoError(t, c.Login(testSession(), false))
	assert.Equal(t, 2, calls, "unsubscribed callback must not fire")
}

func TestClaims_OpaqueTokenIsNotAnError(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Login(Session{Token: "not-a-jwt", Username: "u", TenantID: "T"}, false))

	_, ok := c.Claims()
	assert.False(t, ok)
	assert.False(t, c.TokenExpired())
}

func TestTokenExpired(t *testing.T) {
	c, _ := newTestCache(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return base }
	t.Cleanup(func() { nowFunc = time.Now })

	makeToken := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "maria",
			"exp": exp.Unix(),
		})
		signed, err := tok.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return signed
	}

	require.NoError(t, c.Login(Session{Token: makeToken(base.Add(time.Hour)), Username: "m", TenantID: "T"}, false))
	assert.False(t, c.TokenExpired())

	require.NoError(t, c.Login(Session{Token: makeToken(base.Add(-time.Hour)), Username: "m", TenantID: "T"}, false))
	assert.True(t, c.TokenExpired())
}
