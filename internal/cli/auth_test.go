package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAuth(t *testing.T, token string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/login":
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			if creds["password"] == "wrong" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"message": "Credenciales inválidas"})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"token": token})
		case "/register":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"mensaje": "Usuario creado"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestLoginThenWhoami(t *testing.T) {
	auth, _ := fakeAuth(t, "tok-123")
	cfg := writeTestConfig(t, auth.URL, "", "", "")

	out, err := runCommand(t, cfg, "login", "maria", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as maria")

	out, err = runCommand(t, cfg, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "maria (tenant acme)")
}

func TestLoginRejectedShowsServerMessage(t *testing.T) {
	auth, _ := fakeAuth(t, "tok-123")
	cfg := writeTestConfig(t, auth.URL, "", "", "")

	_, err := runCommand(t, cfg, "login", "maria", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Credenciales inválidas")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLogoutClearsSession(t *testing.T) {
	auth, _ := fakeAuth(t, "tok-123")
	cfg := writeTestConfig(t, auth.URL, "", "", "")

	_, err := runCommand(t, cfg, "login", "maria", "--password", "secret1", "--remember")
	require.NoError(t, err)

	out, err := runCommand(t, cfg, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = runCommand(t, cfg, "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestRegisterValidatesLocally(t *testing.T) {
	auth, hits := fakeAuth(t, "tok-123")
	cfg := writeTestConfig(t, auth.URL, "", "", "")

	_, err := runCommand(t, cfg, "register", "maria", "--password", "short", "--confirm", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6 characters")

	_, err = runCommand(t, cfg, "register", "maria", "--password", "secret1", "--confirm", "secret2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match")

	// Local validation failures never reach the service.
	assert.Equal(t, int32(0), hits.Load())

	out, err := runCommand(t, cfg, "register", "maria", "--password", "secret1", "--confirm", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Account maria created")
	assert.Equal(t, int32(1), hits.Load())
}
