package api

import (
	"context"
	"errors"
	"net/http"
)

type credentials struct {
	TenantID string `json:"tenant_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates against the auth service and returns the session
// token. A 200 without a token is treated as a server error.
func (c *Client) Login(ctx context.Context, tenantID, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, c.endpoints.Auth+"/login",
		credentials{TenantID: tenantID, Username: username, Password: password}, &resp, false)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("unexpected response from server: no token")
	}
	return resp.Token, nil
}

// Register creates a new account. Success is any 2xx; the caller logs in
// separately afterwards.
func (c *Client) Register(ctx context.Context, tenantID, username, password string) error {
	return c.do(ctx, http.MethodPost, c.endpoints.Auth+"/register",
		credentials{TenantID: tenantID, Username: username, Password: password}, nil, false)
}
