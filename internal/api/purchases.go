package api

import (
	"context"
	"net/http"
)

// RegisterPurchase records one purchase unit and returns the server-issued
// purchase id. The ledger is one row per unit; quantities are expressed by
// calling this once per unit. Protected.
func (c *Client) RegisterPurchase(ctx context.Context, req PurchaseRequest) (string, error) {
	if _, err := c.requireToken(); err != nil {
		return "", err
	}

	var resp struct {
		CompraID string `json:"compra_id"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoints.Purchases+"/registrar", req, &resp, true); err != nil {
		return "", err
	}
	return resp.CompraID, nil
}

// ListPurchases returns the caller's purchase history. The service expects
// an empty JSON object POSTed, not a GET. Protected.
func (c *Client) ListPurchases(ctx context.Context) ([]Purchase, error) {
	if _, err := c.requireToken(); err != nil {
		return nil, err
	}

	var resp struct {
		Compras []Purchase `json:"compras"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoints.Purchases+"/listar", struct{}{}, &resp, true); err != nil {
		return nil, err
	}
	return resp.Compras, nil
}
