package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Search types understood by the search service's tipo parameter.
const (
	SearchTypeAutocomplete = "autocomplete"
	SearchTypeFull         = "completo"
)

// Search queries the advanced-search service. searchType selects the ranking
// mode (autocomplete for as-you-type suggestions). Works anonymously.
func (c *Client) Search(ctx context.Context, query, searchType string, limit int) (SearchResult, error) {
	u := fmt.Sprintf("%s/buscar-avanzado?q=%s&tipo=%s&limit=%d",
		c.endpoints.Search, url.QueryEscape(query), url.QueryEscape(searchType), limit)

	var result SearchResult
	if err := c.do(ctx, http.MethodGet, u, nil, &result, false); err != nil {
		return SearchResult{}, err
	}
	return result, nil
}
