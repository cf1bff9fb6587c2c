package integration

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// CatalogHTTPClient queries the container catalog bundles API.
type CatalogHTTPClient struct {
	api     *apiClient
	baseURL string
}

var _ core.CatalogClient = (*CatalogHTTPClient)(nil)

// NewCatalogHTTPClient creates a client for the catalog at baseURL, e.g.
// https://catalog.redhat.com/api/containers/v1.
func NewCatalogHTTPClient(baseURL string, opts HTTPOptions) *CatalogHTTPClient {
	return &CatalogHTTPClient{
		api:     newAPIClient(opts),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// QueryBundles fetches one page of operator bundles matching filter.
func (c *CatalogHTTPClient) QueryBundles(ctx context.Context, filter string, page, pageSize int) (core.CatalogPage, error) {
	q := url.Values{}
	q.Set("filter", filter)
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	u := c.baseURL + "/operators/bundles?" + q.Encode()

	var out core.CatalogPage
	if err := c.api.getJSON(ctx, u, map[string]string{"Accept": "application/json"}, &out); err != nil {
		return core.CatalogPage{}, fmt.Errorf("querying catalog bundles: %w", err)
	}
	return out, nil
}
