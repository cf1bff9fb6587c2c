package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// HTTPOptions tunes the HTTP clients used for upstream APIs.
type HTTPOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
}

// apiClient is the shared transport of the upstream API clients: one
// http.Client with a per-request timeout and a token-bucket rate limiter.
type apiClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newAPIClient(opts HTTPOptions) *apiClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &apiClient{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// do sends a request and returns the response when the status is 2xx. Any
// transport failure or other status wraps core.ErrUpstreamUnavailable.
func (c *apiClient) do(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", method, url, err, core.ErrUpstreamUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s %s: HTTP %d: %s: %w", method, url, resp.StatusCode, body, core.ErrUpstreamUnavailable)
	}
	return resp, nil
}

// getJSON decodes the body of a successful GET into out.
func (c *apiClient) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, url, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response of %s: %v: %w", url, err, core.ErrMalformedData)
	}
	return nil
}

// bearerToken fetches an anonymous registry token from authURL.
func (c *apiClient) bearerToken(ctx context.Context, authURL string) (string, error) {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.getJSON(ctx, authURL, map[string]string{"Content-Type": "application/json"}, &body); err != nil {
		return "", fmt.Errorf("fetching registry token: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("registry token response from %s has no token: %w", authURL, core.ErrMalformedData)
	}
	return body.Token, nil
}
