package integration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// RegistryEndpoints locates the component image tags and the development
// bundle manifest.
type RegistryEndpoints struct {
	TagsURL           string
	AuthURL           string
	BundleManifestURL string
	BundleAuthURL     string
}

// RegistryReleaseSource reads component releases from container registries.
type RegistryReleaseSource struct {
	api       *apiClient
	endpoints RegistryEndpoints
}

var _ core.ComponentReleaseSource = (*RegistryReleaseSource)(nil)

// NewRegistryReleaseSource creates a release source for endpoints.
func NewRegistryReleaseSource(endpoints RegistryEndpoints, opts HTTPOptions) *RegistryReleaseSource {
	return &RegistryReleaseSource{api: newAPIClient(opts), endpoints: endpoints}
}

// ListReleaseTags returns every tag of the component image.
func (s *RegistryReleaseSource) ListReleaseTags(ctx context.Context) ([]string, error) {
	token, err := s.api.bearerToken(ctx, s.endpoints.AuthURL)
	if err != nil {
		return nil, err
	}
	var body struct {
		Tags []string `json:"tags"`
	}
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + token,
	}
	if err := s.api.getJSON(ctx, s.endpoints.TagsURL, headers, &body); err != nil {
		return nil, fmt.Errorf("listing component image tags: %w", err)
	}
	return body.Tags, nil
}

// BundleDigest returns the digest of the latest development bundle. The
// bundle is an OCI index, so only the manifest headers are requested.
func (s *RegistryReleaseSource) BundleDigest(ctx context.Context) (string, error) {
	token, err := s.api.bearerToken(ctx, s.endpoints.BundleAuthURL)
	if err != nil {
		return "", err
	}
	resp, err := s.api.do(ctx, http.MethodHead, s.endpoints.BundleManifestURL, map[string]string{
		"Accept":        "application/vnd.oci.image.index.v1+json",
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return "", fmt.Errorf("reading bundle manifest: %w", err)
	}
	_ = resp.Body.Close()

	digest := resp.Header.Get("Docker-Content-Digest")
	if digest == "" {
		return "", fmt.Errorf("bundle manifest response has no Docker-Content-Digest header: %w", core.ErrMalformedData)
	}
	return digest, nil
}
