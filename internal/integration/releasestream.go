package integration

import (
	"context"
	"fmt"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// ReleaseStreamSource reads accepted platform releases from the release
// controller, which reports them as {"stream": ["4.18.9", ...]}.
type ReleaseStreamSource struct {
	api    *apiClient
	url    string
	stream string
}

var _ core.PlatformReleaseSource = (*ReleaseStreamSource)(nil)

// NewReleaseStreamSource creates a source reading stream from url.
func NewReleaseStreamSource(url, stream string, opts HTTPOptions) *ReleaseStreamSource {
	return &ReleaseStreamSource{api: newAPIClient(opts), url: url, stream: stream}
}

// ListPlatformReleases returns the accepted releases of the configured stream.
func (s *ReleaseStreamSource) ListPlatformReleases(ctx context.Context) ([]string, error) {
	var streams map[string][]string
	if err := s.api.getJSON(ctx, s.url, map[string]string{"Accept": "application/json"}, &streams); err != nil {
		return nil, fmt.Errorf("listing platform releases: %w", err)
	}
	releases, ok := streams[s.stream]
	if !ok {
		return nil, fmt.Errorf("release stream %q not found: %w", s.stream, core.ErrMalformedData)
	}
	return releases, nil
}
