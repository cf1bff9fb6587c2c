package core

import "context"

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// BlobFile is one object returned by a filtered listing.
type BlobFile struct {
	Name string
	Size int64
}

// BlobStore reads CI build artifacts. Fetch wraps ErrNotFound when the
// object does not exist.
type BlobStore interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	ListDirectories(ctx context.Context, prefix string) ([]string, error)
	ListFilteredFiles(ctx context.Context, prefix, pattern string) ([]BlobFile, error)
}

// CatalogEntry is one published operator bundle.
type CatalogEntry struct {
	Version         string `json:"version"`
	PlatformVersion string `json:"ocp_version"`
	Channel         string `json:"channel_name"`
	Package         string `json:"package"`
}

// CatalogPage is one page of a bundle query.
type CatalogPage struct {
	Entries []CatalogEntry `json:"data"`
	Total   int            `json:"total"`
}

// CatalogClient queries the operator bundle catalog.
type CatalogClient interface {
	QueryBundles(ctx context.Context, filter string, page, pageSize int) (CatalogPage, error)
}

// PullRequest is a closed pull request on the tracked repository.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// PullRequestLister lists closed pull requests against a base branch.
type PullRequestLister interface {
	ListClosedPullRequests(ctx context.Context, baseBranch string) ([]PullRequest, error)
}

// ComponentReleaseSource reports the published component releases and the
// digest of the latest development bundle.
type ComponentReleaseSource interface {
	ListReleaseTags(ctx context.Context) ([]string, error)
	BundleDigest(ctx context.Context) (string, error)
}

// PlatformReleaseSource reports the accepted platform releases.
type PlatformReleaseSource interface {
	ListPlatformReleases(ctx context.Context) ([]string, error)
}
