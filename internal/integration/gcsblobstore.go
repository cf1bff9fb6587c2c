package integration

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// GCSBlobStore reads CI artifacts from a Google Cloud Storage bucket.
type GCSBlobStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

var _ core.BlobStore = (*GCSBlobStore)(nil)

// NewGCSBlobStore opens bucket. With an empty credentialsFile the client
// is unauthenticated, which is enough for public CI result buckets.
func NewGCSBlobStore(ctx context.Context, bucket, credentialsFile string) (*GCSBlobStore, error) {
	opts := []option.ClientOption{option.WithoutAuthentication()}
	if credentialsFile != "" {
		opts = []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSBlobStore{client: client, bucket: client.Bucket(bucket)}, nil
}

// Close releases the underlying client.
func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}

// Fetch reads the whole object at path.
func (s *GCSBlobStore) Fetch(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %s: %w", path, core.ErrNotFound)
		}
		return nil, fmt.Errorf("opening object %s: %v: %w", path, err, core.ErrUpstreamUnavailable)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %v: %w", path, err, core.ErrUpstreamUnavailable)
	}
	return data, nil
}

// ListDirectories returns the immediate sub-prefixes of prefix, each ending in "/".
func (s *GCSBlobStore) ListDirectories(ctx context.Context, prefix string) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var dirs []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing directories under %s: %v: %w", prefix, err, core.ErrUpstreamUnavailable)
		}
		if attrs.Prefix != "" {
			dirs = append(dirs, attrs.Prefix)
		}
	}
	return dirs, nil
}

// ListFilteredFiles returns the objects under prefix whose remaining name
// matches the glob pattern. Matching runs server side.
func (s *GCSBlobStore) ListFilteredFiles(ctx context.Context, prefix, pattern string) ([]core.BlobFile, error) {
	q := &storage.Query{Prefix: prefix, MatchGlob: prefix + pattern}
	if err := q.SetAttrSelection([]string{"Name", "Size"}); err != nil {
		return nil, fmt.Errorf("selecting object attributes: %w", err)
	}
	it := s.bucket.Objects(ctx, q)
	var files []core.BlobFile
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s%s: %v: %w", prefix, pattern, err, core.ErrUpstreamUnavailable)
		}
		files = append(files, core.BlobFile{Name: attrs.Name, Size: attrs.Size})
	}
	return files, nil
}
