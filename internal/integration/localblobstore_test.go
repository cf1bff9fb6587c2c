package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

func seedLocalBucket(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestLocalBlobStore(t *testing.T) {
	root := seedLocalBucket(t, map[string]string{
		"pr-logs/pull/1/job/100/finished.json":                       `{"result":"SUCCESS"}`,
		"pr-logs/pull/1/job/100/artifacts/e2e/artifacts/ocp.version": "4.18.9",
		"pr-logs/pull/1/job/101/finished.json":                       `{"result":"FAILURE"}`,
		"pr-logs/pull/2/job/200/build-log.txt":                       "log",
	})
	store := NewLocalBlobStore(root)
	ctx := context.Background()

	t.Run("fetch", func(t *testing.T) {
		data, err := store.Fetch(ctx, "pr-logs/pull/1/job/100/artifacts/e2e/artifacts/ocp.version")
		require.NoError(t, err)
		assert.Equal(t, "4.18.9", string(data))
	})

	t.Run("fetch missing", func(t *testing.T) {
		_, err := store.Fetch(ctx, "pr-logs/nope")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("list directories", func(t *testing.T) {
		dirs, err := store.ListDirectories(ctx, "pr-logs/pull/")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"pr-logs/pull/1/", "pr-logs/pull/2/"}, dirs)
	})

	t.Run("list directories of missing prefix", func(t *testing.T) {
		dirs, err := store.ListDirectories(ctx, "logs/")
		require.NoError(t, err)
		assert.Empty(t, dirs)
	})

	t.Run("list filtered files", func(t *testing.T) {
		files, err := store.ListFilteredFiles(ctx, "pr-logs/pull/1/", "**/finished.json")
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "pr-logs/pull/1/job/100/finished.json", files[0].Name)
		assert.Equal(t, int64(len(`{"result":"SUCCESS"}`)), files[0].Size)
		assert.Equal(t, "pr-logs/pull/1/job/101/finished.json", files[1].Name)
	})

	t.Run("list filtered files of missing prefix", func(t *testing.T) {
		files, err := store.ListFilteredFiles(ctx, "pr-logs/pull/9/", "**/finished.json")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

type countingStore struct {
	core.BlobStore
	fetches int
}

func (c *countingStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	c.fetches++
	return c.BlobStore.Fetch(ctx, name)
}

func TestCachingBlobStore(t *testing.T) {
	root := seedLocalBucket(t, map[string]string{"a/finished.json": "{}"})
	inner := &countingStore{BlobStore: NewLocalBlobStore(root)}
	store := NewCachingBlobStore(inner, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		data, err := store.Fetch(ctx, "a/finished.json")
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	}
	assert.Equal(t, 1, inner.fetches)
	assert.Equal(t, 1, store.Len())

	for i := 0; i < 2; i++ {
		_, err := store.Fetch(ctx, "a/missing.json")
		assert.ErrorIs(t, err, core.ErrNotFound)
	}
	assert.Equal(t, 3, inner.fetches, "failed fetches are not cached")

	files, err := store.ListFilteredFiles(ctx, "a/", "*.json")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
