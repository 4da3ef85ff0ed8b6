package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinIO_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinIO_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	ctx := context.Background()

	store, err := NewMinIOFromConfig(ctx, Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "test-sheetsearch",
		Prefix:    "exports",
	})
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	require.NoError(t, store.Put(ctx, "search_results_t.csv", strings.NewReader("a\n1\n"), 4))

	rc, info, err := store.Open(ctx, "search_results_t.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "a\n1\n", string(data))
	assert.Equal(t, int64(4), info.Size)

	objs, err := store.List(ctx)
	require.NoError(t, err)
	var names []string
	for _, o := range objs {
		names = append(names, o.Name)
	}
	assert.Contains(t, names, "search_results_t.csv")

	require.NoError(t, store.Delete(ctx, "search_results_t.csv"))
	_, _, err = store.Open(ctx, "search_results_t.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}
