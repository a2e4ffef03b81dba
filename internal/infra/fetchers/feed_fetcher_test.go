package fetchers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFeedURL_BlocksInternalTargets(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"localhost", "http://localhost/feed.csv"},
		{"loopback ip", "http://127.0.0.1:8080/feed.csv"},
		{"aws metadata", "http://169.254.169.254/latest/meta-data/"},
		{"gcp metadata host", "http://metadata.google.internal/computeMetadata/v1/"},
		{"private class a", "http://10.0.0.5/feed.csv"},
		{"private class c", "http://192.168.1.1/feed.csv"},
		{"file scheme", "file:///etc/passwd"},
		{"ftp scheme", "ftp://example.com/feed.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validateFeedURL(tt.url))
		})
	}
}

func TestValidateFeedURL_AllowsPublicAddress(t *testing.T) {
	assert.NoError(t, validateFeedURL("https://8.8.8.8/feed.csv.gz"))
}

func TestFeedFetcher_RejectsBlockedURLBeforeDialing(t *testing.T) {
	f := NewFeedFetcher(0)

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/feed.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "scans/abc/123.json"
	payload := []byte(`{"results":[]}`)

	require.NoError(t, store.Put(ctx, key, payload))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.Error(t, err)
}

func TestFileStore_DeleteMissingIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "scans/never/seen.json"))
}

func TestFileStore_RejectsTraversalKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"../outside.json", "/etc/passwd", "a/../../b.json"} {
		assert.Error(t, store.Put(ctx, key, []byte("x")), key)
	}
}
