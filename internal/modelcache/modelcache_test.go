package modelcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha256Of(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestGetDownloadsAndVerifies(t *testing.T) {
	payload := []byte("pretend-model-weights")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := New(dir, 0, []RegistryEntry{
		{ModelID: "tiny", Variant: "q4", URL: srv.URL, SHA256: sha256Of(payload), Size: int64(len(payload))},
	})
	require.NoError(t, err)

	artifact, err := c.Get(context.Background(), "tiny", "q4")
	require.NoError(t, err)
	assert.Equal(t, sha256Of(payload), artifact.SHA256)

	// Second call should hit the on-disk verified path, not re-download.
	artifact2, err := c.Get(context.Background(), "tiny", "q4")
	require.NoError(t, err)
	assert.Equal(t, artifact.Path, artifact2.Path)
}

func TestGetQuarantinesOnDigestMismatch(t *testing.T) {
	payload := []byte("corrupted-on-the-wire")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := New(dir, 0, []RegistryEntry{
		{ModelID: "tiny", Variant: "q4", URL: srv.URL, SHA256: "0000000000000000000000000000000000000000000000000000000000000", Size: int64(len(payload))},
	})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "tiny", "q4")
	require.ErrorIs(t, err, ErrDigestMismatch)

	quarantined, statErr := filepath.Glob(filepath.Join(dir, "tiny", "*.quarantined"))
	require.NoError(t, statErr)
	require.NotEmpty(t, quarantined)
}

func TestGetUnknownModelErrors(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 0, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "nope", "q4")
	require.Error(t, err)
}

func TestGetDedupesConcurrentDownloads(t *testing.T) {
	payload := []byte("weights")
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := New(dir, 0, []RegistryEntry{
		{ModelID: "tiny", Variant: "q4", URL: srv.URL, SHA256: sha256Of(payload), Size: int64(len(payload))},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), "tiny", "q4")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, hits, 2, "singleflight should collapse concurrent downloads to (at most) one or two requests")
}
