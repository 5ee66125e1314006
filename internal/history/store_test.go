package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndGetRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := Record{
		ID:         "rec-1",
		CreatedAt:  time.Now(),
		Backend:    "rules",
		Risk:       "safe",
		Ciphertext: []byte("opaque-ciphertext"),
		Nonce:      []byte("opaque-nonce"),
	}
	require.NoError(t, s.Append(ctx, rec))

	got, ok, err := s.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Ciphertext, got.Ciphertext)
	require.Equal(t, rec.Nonce, got.Nonce)
	require.Equal(t, rec.Backend, got.Backend)
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, Record{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Backend:   "rules",
			Risk:      "safe",
			Ciphertext: []byte("x"),
			Nonce:      []byte("y"),
		}))
	}

	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "c", entries[0].ID)
	require.Equal(t, "a", entries[2].ID)
}

func TestDeletePurgesIndexAndBody(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, Record{ID: "rec-1", CreatedAt: time.Now(), Backend: "rules", Risk: "safe", Ciphertext: []byte("x"), Nonce: []byte("y")}))
	require.NoError(t, s.Delete(ctx, "rec-1"))

	_, ok, err := s.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.False(t, ok)

	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPurgeAllRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, s.Append(ctx, Record{ID: id, CreatedAt: time.Now(), Backend: "rules", Risk: "safe", Ciphertext: []byte("x"), Nonce: []byte("y")}))
	}
	require.NoError(t, s.PurgeAll(ctx))

	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}
