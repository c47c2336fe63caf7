package session

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// exerciseStore runs the Store contract against a backend: round-trip,
// partial update with set-merged collections, delete, and the not-found
// sentinel.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	s := New("web_url", "https://example.com")
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "web_url", got.InputType)
	assert.Equal(t, StatusProcessing, got.Status)

	updated, err := store.Update(ctx, s.ID, Update{
		Status:            Stat(StatusReady),
		ContextReady:      Bool(true),
		ActiveCollections: []string{"web-example-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, updated.Status)
	assert.True(t, updated.ContextReady)

	// A second update merges collections instead of replacing them.
	updated, err = store.Update(ctx, s.ID, Update{
		ActiveCollections: []string{"web-example-1", "pdf-doc-1"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"web-example-1", "pdf-doc-1"}, updated.ActiveCollections)

	// The merged state is what persists.
	got, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"web-example-1", "pdf-doc-1"}, got.ActiveCollections)

	_, err = store.Update(ctx, "missing", Update{Status: Stat(StatusError)})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.Delete(ctx, s.ID), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := New("web_url", "https://example.com")
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	got.Status = StatusError
	got.ActiveCollections = append(got.ActiveCollections, "rogue")

	fresh, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, fresh.Status)
	assert.Empty(t, fresh.ActiveCollections)
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client, "session:test:"))
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "")
	s := New("web_url", "https://example.com")
	require.NoError(t, store.Create(context.Background(), s))
	require.True(t, srv.Exists("session:"+s.ID))
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)

	exerciseStore(t, store)
}
