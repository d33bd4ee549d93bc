package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "smartmarks:session:abc", SessionKey("abc"))
	assert.Equal(t, "smartmarks:snapshot:u1:3", SnapshotKey("u1", 3))
	assert.Equal(t, "smartmarks:snapgen:u1", SnapshotGenKey("u1"))
}

// newTestStore connects to SMARTMARKS_TEST_REDIS_ADDR or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("SMARTMARKS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SMARTMARKS_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	s := NewStore(client)
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := domain.Session{
		ID:        ulid.Make().String(),
		UserID:    "u1",
		Email:     "u1@example.com",
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveSession(ctx, sess, time.Minute))

	got, found, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, s.DeleteSession(ctx, sess.ID))
	_, found, err = s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Error(t, s.SaveSession(ctx, sess, 0))
}

func TestSnapshotCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := "owner-" + ulid.Make().String()

	gen, err := s.SnapshotGeneration(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, gen)

	_, found, err := s.GetSnapshot(ctx, owner, gen)
	require.NoError(t, err)
	assert.False(t, found)

	items := []domain.Bookmark{{ID: "b2", OwnerID: owner, URL: "https://b", Title: "b"}}
	require.NoError(t, s.PutSnapshot(ctx, owner, gen, items, time.Minute))

	got, found, err := s.GetSnapshot(ctx, owner, gen)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b2", got[0].ID)

	require.NoError(t, s.InvalidateSnapshot(ctx, owner))
	next, err := s.SnapshotGeneration(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	_, found, err = s.GetSnapshot(ctx, owner, next)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.PutSnapshot(ctx, owner, next, nil, time.Minute))
	got, found, err = s.GetSnapshot(ctx, owner, next)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)

	require.NoError(t, s.FlushSnapshots(ctx))
	_, found, err = s.GetSnapshot(ctx, owner, next)
	require.NoError(t, err)
	assert.False(t, found)

	kept, err := s.SnapshotGeneration(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, next, kept, "flush must not reset generations")
}
