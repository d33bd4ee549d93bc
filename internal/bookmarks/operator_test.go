package bookmarks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportSkipsInvalidEntries(t *testing.T) {
	f := newFixture(t)
	op := NewOperator(f.store, f.cache, logger.Nop())

	res, err := op.Import(context.Background(), "alice", []CreateInput{
		{URL: "https://github.com", Title: "GitHub"},
		{URL: "not a url", Title: "broken"},
		{URL: "https://reddit.com", Title: ""},
		{URL: "https://go.dev", Title: "Go", OwnerID: "mallory"},
	})
	require.NoError(t, err)

	require.Len(t, res.Imported, 2)
	for _, b := range res.Imported {
		assert.Equal(t, "alice", b.OwnerID)
	}
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 1, res.Skipped[0].Index)
	assert.Equal(t, domain.MsgInvalidURL, res.Skipped[0].Reason)
	assert.Equal(t, domain.MsgFieldsRequired, res.Skipped[1].Reason)

	assert.Len(t, f.rows(t, "alice"), 2)
	assert.Equal(t, []string{"alice"}, f.cache.invalidated)
}

func TestImportRejectsEmptyOwner(t *testing.T) {
	f := newFixture(t)
	_, err := NewOperator(f.store, nil, logger.Nop()).Import(context.Background(), "", nil)
	assert.ErrorIs(t, err, sqlite.ErrPolicyViolation)
}

func TestRetitlePublishesUpdate(t *testing.T) {
	broker := feed.NewMemoryBroker(logger.Nop())
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "smartmarks.db"), broker, logger.Nop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	op := NewOperator(store, nil, logger.Nop())
	res, err := op.Import(ctx, "alice", []CreateInput{{URL: "https://go.dev", Title: "Go"}})
	require.NoError(t, err)
	id := res.Imported[0].ID

	sub, err := broker.Subscribe(ctx, feed.OwnerFilter("alice"))
	require.NoError(t, err)
	defer sub.Close()

	b, err := op.Retitle(ctx, "alice", id, "  The Go Programming Language ")
	require.NoError(t, err)
	assert.Equal(t, "The Go Programming Language", b.Title)

	select {
	case ev := <-sub.Events():
		upd, ok := ev.(feed.Update)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, id, upd.New.ID)
		assert.Equal(t, "The Go Programming Language", upd.New.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("no update event")
	}

	_, err = op.Retitle(ctx, "bob", id, "hijack")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = op.Retitle(ctx, "alice", id, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
