package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

func TestNewRejectsIncompleteConfig(t *testing.T) {
	t.Setenv("SMARTMARKS_SESSION_SECRET", "")
	cfg, err := config.Load("")
	require.NoError(t, err)

	_, err = New(context.Background(), cfg, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMARTMARKS_SESSION_SECRET")
}

func TestOpenBackendStandalone(t *testing.T) {
	cfg := &config.Config{DatabasePath: filepath.Join(t.TempDir(), "db", "smartmarks.db")}
	require.True(t, cfg.Standalone())

	b, err := OpenBackend(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "memory", b.Feed.Name())
	assert.Equal(t, "memory", b.SessionBackend)
	assert.Nil(t, b.Cache)
	assert.Nil(t, b.Redis)
	assert.NotNil(t, b.Purger)
	b.FlushCache(context.Background())

	// writes reach the feed
	sub, err := b.Feed.Subscribe(context.Background(), feed.OwnerFilter("u1"))
	require.NoError(t, err)
	defer sub.Close()

	sc, err := b.Store.As("u1")
	require.NoError(t, err)
	_, err = sc.Insert(context.Background(), domain.Bookmark{URL: "https://go.dev", Title: "Go"})
	require.NoError(t, err)

	ev := <-sub.Events()
	assert.Equal(t, feed.TypeInsert, ev.Type())
}

func TestOpenBackendBadPath(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DatabasePath: dir} // a directory, not a file
	_, err := OpenBackend(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
