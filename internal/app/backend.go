package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/redis"
	"github.com/MrSnakeDoc/smartmarks/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/smartmarks/internal/store/redis"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
)

// Backend is the storage side shared by the server and the operator
// commands: the database, the change feed, and with Redis configured the
// session records and list cache.
type Backend struct {
	Store          *sqlite.Store
	Feed           feed.Broker
	Sessions       auth.SessionStore
	SessionBackend string
	// Purger is set when sessions live in process and must be swept.
	Purger scheduler.Purger
	// Cache is nil in standalone mode.
	Cache bookmarks.SnapshotCache
	Redis *goredis.Client

	log logger.Logger
}

// OpenBackend connects Redis when configured (standalone otherwise) and
// opens the database with writes published on the chosen feed.
func OpenBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (*Backend, error) {
	b := &Backend{log: log}

	if cfg.Standalone() {
		log.Info("no redis address configured, running standalone (single instance)")
		b.Feed = feed.NewMemoryBroker(log)
		mem := auth.NewMemorySessionStore()
		b.Sessions = mem
		b.Purger = mem
		b.SessionBackend = "memory"
	} else {
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rs := redisstore.NewStore(client)
		b.Redis = client
		b.Feed = feed.NewRedisBroker(client, log)
		b.Sessions = rs
		b.SessionBackend = "redis"
		if cfg.SnapshotCacheTTL > 0 {
			b.Cache = rs
		}
	}

	store, err := sqlite.Open(cfg.DatabasePath, b.Feed, log)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	b.Store = store
	log.Info("database ready", logger.String("path", cfg.DatabasePath))
	return b, nil
}

// FlushCache drops every cached list, which may predate rows written
// while this instance was down.
func (b *Backend) FlushCache(ctx context.Context) {
	rs, ok := b.Cache.(*redisstore.Store)
	if !ok {
		return
	}
	if err := rs.FlushSnapshots(ctx); err != nil {
		b.log.Warn("failed to flush snapshot cache", logger.Error(err))
	}
}

// Close releases the database and the Redis client.
func (b *Backend) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			b.log.Warnf("failed to close database: %v", err)
		}
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.log.Warnf("failed to close redis: %v", err)
		} else {
			b.log.Info("Redis closed cleanly")
		}
	}
}
