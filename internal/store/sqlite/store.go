// Package sqlite is the relational store for bookmarks. Every statement
// runs through an owner scope (Store.As) that enforces the row access
// policy, and every committed write is published on the change feed.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is the version of schema.sql. Open stamps fresh databases
// with it and refuses files written by a newer build.
const SchemaVersion = 1

// ErrPolicyViolation is returned when a statement targets rows outside
// the caller's owner scope.
var ErrPolicyViolation = errors.New("row access policy violation")

// Store wraps the database handle.
type Store struct {
	db  *sql.DB
	pub feed.Publisher
	log logger.Logger
	now func() time.Time
}

// Open opens (creating if needed) the database at path and brings its
// schema up to date. Writes are published on pub; pass nil to disable
// publishing.
func Open(path string, pub feed.Publisher, log logger.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		db:  db,
		pub: pub,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
	if err := s.checkVersion(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// As returns a session scoped to ownerID. An empty owner is refused.
func (s *Store) As(ownerID string) (*Scope, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: empty owner", ErrPolicyViolation)
	}
	return &Scope{store: s, owner: ownerID}, nil
}

func (s *Store) checkVersion() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_info: %w", err)
	}

	var current int
	err := s.db.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(`INSERT INTO schema_info (key, value) VALUES ('version', ?)`, SchemaVersion)
		if err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case current > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported %d", current, SchemaVersion)
	}
	return nil
}

// publish is best-effort: the row is already committed, so a feed
// failure is logged and swallowed.
func (s *Store) publish(ctx context.Context, ev feed.Event) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish change",
			logger.String("type", string(ev.Type())),
			logger.Owner(ev.Owner()),
			logger.Error(err))
	}
}
