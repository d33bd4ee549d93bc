// Package bookmarks holds the application-owned write path: the two
// user-facing mutations and the owner list read that seeds a page.
package bookmarks

import (
	"context"
	"strings"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
)

// User-facing failure messages.
const (
	MsgAddFailed    = "Failed to add bookmark"
	MsgDeleteFailed = "Failed to delete bookmark"
)

// SnapshotCache caches an owner's list between page loads. Optional.
//
// Snapshots are tagged with the owner's generation, which
// InvalidateSnapshot advances. A snapshot put under a generation that has
// since moved on is never returned, so a list read that raced a write
// cannot be served afterwards.
type SnapshotCache interface {
	SnapshotGeneration(ctx context.Context, ownerID string) (int64, error)
	GetSnapshot(ctx context.Context, ownerID string, gen int64) ([]domain.Bookmark, bool, error)
	PutSnapshot(ctx context.Context, ownerID string, gen int64, items []domain.Bookmark, ttl time.Duration) error
	InvalidateSnapshot(ctx context.Context, ownerID string) error
}

// CreateInput is what a client submits.
type CreateInput struct {
	URL   string
	Title string
	// OwnerID is accepted so decoders can bind it, and always discarded:
	// the owner is the verified caller.
	OwnerID string
}

// Service implements Create and Delete. Each call verifies the session
// token carried by ctx (auth.WithToken) again.
type Service struct {
	store    *sqlite.Store
	sessions auth.Verifier
	cache    SnapshotCache
	cacheTTL time.Duration
	log      logger.Logger
}

type Options struct {
	Store    *sqlite.Store
	Sessions auth.Verifier
	// Cache may be nil; a zero CacheTTL disables caching as well.
	Cache    SnapshotCache
	CacheTTL time.Duration
	Logger   logger.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		store:    opts.Store,
		sessions: opts.Sessions,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		log:      opts.Logger,
	}
	if s.cacheTTL <= 0 {
		s.cache = nil
	}
	return s
}

// Create validates in and stores it for the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Bookmark, error) {
	id, err := s.authenticate(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if in.OwnerID != "" && in.OwnerID != id.UserID {
		s.log.Warn("ignoring client-supplied owner on create", logger.Owner(id.UserID))
	}

	if err := domain.ValidateNew(in.URL, in.Title); err != nil {
		return domain.Bookmark{}, err
	}

	scope, err := s.store.As(id.UserID)
	if err != nil {
		return domain.Bookmark{}, s.storeFailure(MsgAddFailed, id.UserID, "", err)
	}
	b, err := scope.Insert(ctx, domain.Bookmark{
		URL:   strings.TrimSpace(in.URL),
		Title: strings.TrimSpace(in.Title),
	})
	if err != nil {
		return domain.Bookmark{}, s.storeFailure(MsgAddFailed, id.UserID, "", err)
	}

	s.log.Debug("bookmark created", logger.Owner(id.UserID), logger.BookmarkID(b.ID))
	s.invalidate(ctx, id.UserID)
	return b, nil
}

// Delete removes the caller's bookmark with id. An id that does not exist
// or belongs to someone else is not an error.
func (s *Service) Delete(ctx context.Context, bookmarkID string) error {
	id, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	scope, err := s.store.As(id.UserID)
	if err != nil {
		return s.storeFailure(MsgDeleteFailed, id.UserID, bookmarkID, err)
	}
	n, err := scope.Delete(ctx, bookmarkID)
	if err != nil {
		return s.storeFailure(MsgDeleteFailed, id.UserID, bookmarkID, err)
	}

	s.log.Debug("bookmark delete",
		logger.Owner(id.UserID), logger.BookmarkID(bookmarkID), logger.Int64("rows", n))
	s.invalidate(ctx, id.UserID)
	return nil
}

// List returns ownerID's bookmarks newest first, from the snapshot cache
// when possible. The caller must already have authenticated ownerID.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	useCache := s.cache != nil
	var gen int64
	if useCache {
		// read before the store so a concurrent invalidation orphans our put
		var err error
		gen, err = s.cache.SnapshotGeneration(ctx, ownerID)
		if err != nil {
			s.log.Warn("snapshot generation read failed", logger.Owner(ownerID), logger.Error(err))
			useCache = false
		}
	}
	if useCache {
		items, found, err := s.cache.GetSnapshot(ctx, ownerID, gen)
		switch {
		case err != nil:
			s.log.Warn("snapshot cache read failed", logger.Owner(ownerID), logger.Error(err))
		case found:
			return items, nil
		}
	}

	scope, err := s.store.As(ownerID)
	if err != nil {
		return nil, domain.NewError(domain.KindStoreFailure, "Failed to load bookmarks", err)
	}
	items, err := scope.List(ctx)
	if err != nil {
		return nil, domain.NewError(domain.KindStoreFailure, "Failed to load bookmarks", err)
	}

	if useCache {
		if err := s.cache.PutSnapshot(ctx, ownerID, gen, items, s.cacheTTL); err != nil {
			s.log.Warn("snapshot cache write failed", logger.Owner(ownerID), logger.Error(err))
		}
	}
	return items, nil
}

func (s *Service) authenticate(ctx context.Context) (auth.Identity, error) {
	id, err := s.sessions.Verify(ctx, auth.TokenFrom(ctx))
	if err != nil {
		return auth.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

func (s *Service) storeFailure(msg, ownerID, bookmarkID string, err error) error {
	fields := []logger.Field{logger.Owner(ownerID), logger.Error(err)}
	if bookmarkID != "" {
		fields = append(fields, logger.BookmarkID(bookmarkID))
	}
	s.log.Error(strings.ToLower(msg), fields...)
	return domain.NewError(domain.KindStoreFailure, msg, err)
}

// invalidate drops the cached list so the next page load reads the store.
func (s *Service) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSnapshot(ctx, ownerID); err != nil {
		s.log.Warn("snapshot cache invalidation failed", logger.Owner(ownerID), logger.Error(err))
	}
}
