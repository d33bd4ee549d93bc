package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
)

// ErrNotFound is returned by Retitle when the owner has no such bookmark.
var ErrNotFound = errors.New("bookmark not found")

// Operator is the out-of-band write path used by the CLI. It trusts the
// owner it is given, so it must never be reachable from HTTP.
type Operator struct {
	store *sqlite.Store
	cache SnapshotCache
	log   logger.Logger
}

func NewOperator(store *sqlite.Store, cache SnapshotCache, log logger.Logger) *Operator {
	return &Operator{store: store, cache: cache, log: log}
}

// Skipped is an import entry that was not stored.
type Skipped struct {
	Index  int
	Title  string
	URL    string
	Reason string
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Imported []domain.Bookmark
	Skipped  []Skipped
}

// Import stores entries for ownerID, applying the same validation as
// Create. Invalid entries are skipped; a store error aborts the import.
func (o *Operator) Import(ctx context.Context, ownerID string, entries []CreateInput) (ImportResult, error) {
	var res ImportResult

	scope, err := o.store.As(ownerID)
	if err != nil {
		return res, err
	}

	for i, in := range entries {
		if err := domain.ValidateNew(in.URL, in.Title); err != nil {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Title: in.Title, URL: in.URL, Reason: err.Error()})
			continue
		}
		b, err := scope.Insert(ctx, domain.Bookmark{
			URL:   strings.TrimSpace(in.URL),
			Title: strings.TrimSpace(in.Title),
		})
		if err != nil {
			o.invalidate(ctx, ownerID)
			return res, fmt.Errorf("import entry %d (%s): %w", i, in.Title, err)
		}
		res.Imported = append(res.Imported, b)
	}

	o.log.Info("import finished",
		logger.Owner(ownerID),
		logger.Int("imported", len(res.Imported)),
		logger.Int("skipped", len(res.Skipped)))
	o.invalidate(ctx, ownerID)
	return res, nil
}

// Retitle changes a bookmark title. Open live views receive an UPDATE.
func (o *Operator) Retitle(ctx context.Context, ownerID, bookmarkID, title string) (domain.Bookmark, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Bookmark{}, domain.NewError(domain.KindInvalidInput, "title is required", nil)
	}

	scope, err := o.store.As(ownerID)
	if err != nil {
		return domain.Bookmark{}, err
	}
	b, found, err := scope.UpdateTitle(ctx, bookmarkID, title)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if !found {
		return domain.Bookmark{}, fmt.Errorf("%w: %s", ErrNotFound, bookmarkID)
	}

	o.invalidate(ctx, ownerID)
	return b, nil
}

func (o *Operator) invalidate(ctx context.Context, ownerID string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.InvalidateSnapshot(ctx, ownerID); err != nil {
		o.log.Warn("snapshot cache invalidation failed", logger.Owner(ownerID), logger.Error(err))
	}
}
