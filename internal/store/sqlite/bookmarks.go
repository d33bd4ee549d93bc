package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/google/uuid"
)

// Scope runs statements on behalf of one owner. Reads and deletes are
// filtered by user_id; writes carrying another owner are refused.
type Scope struct {
	store *Store
	owner string
}

// Owner returns the user id the scope is bound to.
func (s *Scope) Owner() string { return s.owner }

const selectColumns = `id, user_id, url, title, created_at, updated_at`

// Insert stores a new row. ID and timestamps are assigned here; an empty
// OwnerID is filled from the scope.
func (s *Scope) Insert(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	if b.OwnerID == "" {
		b.OwnerID = s.owner
	}
	if b.OwnerID != s.owner {
		return domain.Bookmark{}, fmt.Errorf("%w: insert for another owner", ErrPolicyViolation)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("generate id: %w", err)
	}
	now := s.store.now()
	b.ID = id.String()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, user_id, url, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.URL, b.Title, now.UnixNano(), now.UnixNano())
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}

	s.store.publish(ctx, feed.Insert{New: b})
	return b, nil
}

// Delete removes the row matching both id and the scope owner and reports
// how many rows went away. Zero is not an error.
func (s *Scope) Delete(ctx context.Context, id string) (int64, error) {
	old, found, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	res, err := s.store.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = ? AND user_id = ?`, id, s.owner)
	if err != nil {
		return 0, fmt.Errorf("delete bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete bookmark: %w", err)
	}

	if n > 0 && found {
		s.store.publish(ctx, feed.Delete{Old: old})
	}
	return n, nil
}

// Get returns the row with id when the scope owns it.
func (s *Scope) Get(ctx context.Context, id string) (domain.Bookmark, bool, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM bookmarks WHERE id = ? AND user_id = ?`, id, s.owner)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bookmark{}, false, nil
	}
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("get bookmark: %w", err)
	}
	return b, true, nil
}

// List returns the owner's rows, newest first.
func (s *Scope) List(ctx context.Context) ([]domain.Bookmark, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM bookmarks WHERE user_id = ? ORDER BY created_at DESC, id DESC`, s.owner)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		// Redundant with the WHERE clause; a row of another owner here
		// means the query itself is wrong.
		if !b.OwnedBy(s.owner) {
			return nil, fmt.Errorf("%w: foreign row %s", ErrPolicyViolation, b.ID)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return out, nil
}

// UpdateTitle changes the title of an owned row. found is false when no
// owned row has that id.
func (s *Scope) UpdateTitle(ctx context.Context, id, title string) (updated domain.Bookmark, found bool, err error) {
	old, found, err := s.Get(ctx, id)
	if err != nil || !found {
		return domain.Bookmark{}, false, err
	}

	now := s.store.now()
	res, err := s.store.db.ExecContext(ctx,
		`UPDATE bookmarks SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, now.UnixNano(), id, s.owner)
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("update bookmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Bookmark{}, false, nil
	}

	updated = old
	updated.Title = title
	updated.UpdatedAt = now
	s.store.publish(ctx, feed.Update{Old: old, New: updated})
	return updated, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(sc scanner) (domain.Bookmark, error) {
	var (
		b                  domain.Bookmark
		created, updatedAt int64
	)
	if err := sc.Scan(&b.ID, &b.OwnerID, &b.URL, &b.Title, &created, &updatedAt); err != nil {
		return domain.Bookmark{}, err
	}
	b.CreatedAt = time.Unix(0, created).UTC()
	b.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return b, nil
}
