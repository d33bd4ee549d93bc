package domain

import "time"

// Bookmark is the only persisted entity: a URL/title pair owned by one user.
//
// Field names on the wire (JSON, feed payloads, table columns) follow the
// backend row shape: id, user_id, url, title, created_at, updated_at.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable, store-assigned)
	// ─────────────────────────────

	// ID is the opaque unique identifier assigned by the store on insert.
	ID string `json:"id"`

	// OwnerID is the authenticated user that created the bookmark.
	// It is always taken from the session, never from client input.
	OwnerID string `json:"user_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// URL is the absolute URL, validated at creation time.
	URL string `json:"url"`

	// Title is the non-empty display string.
	Title string `json:"title"`

	// ─────────────────────────────
	// Metadata (store-assigned)
	// ─────────────────────────────

	// CreatedAt is set once by the store on insert.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is refreshed by the store on every write.
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether the bookmark belongs to ownerID.
func (b Bookmark) OwnedBy(ownerID string) bool {
	return ownerID != "" && b.OwnerID == ownerID
}
