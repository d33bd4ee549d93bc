// Package live keeps one browser view in sync with the owner's rows: a
// list seeded from the store and patched by change-feed events.
package live

import (
	"sync"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
)

// List is the ordered view state plus the set of ids with a delete in
// flight. Safe for concurrent use.
type List struct {
	mu      sync.Mutex
	items   []domain.Bookmark
	pending map[string]struct{}
	closed  bool
}

// NewList copies seed, which must already be newest first.
func NewList(seed []domain.Bookmark) *List {
	items := make([]domain.Bookmark, len(seed))
	copy(items, seed)
	return &List{items: items, pending: make(map[string]struct{})}
}

// Apply patches the list with ev and reports whether it changed.
// Events are applied in arrival order without re-sorting. After Close it
// is a no-op.
func (l *List) Apply(ev feed.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}

	switch e := ev.(type) {
	case feed.Insert:
		// a redelivered insert replaces instead of duplicating
		if i := l.indexOf(e.New.ID); i >= 0 {
			l.items[i] = e.New
			return true
		}
		l.items = append([]domain.Bookmark{e.New}, l.items...)
		return true

	case feed.Update:
		i := l.indexOf(e.New.ID)
		if i < 0 {
			return false
		}
		l.items[i] = e.New
		return true

	case feed.Delete:
		i := l.indexOf(e.Old.ID)
		delete(l.pending, e.Old.ID)
		if i < 0 {
			return false
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
		return true
	}
	return false
}

func (l *List) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot is a consistent copy of the list and its pending set.
type Snapshot struct {
	Items   []domain.Bookmark
	Pending map[string]bool
}

// Snapshot copies items and pending ids under one lock.
func (l *List) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Snapshot{
		Items:   make([]domain.Bookmark, len(l.items)),
		Pending: make(map[string]bool, len(l.pending)),
	}
	copy(s.Items, l.items)
	for id := range l.pending {
		s.Pending[id] = true
	}
	return s
}

// Items returns a copy of the current list.
func (l *List) Items() []domain.Bookmark {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Bookmark, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// MarkPending flags id as being deleted. It returns false when id is
// already pending or the list is closed, so a second click is ignored.
func (l *List) MarkPending(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	if _, ok := l.pending[id]; ok {
		return false
	}
	l.pending[id] = struct{}{}
	return true
}

func (l *List) ClearPending(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, id)
}

func (l *List) IsPending(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[id]
	return ok
}

// Close stops the list from accepting events.
func (l *List) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}
