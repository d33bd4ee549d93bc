// Package feed is the change feed for the bookmarks table: row-level
// INSERT/UPDATE/DELETE notifications, published per owner and delivered
// best-effort to live views. There is no replay and no gap recovery.
package feed

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// Table is the only table carried by the feed.
const Table = "bookmarks"

// Type is the wire name of an event kind.
type Type string

const (
	TypeInsert Type = "INSERT"
	TypeUpdate Type = "UPDATE"
	TypeDelete Type = "DELETE"
)

// Event is a closed variant: the only implementations are Insert, Update
// and Delete, each carrying fully typed rows.
type Event interface {
	Type() Type
	// Owner is the user_id the event is routed by.
	Owner() string
	sealed()
}

// Insert carries the newly created row.
type Insert struct {
	New domain.Bookmark
}

// Update carries the row after the write. Old holds whatever the
// publisher knew about the previous version (at least the id).
type Update struct {
	Old domain.Bookmark
	New domain.Bookmark
}

// Delete carries the removed row.
type Delete struct {
	Old domain.Bookmark
}

func (Insert) Type() Type { return TypeInsert }
func (Update) Type() Type { return TypeUpdate }
func (Delete) Type() Type { return TypeDelete }

func (e Insert) Owner() string { return e.New.OwnerID }
func (e Update) Owner() string { return e.New.OwnerID }
func (e Delete) Owner() string { return e.Old.OwnerID }

func (Insert) sealed() {}
func (Update) sealed() {}
func (Delete) sealed() {}

// Filter is an equality filter on one column of Table, written the way
// the subscription API expresses it: "user_id=eq.<value>".
type Filter struct {
	Column string
	Value  string
}

// OwnerFilter scopes a subscription to one owner's rows.
func OwnerFilter(ownerID string) Filter {
	return Filter{Column: "user_id", Value: ownerID}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s=eq.%s", f.Column, f.Value)
}

// Topic is the routing key for events matching f.
func (f Filter) Topic() string {
	return Table + ":" + f.String()
}

// Publisher pushes committed changes onto the feed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription delivers events in publish order until closed.
// Events is closed once the subscription ends, whether by Close or by the
// transport giving up.
type Subscription interface {
	ID() string
	Events() <-chan Event
	Close() error
}

// Broker is both ends of the feed.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, f Filter) (Subscription, error)
	Ping(ctx context.Context) error
	Name() string
}
