package live

import (
	"context"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// Lister fetches the initial snapshot.
type Lister interface {
	List(ctx context.Context, ownerID string) ([]domain.Bookmark, error)
}

// Subscriber opens the change feed.
type Subscriber interface {
	Subscribe(ctx context.Context, f feed.Filter) (feed.Subscription, error)
}

// Reconciler owns one List and the feed subscription that patches it.
type Reconciler struct {
	owner string
	list  *List
	sub   feed.Subscription
	log   logger.Logger
}

// NewReconciler takes the snapshot, then subscribes to the owner's
// changes. Neither failure is fatal: a failed snapshot starts from an
// empty list, a failed subscription gives a view without live updates.
// Writes committed between the snapshot and the subscription are not
// replayed.
func NewReconciler(ctx context.Context, ownerID string, lister Lister, sub Subscriber, log logger.Logger) *Reconciler {
	log = log.With(logger.Owner(ownerID))

	seed, err := lister.List(ctx, ownerID)
	if err != nil {
		log.Error("failed to load bookmarks", logger.Error(err))
		seed = nil
	}

	r := &Reconciler{owner: ownerID, list: NewList(seed), log: log}

	s, err := sub.Subscribe(ctx, feed.OwnerFilter(ownerID))
	if err != nil {
		log.Warn("live updates unavailable",
			logger.Error(domain.NewError(domain.KindFeedDisconnect, domain.ErrFeedDisconnect.Message, err)))
		return r
	}
	r.sub = s
	return r
}

// List is the reconciled state.
func (r *Reconciler) List() *List { return r.list }

// Live reports whether a feed subscription is attached.
func (r *Reconciler) Live() bool { return r.sub != nil }

// Run applies events in delivery order until ctx is done or the
// subscription ends. onChange runs after every event that changed the list.
func (r *Reconciler) Run(ctx context.Context, onChange func()) {
	if r.sub == nil {
		<-ctx.Done()
		return
	}
	events := r.sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				r.log.Debug("feed subscription closed", logger.Error(domain.ErrFeedDisconnect))
				return
			}
			if ev.Owner() != "" && ev.Owner() != r.owner {
				r.log.Warn("dropping event for another owner", logger.String("event_owner", ev.Owner()))
				continue
			}
			if r.list.Apply(ev) && onChange != nil {
				onChange()
			}
		}
	}
}

// Close releases the subscription. No event is applied afterwards.
func (r *Reconciler) Close() error {
	r.list.Close()
	if r.sub == nil {
		return nil
	}
	return r.sub.Close()
}
