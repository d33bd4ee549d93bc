package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces feed channels on a shared Redis.
const ChannelPrefix = "smartmarks:feed:"

// RedisBroker carries the feed over Redis PUBLISH/SUBSCRIBE so every
// server instance sees writes made by any other one. Messages published
// while a subscriber is reconnecting are lost.
type RedisBroker struct {
	client *redis.Client
	log    logger.Logger
	buffer int
}

func NewRedisBroker(client *redis.Client, log logger.Logger) *RedisBroker {
	return &RedisBroker{client: client, log: log, buffer: DefaultBuffer}
}

func (b *RedisBroker) Name() string { return "redis" }

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func channel(f Filter) string { return ChannelPrefix + f.Topic() }

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channel(OwnerFilter(ev.Owner())), data).Err(); err != nil {
		return fmt.Errorf("failed to publish feed event: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published after it returns are delivered.
func (b *RedisBroker) Subscribe(ctx context.Context, f Filter) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel(f))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.Topic(), err)
	}

	sub := &redisSubscription{
		id:     ulid.Make().String(),
		ps:     ps,
		events: make(chan Event, b.buffer),
		done:   make(chan struct{}),
	}
	go sub.run(b.log.With(logger.String("topic", f.Topic()), logger.String("subscription", sub.id)))
	return sub, nil
}

type redisSubscription struct {
	id     string
	ps     *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) ID() string            { return s.id }
func (s *redisSubscription) Events() <-chan Event { return s.events }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *redisSubscription) run(log logger.Logger) {
	defer close(s.events)

	for msg := range s.ps.Channel() {
		ev, err := Decode([]byte(msg.Payload))
		if err != nil {
			log.Warn("dropping undecodable feed payload", logger.Error(err))
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
	log.Debug("feed subscription ended")
}
