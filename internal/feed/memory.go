package feed

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/oklog/ulid/v2"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 64

// MemoryBroker routes events inside one process. It backs standalone mode
// and tests. Payloads go through Encode/Decode so both brokers validate
// the same way.
type MemoryBroker struct {
	log    logger.Logger
	buffer int

	mu   sync.RWMutex
	subs map[string]map[*memorySubscription]struct{}
}

func NewMemoryBroker(log logger.Logger) *MemoryBroker {
	return &MemoryBroker{
		log:    log,
		buffer: DefaultBuffer,
		subs:   make(map[string]map[*memorySubscription]struct{}),
	}
}

func (b *MemoryBroker) Name() string { return "memory" }

func (b *MemoryBroker) Ping(context.Context) error { return nil }

// Publish fans ev out to every subscriber of the owner's topic. A full
// subscriber queue drops the event for that subscriber only.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	topic := OwnerFilter(ev.Owner()).Topic()
	decoded, err := Decode(data)
	if err != nil {
		b.log.Warn("dropping undecodable feed payload",
			logger.String("topic", topic), logger.Error(err))
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[topic] {
		select {
		case sub.events <- decoded:
		default:
			b.log.Warn("feed subscriber queue full, event dropped",
				logger.String("topic", topic),
				logger.String("subscription", sub.id))
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, f Filter) (Subscription, error) {
	sub := &memorySubscription{
		id:     ulid.Make().String(),
		topic:  f.Topic(),
		events: make(chan Event, b.buffer),
		broker: b,
	}

	b.mu.Lock()
	set, ok := b.subs[sub.topic]
	if !ok {
		set = make(map[*memorySubscription]struct{})
		b.subs[sub.topic] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

// Subscribers returns how many subscriptions are open on f.
func (b *MemoryBroker) Subscribers(f Filter) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[f.Topic()])
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.topic)
		}
	}
	close(sub.events)
}

type memorySubscription struct {
	id     string
	topic  string
	events chan Event
	broker *MemoryBroker
	once   sync.Once
}

func (s *memorySubscription) ID() string            { return s.id }
func (s *memorySubscription) Events() <-chan Event { return s.events }

func (s *memorySubscription) Close() error {
	s.once.Do(func() { s.broker.remove(s) })
	return nil
}
