package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeExpired(context.Context) (int, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestSessionSweeperRunsPeriodically(t *testing.T) {
	p := &countingPurger{}
	s := NewSessionSweeper(p, logger.Nop(), 5*time.Millisecond)
	s.Start(context.Background())

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, 2*time.Second, time.Millisecond)
	s.Stop()
	s.Stop()

	after := p.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, p.calls.Load(), "no sweep after Stop")
}

func TestSessionSweeperStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSessionSweeper(&countingPurger{}, logger.Nop(), time.Hour)
	s.Start(ctx)
	cancel()
	s.Stop()
}

func TestSweepPurgesMemorySessions(t *testing.T) {
	store := auth.NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.SaveSession(ctx, domain.Session{ID: "gone", UserID: "u", ExpiresAt: time.Now().Add(-time.Minute)}, time.Hour))
	require.NoError(t, store.SaveSession(ctx, domain.Session{ID: "kept", UserID: "u"}, time.Hour))
	require.Equal(t, 2, store.Len())

	NewSessionSweeper(store, logger.Nop(), 0).Sweep(ctx)
	assert.Equal(t, 1, store.Len())

	_, found, err := store.GetSession(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, found)
}
