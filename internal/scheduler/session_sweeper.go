// Package scheduler runs periodic housekeeping next to the HTTP server.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// DefaultSweepInterval is used when none is configured.
const DefaultSweepInterval = 10 * time.Minute

// Purger drops expired records. Redis expires session keys on its own, so
// only the in-process session store needs one.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// SessionSweeper calls Purger on an interval.
type SessionSweeper struct {
	purger   Purger
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewSessionSweeper(p Purger, log logger.Logger, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionSweeper{
		purger:   p,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start sweeps in the background until Stop or ctx is done.
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

// Sweep runs one purge.
func (s *SessionSweeper) Sweep(ctx context.Context) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", logger.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", logger.Int("count", n))
	} else {
		s.logger.Debug("no expired sessions")
	}
}
