// Package redis opens the shared go-redis client used by the change feed,
// the session records and the list cache. Startup waits for the server
// so a compose stack can boot in any order.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectOptions are the client settings plus the startup wait policy.
type ConnectOptions struct {
	Addr         string
	User         string
	Password     string
	RedisDB      int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // overall budget for the startup wait
	RetryInterval  time.Duration // first pause, doubled after each miss
	MaxWait        time.Duration // cap on the pause
	PingTimeout    time.Duration // per PING
	WarnThreshold  int           // misses logged at warn before escalating
}

// OptionsFromConfig maps the SMARTMARKS_REDIS_* settings.
func OptionsFromConfig(cfg *config.Config) ConnectOptions {
	return ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}
}

func (o ConnectOptions) validate() error {
	var errs []error
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"ConnectTimeout", o.ConnectTimeout},
		{"RetryInterval", o.RetryInterval},
		{"MaxWait", o.MaxWait},
		{"PingTimeout", o.PingTimeout},
	} {
		if d.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", d.name, d.v))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must not be negative, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

func (o ConnectOptions) client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Username:     o.User,
		Password:     o.Password,
		DB:           o.RedisDB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
	})
}

// New returns a client once the server answers PING. It keeps trying
// with a doubling pause until ConnectTimeout elapses or ctx ends, and
// closes the client when it gives up.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	client := opts.client()
	w := waiter{opts: opts, client: client, log: log.With(logger.String("addr", opts.Addr))}
	if err := w.wait(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

type waiter struct {
	opts   ConnectOptions
	client *redis.Client
	log    logger.Logger
}

func (w waiter) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.opts.PingTimeout)
	defer cancel()
	return w.client.Ping(ctx).Err()
}

func (w waiter) wait(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, w.opts.ConnectTimeout)
	defer cancel()

	start := time.Now()
	pause := w.opts.RetryInterval
	w.log.Debug("waiting for redis", logger.Duration("budget", w.opts.ConnectTimeout))

	for miss := 1; ; miss++ {
		err := w.ping(ctx)
		if err == nil {
			if miss > 1 {
				w.log.Info("redis reachable", logger.Int("misses", miss-1), logger.Duration("waited", time.Since(start)))
			}
			return nil
		}

		select {
		case <-ctx.Done():
			if perr := parent.Err(); perr != nil {
				return fmt.Errorf("redis connect to %s cancelled: %w", w.opts.Addr, perr)
			}
			w.log.Error("giving up on redis", logger.Int("misses", miss), logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				w.opts.Addr, miss, w.opts.ConnectTimeout, err)
		case <-time.After(pause):
		}

		fields := []logger.Field{logger.Int("miss", miss), logger.Duration("paused", pause), logger.Error(err)}
		if miss <= w.opts.WarnThreshold {
			w.log.Warn("redis not answering yet", fields...)
		} else {
			w.log.Error("redis still not answering", fields...)
		}
		pause = min(pause*2, w.opts.MaxWait)
	}
}
