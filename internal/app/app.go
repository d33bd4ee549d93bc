package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/scheduler"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	server  *httpserver.Server
	backend *Backend
	sweeper *scheduler.SessionSweeper // nil with Redis sessions
}

// New wires the server. It fails fast on missing settings, an unreachable
// Redis or identity provider.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}
	backend.FlushCache(ctx)

	provider, err := auth.NewOIDCProvider(ctx, auth.OIDCConfig{
		Issuer:       cfg.OIDCIssuer,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, backend.Sessions, loggerClient)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RequestTimeout:  cfg.RequestTimeout,
		Store:           backend.Store,
		Feed:            backend.Feed,
		Sessions:        sessions,
		SessionBackend:  backend.SessionBackend,
		RedisClient:     backend.Redis,
		Provider:        provider,
		Bookmarks: bookmarks.NewService(bookmarks.Options{
			Store:    backend.Store,
			Sessions: sessions,
			Cache:    backend.Cache,
			CacheTTL: cfg.SnapshotCacheTTL,
			Logger:   loggerClient,
		}),
		CookieSecure:     cfg.CookieSecure,
		LivePingInterval: cfg.LivePingInterval,
		LiveWriteTimeout: cfg.LiveWriteTimeout,
	}

	a := &App{
		cfg:     cfg,
		logger:  loggerClient,
		server:  httpserver.New(cfg.ListenPort, loggerClient, d),
		backend: backend,
	}
	if backend.Purger != nil {
		a.sweeper = scheduler.NewSessionSweeper(backend.Purger, loggerClient, cfg.SessionSweep)
	}
	return a, nil
}

// Run serves until SIGINT/SIGTERM, then shuts down within
// ShutdownTimeout.
func (a *App) Run() error {
	defer a.backend.Close()

	a.logger.Infof("Starting %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.sweeper != nil {
		a.sweeper.Start(ctx)
		defer a.sweeper.Stop()
		a.logger.Info("session sweeper started", logger.Duration("interval", a.cfg.SessionSweep))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("smartmarks stopped cleanly")
	return nil
}
