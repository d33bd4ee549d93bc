package deps

import (
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts    []string      // Host headers allowed to reach the app routes
	AllowedCIDRS    []string      // IPs allowed on healthz/readyz/infra
	TrustProxy      bool          // true behind a trusted reverse proxy (e.g. cloudflared)
	RateLimitBurst  int           // mutation burst per caller
	RateLimitPerMin int           // mutation refill per caller
	RequestTimeout  time.Duration // per-request timeout on non-streaming routes

	Store          *sqlite.Store
	Feed           feed.Broker
	Sessions       *auth.Sessions
	SessionBackend string        // "redis" or "memory"
	RedisClient    *redis.Client // nil in standalone mode
	Provider       auth.Provider // OpenID Connect login
	Bookmarks      *bookmarks.Service
	CookieSecure   bool // Secure flag on session and login cookies

	LivePingInterval time.Duration
	LiveWriteTimeout time.Duration
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
