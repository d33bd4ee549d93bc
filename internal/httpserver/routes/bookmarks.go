package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

// Mutations answer JSON, so they carry the session token without
// redirecting and let the service reject it. The identity is resolved
// first so signed-in callers get their own rate limit bucket.
func registerBookmarks(r chi.Router, d deps.Deps) {
	m := r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.SessionToken(d.Sessions),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateLimitBurst,
			RefillPerIPPerMin: d.RateLimitPerMin,
			MaxEntries:        10_000,
			TrustProxy:        d.TrustProxy,
		}),
	)
	m.Post("/bookmarks", handlers.CreateBookmark(d))
	m.Post("/bookmarks/{id}/delete", handlers.DeleteBookmark(d))
}
