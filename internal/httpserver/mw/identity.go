package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// SessionToken copies the session cookie into the request context and,
// when it verifies, the caller's identity too. It never rejects: mutation
// handlers answer JSON and the service verifies the token again.
func SessionToken(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(auth.CookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := auth.WithToken(r.Context(), c.Value)
			if id, err := v.Verify(ctx, c.Value); err == nil {
				noteOwner(ctx, id.UserID)
				ctx = auth.WithIdentity(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity resolves the session cookie into an identity before any
// data access. Without a valid session the request is redirected to "/"
// with no further detail.
func RequireIdentity(v auth.Verifier, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(auth.CookieName); err == nil {
				token = c.Value
			}

			id, err := v.Verify(r.Context(), token)
			if err != nil {
				log.Debug("RequireIdentity: no valid session, redirecting",
					logger.String("path", r.URL.Path))
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			noteOwner(r.Context(), id.UserID)
			ctx := auth.WithToken(auth.WithIdentity(r.Context(), id), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
