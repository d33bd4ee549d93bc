package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const (
	stateCookie = "smartmarks_oauth_state"
	nonceCookie = "smartmarks_oauth_nonce"
	loginTTL    = 10 * time.Minute
)

// Login starts the authorization-code flow. State and nonce ride in
// short-lived cookies scoped to /auth.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, nonce := auth.NewState(), auth.NewState()
		setLoginCookie(w, d, stateCookie, state, int(loginTTL.Seconds()))
		setLoginCookie(w, d, nonceCookie, nonce, int(loginTTL.Seconds()))
		http.Redirect(w, r, d.Provider.AuthCodeURL(state, nonce), http.StatusFound)
	}
}

// Callback finishes the flow: it checks state, exchanges the code, issues
// a session and lands the user on /bookmarks. Every failure sends the
// browser back to the landing page.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(reason string, err error) {
			d.Logger.Warn("sign-in failed", logger.String("reason", reason), logger.Error(err))
			http.Redirect(w, r, "/?error=login", http.StatusFound)
		}

		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			fail("provider error: "+e, nil)
			return
		}

		state, err := r.Cookie(stateCookie)
		if err != nil || state.Value == "" ||
			subtle.ConstantTimeCompare([]byte(state.Value), []byte(q.Get("state"))) != 1 {
			fail("state mismatch", err)
			return
		}
		nonce, err := r.Cookie(nonceCookie)
		if err != nil {
			fail("missing nonce", err)
			return
		}
		setLoginCookie(w, d, stateCookie, "", -1)
		setLoginCookie(w, d, nonceCookie, "", -1)

		code := q.Get("code")
		if code == "" {
			fail("missing code", nil)
			return
		}

		id, err := d.Provider.Exchange(r.Context(), code, nonce.Value)
		if err != nil {
			fail("exchange", err)
			return
		}

		token, exp, err := d.Sessions.Issue(r.Context(), id)
		if err != nil {
			fail("issue session", err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			Path:     "/",
			Expires:  exp,
			HttpOnly: true,
			Secure:   d.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		d.Logger.Info("signed in", logger.Owner(id.UserID))
		http.Redirect(w, r, "/bookmarks", http.StatusFound)
	}
}

// Logout revokes the session and clears the cookie.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
			if err := d.Sessions.Revoke(r.Context(), c.Value); err != nil {
				d.Logger.Warn("failed to revoke session", logger.Error(err))
			}
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   d.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func setLoginCookie(w http.ResponseWriter, d deps.Deps, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   d.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
