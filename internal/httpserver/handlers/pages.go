package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/live"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// Index is the public landing page. Signed-in visitors go straight to
// their bookmarks.
func Index(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(auth.CookieName); err == nil {
			if _, err := d.Sessions.Verify(r.Context(), c.Value); err == nil {
				http.Redirect(w, r, "/bookmarks", http.StatusFound)
				return
			}
		}
		data := landingData{LoginFailed: r.URL.Query().Get("error") != ""}
		if err := render(w, "landing", data); err != nil {
			d.Logger.Error("failed to render landing page", logger.Error(err))
		}
	}
}

// BookmarksPage renders the signed-in page with the owner's current list.
// A failed load is logged and shows an empty list; the live view fills it
// in once the store answers again.
func BookmarksPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		items, err := d.Bookmarks.List(r.Context(), id.UserID)
		if err != nil {
			d.Logger.Error("failed to load bookmarks for page",
				logger.Owner(id.UserID), logger.Error(err))
			items = []domain.Bookmark{}
		}

		data := bookmarksData{
			Email: id.Email,
			List:  live.Snapshot{Items: items},
		}
		if err := render(w, "bookmarks", data); err != nil {
			d.Logger.Error("failed to render bookmarks page", logger.Owner(id.UserID), logger.Error(err))
		}
	}
}
