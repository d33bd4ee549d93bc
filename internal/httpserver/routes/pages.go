package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

func init() { Register(registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	app := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	app.Get("/", handlers.Index(d))
	app.With(mw.RequireIdentity(d.Sessions, d.Logger)).Get("/bookmarks", handlers.BookmarksPage(d))
}
