package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/live"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// Live upgrades to a websocket and runs one live view for the caller. The
// default CheckOrigin only admits same-origin pages.
func Live(d deps.Deps) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied
			d.Logger.Debug("live upgrade failed", logger.Owner(id.UserID), logger.Error(err))
			return
		}

		rec := live.NewReconciler(r.Context(), id.UserID, d.Bookmarks, d.Feed, d.Logger)
		view := live.NewView(conn, rec, r.Context(), live.ViewOptions{
			Render:       RenderList,
			Deleter:      d.Bookmarks,
			PingInterval: d.LivePingInterval,
			WriteTimeout: d.LiveWriteTimeout,
			Logger:       d.Logger,
		})

		d.Logger.Debug("live view opened", logger.Owner(id.UserID), logger.Bool("live", rec.Live()))
		view.Run(r.Context())
		d.Logger.Debug("live view closed", logger.Owner(id.UserID))
	}
}
