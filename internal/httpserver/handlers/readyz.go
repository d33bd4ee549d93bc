package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const probeTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Readyz answers 503 until the store and the feed both respond.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failed := map[string]string{}
		for name, c := range probe(r.Context(), d) {
			if !c.OK {
				failed[name] = c.Error
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if len(failed) > 0 {
			d.Logger.Warn("not ready", logger.Int("failed", len(failed)))
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(readyzResponse{Failed: failed})
			return
		}
		_ = json.NewEncoder(w).Encode(readyzResponse{Ready: true})
	}
}

// probe pings the store and the feed broker.
func probe(ctx context.Context, d deps.Deps) map[string]componentStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return map[string]componentStatus{
		"store": status("sqlite", d.Store.Ping(ctx)),
		"feed":  status(d.Feed.Name(), d.Feed.Ping(ctx)),
	}
}

func status(mode string, err error) componentStatus {
	if err != nil {
		return componentStatus{OK: false, Mode: mode, Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: mode}
}
