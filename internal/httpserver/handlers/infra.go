package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports each component. The store is critical; a broken feed or
// session backend degrades the service.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := probe(r.Context(), d)

		feed := components["feed"]
		if !feed.OK {
			feed.Impact = "live-updates-disabled"
			components["feed"] = feed
		}

		sessions := componentStatus{OK: true, Mode: d.SessionBackend}
		if d.SessionBackend == "redis" {
			// sessions and feed share the client
			sessions.OK, sessions.Error = feed.OK, feed.Error
		}
		if !sessions.OK {
			sessions.Impact = "sign-in-unavailable"
		}
		components["sessions"] = sessions

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func overallStatus(components map[string]componentStatus) string {
	if !components["store"].OK {
		return "critical"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}
