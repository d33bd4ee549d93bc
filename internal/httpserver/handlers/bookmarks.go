package handlers

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const maxFormBytes = 64 << 10

// MsgBadRequest is returned when the body cannot be decoded at all.
const MsgBadRequest = "Invalid request"

// mutationResult is the reply of both mutation routes: exactly one of
// the fields is set. Domain failures still answer 200.
type mutationResult struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

type createRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	// bound so it can be logged and ignored
	OwnerID string `json:"user_id"`
}

// CreateBookmark accepts JSON or a form post with url and title.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeCreate(w, r)
		if err != nil {
			d.Logger.Debug("undecodable create request", logger.Error(err))
			writeResult(w, d.Logger, mutationResult{Error: MsgBadRequest})
			return
		}

		// a submitted mutation is not cancelled by the client going away
		ctx := context.WithoutCancel(r.Context())
		_, err = d.Bookmarks.Create(ctx, bookmarks.CreateInput{
			URL:     req.URL,
			Title:   req.Title,
			OwnerID: req.OwnerID,
		})
		if err != nil {
			writeResult(w, d.Logger, mutationResult{Error: domain.UserMessage(err, bookmarks.MsgAddFailed)})
			return
		}
		writeResult(w, d.Logger, mutationResult{Success: true})
	}
}

// DeleteBookmark removes the caller's bookmark named in the path.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		ctx := context.WithoutCancel(r.Context())
		if err := d.Bookmarks.Delete(ctx, id); err != nil {
			writeResult(w, d.Logger, mutationResult{Error: domain.UserMessage(err, bookmarks.MsgDeleteFailed)})
			return
		}
		writeResult(w, d.Logger, mutationResult{Success: true})
	}
}

func decodeCreate(w http.ResponseWriter, r *http.Request) (createRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var req createRequest
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.URL = r.PostForm.Get("url")
	req.Title = r.PostForm.Get("title")
	req.OwnerID = r.PostForm.Get("user_id")
	return req, nil
}

func writeResult(w http.ResponseWriter, log logger.Logger, res mutationResult) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}
