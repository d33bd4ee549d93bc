package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/stretchr/testify/assert"
)

type stubVerifier map[string]auth.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return auth.Identity{}, domain.ErrUnauthenticated
}

func TestRequireIdentity(t *testing.T) {
	v := stubVerifier{"good": {UserID: "u1", Email: "u1@example.com"}}

	var seen auth.Identity
	var seenToken string
	h := RequireIdentity(v, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.IdentityFrom(r.Context())
		seenToken = auth.TokenFrom(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name   string
		cookie string
		status int
	}{
		{name: "no cookie", status: http.StatusFound},
		{name: "bad cookie", cookie: "bad", status: http.StatusFound},
		{name: "valid", cookie: "good", status: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusFound {
				assert.Equal(t, "/", rec.Header().Get("Location"))
			}
		})
	}
	assert.Equal(t, "u1", seen.UserID)
	assert.Equal(t, "good", seenToken)
}

func TestSessionToken(t *testing.T) {
	v := stubVerifier{"good": {UserID: "u1", Email: "u1@example.com"}}

	var (
		token string
		id    auth.Identity
		found bool
	)
	h := SessionToken(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = auth.TokenFrom(r.Context())
		id, found = auth.IdentityFrom(r.Context())
	}))

	tests := []struct {
		name      string
		cookie    string
		wantToken string
		wantUser  string
	}{
		{name: "valid session", cookie: "good", wantToken: "good", wantUser: "u1"},
		{name: "unverified token passes through", cookie: "anything", wantToken: "anything"},
		{name: "no cookie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, id, found = "reset", auth.Identity{}, false
			req := httptest.NewRequest(http.MethodPost, "/bookmarks", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantUser != "", found)
			assert.Equal(t, tt.wantUser, id.UserID)
		})
	}
}
