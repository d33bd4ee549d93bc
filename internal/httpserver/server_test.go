package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/live"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
)

type fakeProvider struct {
	id auth.Identity
}

func (p fakeProvider) AuthCodeURL(state, nonce string) string {
	return "https://idp.example/authorize?" + url.Values{"state": {state}, "nonce": {nonce}}.Encode()
}

func (p fakeProvider) Exchange(_ context.Context, code, nonce string) (auth.Identity, error) {
	if code != "good-code" || nonce == "" {
		return auth.Identity{}, errors.New("exchange refused")
	}
	return p.id, nil
}

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	store    *sqlite.Store
	broker   *feed.MemoryBroker
	sessions *auth.Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith lets a test adjust deps before the router is built.
func newTestEnvWith(t *testing.T, tweak func(*deps.Deps)) *testEnv {
	t.Helper()
	log := logger.Nop()
	broker := feed.NewMemoryBroker(log)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "smartmarks.db"), broker, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sessions := auth.NewSessions("0123456789abcdef0123456789abcdef", time.Hour, auth.NewMemorySessionStore(), log)
	d := deps.Deps{
		Logger:          log,
		StartTime:       time.Now(),
		Version:         "test",
		RateLimitBurst:  100,
		RateLimitPerMin: 100,
		RequestTimeout:  5 * time.Second,
		Store:           store,
		Feed:            broker,
		Sessions:        sessions,
		SessionBackend:  "memory",
		Provider:        fakeProvider{id: auth.Identity{UserID: "alice", Email: "alice@example.com"}},
		Bookmarks: bookmarks.NewService(bookmarks.Options{
			Store:    store,
			Sessions: sessions,
			Logger:   log,
		}),
		LivePingInterval: time.Second,
		LiveWriteTimeout: time.Second,
	}

	if tweak != nil {
		tweak(&d)
	}
	srv := httptest.NewServer(NewRouter(log, d))
	t.Cleanup(srv.Close)

	return &testEnv{
		srv: srv,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		store:    store,
		broker:   broker,
		sessions: sessions,
	}
}

func (e *testEnv) signIn(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	token, _, err := e.sessions.Issue(context.Background(), auth.Identity{UserID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func decodeResult(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) seed(t *testing.T, owner, title string) domain.Bookmark {
	t.Helper()
	sc, err := e.store.As(owner)
	require.NoError(t, err)
	b, err := sc.Insert(context.Background(), domain.Bookmark{URL: "https://example.com/" + title, Title: title})
	require.NoError(t, err)
	return b
}

func TestBookmarksRedirectsWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	for _, cookie := range []*http.Cookie{
		nil,
		{Name: auth.CookieName, Value: "forged"},
	} {
		var cookies []*http.Cookie
		if cookie != nil {
			cookies = append(cookies, cookie)
		}
		resp := env.do(t, http.MethodGet, "/bookmarks", "", cookies...)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	}
}

func TestBookmarksShowsOnlyOwnBookmarks(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice", "alice-first")
	env.seed(t, "bob", "bob-secret")
	env.seed(t, "alice", "alice-second")

	resp := env.do(t, http.MethodGet, "/bookmarks", "", env.signIn(t, "alice"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)

	assert.Contains(t, body, "alice@example.com")
	assert.Contains(t, body, "Sign Out")
	assert.Contains(t, body, "2 bookmarks")
	assert.Contains(t, body, "alice-first")
	assert.Contains(t, body, "alice-second")
	assert.NotContains(t, body, "bob-secret")
	assert.Less(t, strings.Index(body, "alice-second"), strings.Index(body, "alice-first"), "newest first")
}

func TestBookmarksEmptyState(t *testing.T) {
	env := newTestEnv(t)

	body := readBody(t, env.do(t, http.MethodGet, "/bookmarks", "", env.signIn(t, "carol")))
	assert.Contains(t, body, "No bookmarks")
	assert.Contains(t, body, "Get started by adding your first bookmark.")
	assert.Contains(t, body, "0 bookmarks")
}

func TestBookmarksPageLeavesRemovalToTheFeed(t *testing.T) {
	env := newTestEnv(t)

	body := readBody(t, env.do(t, http.MethodGet, "/bookmarks", "", env.signIn(t, "alice")))
	assert.Contains(t, body, "/bookmarks/live")
	assert.NotContains(t, body, "location.reload")
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Sign in with Google")

	resp = env.do(t, http.MethodGet, "/", "", env.signIn(t, "alice"))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/bookmarks", resp.Header.Get("Location"))
}

func TestSignInFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	authURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example", authURL.Host)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	loginCookies := resp.Cookies()

	t.Run("state mismatch", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/auth/callback?state=other&code=good-code", "", loginCookies...)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/?error=login", resp.Header.Get("Location"))
	})

	t.Run("bad code", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/auth/callback?state="+state+"&code=bad", "", loginCookies...)
		assert.Equal(t, "/?error=login", resp.Header.Get("Location"))
	})

	t.Run("success", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/auth/callback?state="+state+"&code=good-code", "", loginCookies...)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/bookmarks", resp.Header.Get("Location"))

		var session *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == auth.CookieName {
				session = c
			}
		}
		require.NotNil(t, session)
		assert.True(t, session.HttpOnly)

		page := env.do(t, http.MethodGet, "/bookmarks", "", session)
		assert.Equal(t, http.StatusOK, page.StatusCode)
	})
}

func TestLandingShowsLoginFailure(t *testing.T) {
	env := newTestEnv(t)
	body := readBody(t, env.do(t, http.MethodGet, "/?error=login", ""))
	assert.Contains(t, body, "Sign-in failed")
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t, "alice")

	resp := env.do(t, http.MethodPost, "/auth/logout", "", cookie)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, err := env.sessions.Verify(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	resp = env.do(t, http.MethodGet, "/bookmarks", "", cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestCreateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signIn(t, "alice")

	res := decodeResult(t, env.do(t, http.MethodPost, "/bookmarks",
		`{"url":"https://go.dev","title":"Go","user_id":"mallory"}`, alice))
	assert.Equal(t, true, res["success"])

	sc, err := env.store.As("alice")
	require.NoError(t, err)
	items, err := sc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].OwnerID)

	mallory, err := env.store.As("mallory")
	require.NoError(t, err)
	other, err := mallory.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, other)

	res = decodeResult(t, env.do(t, http.MethodPost, "/bookmarks/"+items[0].ID+"/delete", "", alice))
	assert.Equal(t, true, res["success"])
	items, err = sc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateErrors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signIn(t, "alice")

	tests := []struct {
		name    string
		body    string
		cookies []*http.Cookie
		want    string
	}{
		{name: "not signed in", body: `{"url":"https://go.dev","title":"Go"}`, want: domain.ErrUnauthenticated.Message},
		{name: "invalid url", body: `{"url":"not a url","title":"Go"}`, cookies: []*http.Cookie{alice}, want: domain.MsgInvalidURL},
		{name: "missing title", body: `{"url":"https://go.dev","title":"  "}`, cookies: []*http.Cookie{alice}, want: domain.MsgFieldsRequired},
		{name: "garbage", body: `{`, cookies: []*http.Cookie{alice}, want: "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := decodeResult(t, env.do(t, http.MethodPost, "/bookmarks", tt.body, tt.cookies...))
			assert.Equal(t, tt.want, res["error"])
			assert.Nil(t, res["success"])
		})
	}

	sc, err := env.store.As("alice")
	require.NoError(t, err)
	items, err := sc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "nothing written on failure")
}

func TestMutationRateLimitIsPerUser(t *testing.T) {
	e := newTestEnvWith(t, func(d *deps.Deps) {
		d.RateLimitBurst = 1
		d.RateLimitPerMin = 1
	})
	alice := e.signIn(t, "alice")
	bob := e.signIn(t, "bob")
	body := `{"url":"https://go.dev","title":"Go"}`

	// all callers share the loopback address
	assert.Equal(t, true, decodeResult(t, e.do(t, http.MethodPost, "/bookmarks", body, alice))["success"])
	assert.Equal(t, true, decodeResult(t, e.do(t, http.MethodPost, "/bookmarks", body, bob))["success"])

	resp := e.do(t, http.MethodPost, "/bookmarks", body, alice)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// anonymous callers fall back to the client address
	assert.Equal(t, "Not authenticated", decodeResult(t, e.do(t, http.MethodPost, "/bookmarks", body))["error"])
	resp = e.do(t, http.MethodPost, "/bookmarks", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestDeleteForeignBookmarkIsNoop(t *testing.T) {
	env := newTestEnv(t)
	b := env.seed(t, "bob", "bob-only")

	res := decodeResult(t, env.do(t, http.MethodPost, "/bookmarks/"+b.ID+"/delete", "", env.signIn(t, "alice")))
	assert.Equal(t, true, res["success"])

	sc, err := env.store.As("bob")
	require.NoError(t, err)
	_, found, err := sc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLiveViewOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signIn(t, "alice")

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/bookmarks/live"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err, "live view needs a session")
	if resp != nil {
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Cookie": {alice.String()}})
	require.NoError(t, err)
	defer conn.Close()

	read := func() live.ServerMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg live.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, live.MsgRender, first.Type)
	assert.Zero(t, first.Count)
	assert.Contains(t, first.HTML, "No bookmarks")

	require.Eventually(t, func() bool { return env.broker.Subscribers(feed.OwnerFilter("alice")) == 1 },
		2*time.Second, 5*time.Millisecond)

	res := decodeResult(t, env.do(t, http.MethodPost, "/bookmarks", `{"url":"https://go.dev","title":"Go"}`, alice))
	require.Equal(t, true, res["success"])

	msg := read()
	assert.Equal(t, live.MsgRender, msg.Type)
	assert.Equal(t, 1, msg.Count)
	assert.Contains(t, msg.HTML, "https://go.dev")
	assert.Contains(t, msg.HTML, `rel="noopener noreferrer"`)
}

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])

	resp = env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/infra", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var infra struct {
		Status     string                    `json:"status"`
		Components map[string]map[string]any `json:"components"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infra))
	assert.Equal(t, "ok", infra.Status)
	assert.Equal(t, "memory", infra.Components["feed"]["mode"])
	assert.Equal(t, "memory", infra.Components["sessions"]["mode"])
	assert.Equal(t, "sqlite", infra.Components["store"]["mode"])
}

func TestReadyzFailsWhenStoreIsDown(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	resp := env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
