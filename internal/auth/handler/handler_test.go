package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyfmidi/shuxinyuan-express/internal/auth"
	"github.com/jyfmidi/shuxinyuan-express/internal/auth/handler"
	"github.com/jyfmidi/shuxinyuan-express/internal/middleware"
	"github.com/jyfmidi/shuxinyuan-express/internal/session"
)

const basePath = "/api/wechat"

// fakeProvider satisfies provider.SSOProvider for handler tests.
type fakeProvider struct {
	result      *auth.ExchangeResult
	accessToken string
	err         error
}

func (f *fakeProvider) BuildLoginURL(state string) string {
	return "https://open.weixin.qq.com/connect/oauth2/authorize?state=" + state + "#wechat_redirect"
}

func (f *fakeProvider) Exchange(context.Context, string) (*auth.ExchangeResult, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.result, f.accessToken, nil
}

// failingStore wraps a working store with a broken Delete.
type failingStore struct {
	session.Store
}

func (f *failingStore) Delete(context.Context, string) error {
	return errors.New("redis gone")
}

func defaultOptions() handler.Options {
	return handler.Options{
		FrontendOrigin:  "http://frontend.example.com",
		SessionTTL:      time.Hour,
		EnableTestLogin: true,
	}
}

func newTestRouter(t *testing.T, p *fakeProvider, store session.Store, opts handler.Options) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := handler.NewHandler(p, store, opts)
	h.RegisterRoutes(router, basePath, middleware.NewAuthMiddleware(store))

	return router
}

func doJSON(router *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLoginURL(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), defaultOptions())

	w := doJSON(router, http.MethodGet, basePath+"/login_url", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	state, _ := body["state"].(string)
	require.NotEmpty(t, state)
	assert.Contains(t, body["url"], "state="+state)

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "__oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie, "state must be pinned for callback verification")
	assert.Equal(t, state, stateCookie.Value)
}

func TestCallbackWithoutCode(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), defaultOptions())

	w := doJSON(router, http.MethodGet, basePath+"/callback", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No code", w.Body.String())
}

func TestCallbackSuccessRedirectsToFrontend(t *testing.T) {
	p := &fakeProvider{
		result: &auth.ExchangeResult{
			Profile:  auth.UserProfile{UserID: "zhangsan", Name: "Zhang San"},
			Complete: true,
		},
		accessToken: "tok-1",
	}
	store := session.NewMemoryStore()
	router := newTestRouter(t, p, store, defaultOptions())

	w := doJSON(router, http.MethodGet, basePath+"/callback?code=code-1&state=s1", "")
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "frontend.example.com", loc.Host)
	assert.Equal(t, "zhangsan", loc.Query().Get("userId"))
	assert.Equal(t, "Zhang San", loc.Query().Get("name"))

	// The issued cookie resolves to the new session.
	cookie := sessionCookie(t, w)
	me := doJSON(router, http.MethodGet, basePath+"/me", "", cookie)
	require.Equal(t, http.StatusOK, me.Code)

	body := decodeBody(t, me)
	assert.Equal(t, true, body["isLoggedIn"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "zhangsan", user["userId"])
}

func TestCallbackStateMismatchIsRejected(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), defaultOptions())

	w := doJSON(router, http.MethodGet, basePath+"/callback?code=c&state=evil", "",
		&http.Cookie{Name: "__oauth_state", Value: "expected"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCallbackExchangeFailure(t *testing.T) {
	p := &fakeProvider{
		err: fmt.Errorf("%w: gettoken timeout", auth.ErrAuthInfrastructure),
	}
	store := session.NewMemoryStore()
	router := newTestRouter(t, p, store, defaultOptions())

	w := doJSON(router, http.MethodGet, basePath+"/callback?code=code-1", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "WeChat login error", w.Body.String())

	// No session may be committed on failure.
	_, hasCookie := func() (*http.Cookie, bool) {
		for _, c := range w.Result().Cookies() {
			if c.Name == session.CookieName {
				return c, true
			}
		}
		return nil, false
	}()
	assert.False(t, hasCookie)
}

func TestTestLoginScenario(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), defaultOptions())

	w := doJSON(router, http.MethodPost, basePath+"/test_login", `{"userId": "alice"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["userId"])
	assert.Equal(t, "alice", user["name"])
	assert.Equal(t, true, user["isTestUser"])

	me := doJSON(router, http.MethodGet, basePath+"/me", "", sessionCookie(t, w))
	require.Equal(t, http.StatusOK, me.Code)

	meBody := decodeBody(t, me)
	assert.Equal(t, true, meBody["isLoggedIn"])
	assert.Equal(t, "alice", meBody["user"].(map[string]any)["userId"])
}

func TestTestLoginRejectsBlankUserID(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), defaultOptions())

	w := doJSON(router, http.MethodPost, basePath+"/test_login", `{"userId": "  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestLoginGatedInProduction(t *testing.T) {
	opts := defaultOptions()
	opts.EnableTestLogin = false
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), opts)

	w := doJSON(router, http.MethodPost, basePath+"/test_login", `{"userId": "alice"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMeWithoutSession(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), defaultOptions())

	w := doJSON(router, http.MethodGet, basePath+"/me", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["isLoggedIn"])
	assert.NotEmpty(t, body["error"])
}

func TestLogoutInvalidatesSession(t *testing.T) {
	store := session.NewMemoryStore()
	router := newTestRouter(t, &fakeProvider{}, store, defaultOptions())

	login := doJSON(router, http.MethodPost, basePath+"/test_login", `{"userId": "alice"}`)
	cookie := sessionCookie(t, login)

	out := doJSON(router, http.MethodPost, basePath+"/logout", "", cookie)
	require.Equal(t, http.StatusOK, out.Code)
	assert.NotEmpty(t, decodeBody(t, out)["message"])

	// The stale cookie no longer authenticates.
	me := doJSON(router, http.MethodGet, basePath+"/me", "", cookie)
	require.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	router := newTestRouter(t, &fakeProvider{}, session.NewMemoryStore(), defaultOptions())

	// Anonymous logout, then logout with a stale cookie: both succeed.
	w := doJSON(router, http.MethodPost, basePath+"/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, basePath+"/logout", "",
		&http.Cookie{Name: session.CookieName, Value: "long-gone"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutStoreFailureLeavesSessionIntact(t *testing.T) {
	store := &failingStore{Store: session.NewMemoryStore()}
	router := newTestRouter(t, &fakeProvider{}, store, defaultOptions())

	login := doJSON(router, http.MethodPost, basePath+"/test_login", `{"userId": "alice"}`)
	cookie := sessionCookie(t, login)

	out := doJSON(router, http.MethodPost, basePath+"/logout", "", cookie)
	require.Equal(t, http.StatusInternalServerError, out.Code)

	// The session is still fully usable.
	me := doJSON(router, http.MethodGet, basePath+"/me", "", cookie)
	require.Equal(t, http.StatusOK, me.Code)
}
