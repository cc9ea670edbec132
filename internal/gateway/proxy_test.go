package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func proxyEngine(t *testing.T, routes []Route, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	proxy := NewProxy(routes, nil, zap.NewNop())

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.ContextKeyUserID, userID)
			c.Set(middleware.ContextKeyUserRole, "user")
		}
	})
	r.NoRoute(proxy.Forward)
	return r
}

func mustRoute(t *testing.T, prefix, target string, keepCookies bool) Route {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	return Route{Prefix: prefix, Target: u, KeepCookies: keepCookies}
}

func TestForwardInjectsIdentityAndStripsCookies(t *testing.T) {
	var got *http.Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{},"error":null,"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer backend.Close()

	r := proxyEngine(t, []Route{mustRoute(t, "/api/v1/pets", backend.URL, false)}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pets?limit=3", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "secret"})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "/api/v1/pets", got.URL.Path)
	assert.Equal(t, "limit=3", got.URL.RawQuery)
	assert.Equal(t, "user-1", got.Header.Get(middleware.HeaderUserID))
	assert.Equal(t, "user", got.Header.Get(middleware.HeaderUserRole))
	assert.NotEmpty(t, got.Header.Get(middleware.HeaderRequestID))
	assert.Empty(t, got.Header.Get("Cookie"))
}

func TestForwardKeepsCookiesForAuthPrefix(t *testing.T) {
	var got *http.Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.Write([]byte(`{"success":true,"data":{},"error":null,"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer backend.Close()

	r := proxyEngine(t, []Route{mustRoute(t, "/api/v1/auth", backend.URL, true)}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "tok"})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Contains(t, got.Header.Get("Cookie"), "refresh_token=tok")
}

func TestForwardPreservesEachSetCookie(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "access_token=a; Path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "refresh_token=b; Path=/api/v1/auth/refresh; HttpOnly")
		w.Write([]byte(`{"success":true,"data":{},"error":null,"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer backend.Close()

	r := proxyEngine(t, []Route{mustRoute(t, "/api/v1/auth", backend.URL, true)}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	cookies := w.Header().Values("Set-Cookie")
	require.Len(t, cookies, 2)
	assert.Contains(t, cookies[0], "access_token=a")
	assert.Contains(t, cookies[1], "refresh_token=b")
}

func TestForwardWrapsNonEnvelopeError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html>404 page not found</html>"))
	}))
	defer backend.Close()

	r := proxyEngine(t, []Route{mustRoute(t, "/api/v1/pets", backend.URL, false)}, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/pets/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var envelope struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "HTTP_ERROR", envelope.Error.Code)
	assert.NotEmpty(t, envelope.Timestamp)
}

func TestForwardPassesThroughConformingError(t *testing.T) {
	body := `{"success":false,"data":null,"error":{"code":"PET_NOT_FOUND","message":"pet not found"},"timestamp":"2026-01-01T00:00:00Z"}`
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(body))
	}))
	defer backend.Close()

	r := proxyEngine(t, []Route{mustRoute(t, "/api/v1/pets", backend.URL, false)}, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/pets/x", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, body, w.Body.String())
}

func TestForwardUnknownPrefix(t *testing.T) {
	r := proxyEngine(t, nil, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestForwardBackendDown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	r := proxyEngine(t, []Route{mustRoute(t, "/api/v1/pets", backend.URL, false)}, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/pets", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SERVICE_UNAVAILABLE")
}
