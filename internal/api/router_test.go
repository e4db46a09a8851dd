package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/edgegate/internal/api"
	"github.com/edgegate/edgegate/internal/api/handler"
	"github.com/edgegate/edgegate/internal/api/middleware"
	"github.com/edgegate/edgegate/internal/api/models"
	"github.com/edgegate/edgegate/internal/auth"
	"github.com/edgegate/edgegate/internal/health"
	"github.com/edgegate/edgegate/internal/proxy"
	"github.com/edgegate/edgegate/internal/registry"
	"github.com/edgegate/edgegate/internal/user"
)

const (
	testUsername = "alice"
	testEmail    = "alice@example.com"
	testPassword = "correct-horse-battery"
)

var (
	keysOnce sync.Once
	testKeys auth.Keys
	keysErr  error
)

func loadKeys(t *testing.T) auth.Keys {
	t.Helper()
	keysOnce.Do(func() {
		testKeys.Access, keysErr = auth.GenerateKeyPair(2048)
		if keysErr != nil {
			return
		}
		testKeys.Refresh, keysErr = auth.GenerateKeyPair(2048)
	})
	require.NoError(t, keysErr)
	return testKeys
}

type testEnv struct {
	router   http.Handler
	registry *registry.Registry
	sessions *auth.MemorySessionStore
	codec    *auth.Codec
	keys     auth.Keys
	userID   int64
}

type envOption func(*api.RouterConfig)

func withDependencies(deps ...handler.Dependency) envOption {
	return func(cfg *api.RouterConfig) { cfg.Dependencies = deps }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	keys := loadKeys(t)

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	repo := user.NewInMemoryRepository()
	account := &user.User{
		Username:     testUsername,
		Email:        testEmail,
		PasswordHash: hash,
		FirstName:    "Alice",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), account))
	users := user.NewService(user.ServiceConfig{Repo: repo, Logger: logger})

	codec := auth.NewCodec(auth.CodecConfig{})
	sessions := auth.NewMemorySessionStore(nil)
	gate := auth.NewGate(auth.GateConfig{
		Codec:    codec,
		Keys:     keys.Access,
		Sessions: sessions,
		Logger:   logger,
	})
	authService := auth.NewService(auth.ServiceConfig{
		Codec:    codec,
		Keys:     keys,
		Sessions: sessions,
		Accounts: users,
		Profiles: users,
		Logger:   logger,
	})

	reg := registry.New()
	breakers := proxy.NewBreakerSet(proxy.DefaultBreakerConfig())
	dispatcher := proxy.NewDispatcher(proxy.Config{
		Registry: reg,
		Breakers: breakers,
		Logger:   logger,
	})
	prober := health.NewProber(health.Config{
		Registry: reg,
		Logger:   logger,
		Timeout:  time.Second,
	})
	jwks, err := auth.PublicKeySet(keys.Access)
	require.NoError(t, err)

	cfg := api.RouterConfig{
		Version:     "test",
		BuildTime:   "2024-01-01T00:00:00Z",
		Logger:      logger,
		Gate:        gate,
		AuthService: authService,
		UserService: users,
		Registry:    reg,
		Prober:      prober,
		Dispatcher:  dispatcher,
		Breakers:    breakers,
		JWKS:        jwks,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testEnv{
		router:   api.NewRouter(cfg),
		registry: reg,
		sessions: sessions,
		codec:    codec,
		keys:     keys,
		userID:   account.ID,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) login(t *testing.T) auth.TokenResponse {
	t.Helper()
	w := e.postJSON("/v1/login_by_email", auth.LoginRequest{Username: testEmail, Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tokens auth.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	return tokens
}

func (e *testEnv) get(path, accessToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return e.do(req)
}

func (e *testEnv) register(t *testing.T, name, baseURL string, requireAuth bool) {
	t.Helper()
	require.NoError(t, e.registry.Register(registry.ServiceConfig{
		Name:            name,
		BaseURL:         baseURL,
		HealthCheckPath: "/health",
		Timeout:         2 * time.Second,
		RequireAuth:     requireAuth,
	}))
}

type echoed struct {
	Path      string `json:"path"`
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// echoUpstream replies 202 with the identity headers it observed.
func echoUpstream(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.echo+json")
		w.Header().Set("X-Upstream", "echo")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(echoed{
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			UserID:    r.Header.Get(proxy.HeaderUserID),
			SessionID: r.Header.Get(proxy.HeaderSessionID),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/v1/ops/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var got models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.HealthStatusOK, got.Status)
	assert.Equal(t, "test", got.Details["version"])
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRouter_ReadinessCheck(t *testing.T) {
	t.Run("dependencies reachable", func(t *testing.T) {
		sessions := auth.NewMemorySessionStore(nil)
		env := newTestEnv(t, withDependencies(handler.Dependency{Name: "session-store", Pinger: sessions}))

		w := env.get("/v1/ops/ready", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var got models.Health
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, models.HealthStatusOK, got.Status)
		assert.Equal(t, string(models.HealthStatusOK), got.Details["session-store"])
	})

	t.Run("dependency down", func(t *testing.T) {
		down := pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") })
		env := newTestEnv(t, withDependencies(handler.Dependency{Name: "session-store", Pinger: down}))

		w := env.get("/v1/ops/ready", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var got models.Health
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, models.HealthStatusFail, got.Status)
		assert.NotContains(t, w.Body.String(), "refused")
	})
}

func TestRouter_SystemStatus(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/ops/status", "").Code)

	tokens := env.login(t)
	w := env.get("/v1/ops/status", tokens.AccessToken)

	assert.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
}

func TestRouter_SystemStatusSkipsSessionCheck(t *testing.T) {
	env := newTestEnv(t)
	tokens := env.login(t)

	require.NoError(t, env.sessions.EndSession(context.Background(), env.userID))

	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/me", tokens.AccessToken).Code)
	assert.Equal(t, http.StatusOK, env.get("/v1/ops/status", tokens.AccessToken).Code)
	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/ops/status", "not-a-token").Code)
}

func TestRouter_Login(t *testing.T) {
	env := newTestEnv(t)

	tokens := env.login(t)

	assert.Equal(t, "Token", tokens.Type)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(3600), tokens.ExpireIn)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := env.codec.Verify(tokens.AccessToken, env.keys.Access)
	require.NoError(t, err)
	assert.Equal(t, env.userID, claims.SubjectID)

	current, err := env.sessions.CurrentSession(context.Background(), env.userID)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, current)
}

func TestRouter_LoginErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"wrong password", auth.LoginRequest{Username: testUsername, Password: "not-the-password"}, http.StatusBadRequest},
		{"unknown account", auth.LoginRequest{Username: "mallory", Password: testPassword}, http.StatusNotFound},
		{"username too short", auth.LoginRequest{Username: "al", Password: testPassword}, http.StatusBadRequest},
		{"password too short", auth.LoginRequest{Username: testUsername, Password: "short"}, http.StatusBadRequest},
		{"not an object", "just a string", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postJSON("/v1/login_by_email", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			assert.NotContains(t, w.Body.String(), "$argon2id")
		})
	}
}

func TestRouter_LoginRejectsNonJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/login_by_email", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_LoginRateLimited(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for i := 0; i <= middleware.AuthRateLimit.RequestLimit; i++ {
		last = env.postJSON("/v1/login_by_email", auth.LoginRequest{Username: "mallory", Password: testPassword}).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRouter_GetMe(t *testing.T) {
	env := newTestEnv(t)
	tokens := env.login(t)

	w := env.get("/v1/me", tokens.AccessToken)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Message string       `json:"message"`
		Data    user.Profile `json:"data"`
		Total   int64        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, testUsername, body.Data.Username)
	assert.Equal(t, testEmail, body.Data.Email)
	assert.Equal(t, int64(1), body.Total)
	assert.NotContains(t, w.Body.String(), "argon2")
}

func TestRouter_GetMe_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/me", "garbage").Code)

	// Signature-valid token without a live session.
	token, err := env.codec.Mint(env.userID, "never-started", time.Hour, env.keys.Access)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/me", token).Code)
}

func TestRouter_LogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	tokens := env.login(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/logout", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := env.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "logged out")

	// The access token is still signature-valid and unexpired, but the session is gone.
	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/me", tokens.AccessToken).Code)
	assert.Equal(t, http.StatusUnauthorized, env.postJSON("/v1/refresh", auth.RefreshRequest{RefreshToken: tokens.RefreshToken}).Code)
}

func TestRouter_SecondLoginRevokesFirst(t *testing.T) {
	env := newTestEnv(t)

	first := env.login(t)
	second := env.login(t)

	assert.Equal(t, http.StatusUnauthorized, env.get("/v1/me", first.AccessToken).Code)
	assert.Equal(t, http.StatusOK, env.get("/v1/me", second.AccessToken).Code)
}

func TestRouter_Refresh(t *testing.T) {
	env := newTestEnv(t)
	tokens := env.login(t)

	w := env.postJSON("/v1/refresh", auth.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var refreshed auth.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.Equal(t, http.StatusOK, env.get("/v1/me", refreshed.AccessToken).Code)

	// An access token is not a refresh token.
	w = env.postJSON("/v1/refresh", auth.RefreshRequest{RefreshToken: tokens.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.postJSON("/v1/refresh", auth.RefreshRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GatewayHealth(t *testing.T) {
	up := echoUpstream(t, nil)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)

	tests := []struct {
		name     string
		services map[string]string
		want     health.Status
	}{
		{"all up", map[string]string{"orders": up.URL, "products": up.URL, "inventory": up.URL}, health.StatusHealthy},
		{"one down", map[string]string{"orders": up.URL, "products": up.URL, "billing": down.URL}, health.StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			for name, baseURL := range tt.services {
				env.register(t, name, baseURL, true)
			}

			w := env.get("/gateway/health", "")

			require.Equal(t, http.StatusOK, w.Code)
			var snap health.Snapshot
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
			assert.Equal(t, tt.want, snap.Status)
			assert.Len(t, snap.Services, 3)
		})
	}
}

func TestRouter_ListServices(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "orders", "http://orders.internal:8080", true)
	env.register(t, "notifications", "http://notify.internal:8080", false)

	assert.Equal(t, http.StatusUnauthorized, env.get("/gateway/services", "").Code)

	tokens := env.login(t)
	w := env.get("/gateway/services", tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Message string                 `json:"message"`
		Data    []registry.ServiceSpec `json:"data"`
		Total   int64                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Total)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "notifications", body.Data[0].Name)
	assert.Equal(t, "orders", body.Data[1].Name)
	require.NotNil(t, body.Data[1].RequireAuth)
	assert.True(t, *body.Data[1].RequireAuth)
}

func TestRouter_RegisterAndRemoveService(t *testing.T) {
	env := newTestEnv(t)
	up := echoUpstream(t, nil)
	tokens := env.login(t)

	spec := map[string]interface{}{
		"name":         "inventory",
		"base_url":     up.URL,
		"require_auth": false,
	}
	data, _ := json.Marshal(spec)
	req := httptest.NewRequest(http.MethodPost, "/gateway/services", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := env.do(req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/gateway/services/inventory", w.Header().Get("Location"))

	got, err := env.registry.Get("inventory")
	require.NoError(t, err)
	assert.Equal(t, registry.DefaultTimeout, got.Timeout)
	assert.False(t, got.RequireAuth)

	assert.Equal(t, http.StatusAccepted, env.get("/gateway/inventory-service/items", "").Code)

	req = httptest.NewRequest(http.MethodDelete, "/gateway/services/inventory", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), up.URL)

	assert.Equal(t, http.StatusNotFound, env.get("/gateway/inventory-service/items", "").Code)

	w = env.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RegisterServiceRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	tokens := env.login(t)

	data := []byte(`{"name":"Bad Name","base_url":"ftp://x"}`)
	req := httptest.NewRequest(http.MethodPost, "/gateway/services", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := env.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.registry.Len())
}

func TestRouter_ProxyInjectsIdentity(t *testing.T) {
	env := newTestEnv(t)
	up := echoUpstream(t, nil)
	env.register(t, "orders", up.URL, true)
	tokens := env.login(t)

	claims, err := env.codec.Verify(tokens.AccessToken, env.keys.Access)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/gateway/orders-service/a/b?x=1", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set(proxy.HeaderUserID, "999")
	w := env.do(req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/vnd.echo+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "echo", w.Header().Get("X-Upstream"))

	var seen echoed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seen))
	assert.Equal(t, "/a/b", seen.Path)
	assert.Equal(t, "x=1", seen.Query)
	assert.Equal(t, claims.Subject, seen.UserID)
	assert.Equal(t, claims.SessionID, seen.SessionID)
}

func TestRouter_ProxyRequiresAuthBeforeDialing(t *testing.T) {
	env := newTestEnv(t)
	var hits atomic.Int32
	up := echoUpstream(t, &hits)
	env.register(t, "orders", up.URL, true)

	w := env.get("/gateway/orders-service/items", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.get("/gateway/orders-service/items", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, int32(0), hits.Load())
}

func TestRouter_ProxyStripsSpoofedIdentityForAnonymous(t *testing.T) {
	env := newTestEnv(t)
	up := echoUpstream(t, nil)
	env.register(t, "notifications", up.URL, false)

	req := httptest.NewRequest(http.MethodPost, "/gateway/notifications-service/send", strings.NewReader(`{}`))
	req.Header.Set(proxy.HeaderUserID, "1")
	req.Header.Set(proxy.HeaderSessionID, "forged")
	w := env.do(req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var seen echoed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seen))
	assert.Empty(t, seen.UserID)
	assert.Empty(t, seen.SessionID)
}

func TestRouter_ProxyUnknownService(t *testing.T) {
	env := newTestEnv(t)

	tests := []string{
		"/gateway/ghost-service/anything",
		"/gateway/ghost-service",
		"/gateway/orders/anything",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			w := env.get(path, "")
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_ProxyUpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "orders", "http://127.0.0.1:1", false)

	w := env.get("/gateway/orders-service/items", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "127.0.0.1")
}

func TestRouter_ProxyPassesUpstreamErrorsVerbatim(t *testing.T) {
	env := newTestEnv(t)
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	}))
	t.Cleanup(up.Close)
	env.register(t, "kettle", up.URL, false)

	w := env.get("/gateway/kettle-service/brew", "")

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestRouter_JWKS(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/gateway/.well-known/jwks.json", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/jwk-set+json", w.Header().Get("Content-Type"))

	var set struct {
		Keys []map[string]interface{} `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, env.keys.Access.ID, set.Keys[0]["kid"])
	assert.Equal(t, "RSA", set.Keys[0]["kty"])
	assert.NotContains(t, set.Keys[0], "d")
}

func TestRouter_SecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/v1/ops/health", "")

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
