package handler

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/shared-todo-api/internal/middleware"
	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/repository"
	"github.com/todoapp/shared-todo-api/internal/service"
	"github.com/todoapp/shared-todo-api/internal/token"
	"github.com/todoapp/shared-todo-api/pkg/config"
)

type handlerUserStore struct {
	users map[string]*models.User
}

func (s *handlerUserStore) FindByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	user, ok := s.users[loginID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *handlerUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *handlerUserStore) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	_, ok := s.users[loginID]
	return ok, nil
}

func (s *handlerUserStore) Create(ctx context.Context, user *models.User) error {
	user.ID = int64(len(s.users) + 1)
	s.users[user.LoginID] = user
	return nil
}

type handlerRefreshStore struct {
	mu      sync.Mutex
	tokens  map[string]string
	findErr error
}

func (s *handlerRefreshStore) Save(ctx context.Context, loginID, tok string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[loginID] = tok
	return nil
}

func (s *handlerRefreshStore) Find(ctx context.Context, loginID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return "", s.findErr
	}
	tok, ok := s.tokens[loginID]
	if !ok {
		return "", repository.ErrTokenNotFound
	}
	return tok, nil
}

func (s *handlerRefreshStore) Replace(ctx context.Context, loginID, presented, next string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[loginID]
	if !ok {
		return repository.ErrTokenNotFound
	}
	if current != presented {
		return repository.ErrTokenMismatch
	}
	s.tokens[loginID] = next
	return nil
}

func (s *handlerRefreshStore) Delete(ctx context.Context, loginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, loginID)
	return nil
}

type handlerRevocations struct {
	revoked map[string]bool
}

func (s *handlerRevocations) Revoke(ctx context.Context, accessToken string, ttl time.Duration) error {
	s.revoked[accessToken] = true
	return nil
}

func (s *handlerRevocations) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	return s.revoked[accessToken], nil
}

type clockSource struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clockSource) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clockSource) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupAuthRouter(t *testing.T) (*gin.Engine, *clockSource, *handlerRefreshStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Env: config.EnvDevelopment}
	cfg.JWT = config.JWTConfig{
		AccessSecret:      base64.StdEncoding.EncodeToString([]byte("handler-access")),
		RefreshSecret:     base64.StdEncoding.EncodeToString([]byte("handler-refresh")),
		AccessExpiration:  30 * time.Minute,
		RefreshExpiration: 7 * 24 * time.Hour,
		RefreshCookieName: "refresh_token",
	}

	codec, err := token.NewCodec(cfg.JWT)
	require.NoError(t, err)
	clock := &clockSource{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec.WithClock(clock.Now)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &handlerUserStore{users: map[string]*models.User{
		"alice": {
			ID:           1,
			LoginID:      "alice",
			PasswordHash: sql.NullString{String: string(hash), Valid: true},
			Nickname:     "Alice",
			UserCode:     "CODEALICE1",
			Provider:     models.ProviderLocal,
			Status:       models.UserStatusCreated,
		},
	}}
	refresh := &handlerRefreshStore{tokens: make(map[string]string)}
	revocations := &handlerRevocations{revoked: make(map[string]bool)}

	authSvc := service.NewAuthService(users, refresh, revocations, codec, nil, nil)
	metricsSvc := service.NewMetricsService()
	authHandler := NewAuthHandler(authSvc, metricsSvc, cfg)

	r := gin.New()
	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/reissue", authHandler.Reissue)
	r.POST("/auth/logout", authHandler.Logout)
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.GET("/protected", middleware.JWT(authSvc), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, clock, refresh
}

func doLogin(t *testing.T, r *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"login_id":"alice","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "refresh_token" {
			return cookie
		}
	}
	t.Fatal("refresh_token cookie not set")
	return nil
}

func TestLoginSetsHTTPOnlyRefreshCookie(t *testing.T) {
	r, _, _ := setupAuthRouter(t)

	w := doLogin(t, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
	// The refresh token never appears in the body.
	assert.NotContains(t, w.Body.String(), "refresh_token")

	cookie := refreshCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
}

func TestLoginFailureRevealsNothing(t *testing.T) {
	r, _, _ := setupAuthRouter(t)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	unknownID := post(`{"login_id":"nobody","password":"whatever"}`)
	wrongPw := post(`{"login_id":"alice","password":"not-the-password"}`)

	assert.Equal(t, http.StatusUnauthorized, unknownID.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Contains(t, unknownID.Body.String(), "check your login id or password")
	// An unknown login id and a wrong password for an existing account must
	// be indistinguishable on the wire, byte for byte.
	assert.Equal(t, unknownID.Body.String(), wrongPw.Body.String())
}

func TestReissueFromCookieRotates(t *testing.T) {
	r, clock, _ := setupAuthRouter(t)

	login := doLogin(t, r)
	first := refreshCookie(t, login)

	clock.Advance(time.Second)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/reissue", nil)
	req.AddCookie(first)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	rotated := refreshCookie(t, w)
	assert.NotEqual(t, first.Value, rotated.Value)

	// The consumed cookie is now stale.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/reissue", nil)
	req.AddCookie(first)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "EXPIRED_TOKEN")
}

func TestLogoutClearsCookieAndRevokesAccess(t *testing.T) {
	r, _, _ := setupAuthRouter(t)

	login := doLogin(t, r)
	cookie := refreshCookie(t, login)
	var body struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))
	access := body.Data.AccessToken
	require.NotEmpty(t, access)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	req.AddCookie(cookie)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	cleared := refreshCookie(t, w)
	assert.Empty(t, cleared.Value)

	// The revoked access token no longer opens protected routes.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReissueKeepsCookieOnStoreOutage(t *testing.T) {
	r, _, refresh := setupAuthRouter(t)

	login := doLogin(t, r)
	cookie := refreshCookie(t, login)

	refresh.findErr = errors.New("connection refused")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/reissue", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	// The token may still be good; a transient outage must not discard it.
	for _, set := range w.Result().Cookies() {
		assert.NotEqual(t, "refresh_token", set.Name, "outage response must not touch the refresh cookie")
	}

	// Once the store recovers, the same cookie still rotates.
	refresh.findErr = nil
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/reissue", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func scrapeMetric(t *testing.T, r *gin.Engine, name string) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if strings.HasPrefix(line, name+" ") {
			return strings.TrimPrefix(line, name+" ")
		}
	}
	return ""
}

func TestLogoutCountsOnlyRealRevocations(t *testing.T) {
	r, clock, _ := setupAuthRouter(t)

	login := doLogin(t, r)
	var body struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))

	// Let the access token expire on its own; logout then writes no
	// revocation entry and must not bump the counter.
	clock.Advance(time.Hour)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+body.Data.AccessToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", scrapeMetric(t, r, "auth_tokens_revoked_total"))

	// A live token revoked at logout does count.
	login = doLogin(t, r)
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+body.Data.AccessToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "1", scrapeMetric(t, r, "auth_tokens_revoked_total"))
}
