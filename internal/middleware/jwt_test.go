package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/service"
	"github.com/todoapp/shared-todo-api/internal/token"
	"github.com/todoapp/shared-todo-api/pkg/config"
)

type staticRevocations struct {
	revoked map[string]bool
}

func (s *staticRevocations) Revoke(ctx context.Context, accessToken string, ttl time.Duration) error {
	s.revoked[accessToken] = true
	return nil
}

func (s *staticRevocations) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	return s.revoked[accessToken], nil
}

func setupJWT(t *testing.T) (*service.AuthService, *token.Codec, *staticRevocations) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	codec, err := token.NewCodec(config.JWTConfig{
		AccessSecret:      base64.StdEncoding.EncodeToString([]byte("mw-access-key")),
		RefreshSecret:     base64.StdEncoding.EncodeToString([]byte("mw-refresh-key")),
		AccessExpiration:  30 * time.Minute,
		RefreshExpiration: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	revocations := &staticRevocations{revoked: make(map[string]bool)}
	svc := service.NewAuthService(nil, nil, revocations, codec, nil, nil)
	return svc, codec, revocations
}

func issueAccess(t *testing.T, codec *token.Codec) string {
	t.Helper()
	tok, err := codec.IssueAccessToken(&models.User{
		ID:       42,
		LoginID:  "alice",
		Nickname: "Alice",
		UserCode: "CODE123456",
		Provider: models.ProviderLocal,
	})
	require.NoError(t, err)
	return tok
}

func protectedRouter(svc *service.AuthService) *gin.Engine {
	r := gin.New()
	r.GET("/protected", JWT(svc), func(c *gin.Context) {
		principal, _ := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"login_id": principal.LoginID})
	})
	return r
}

func TestJWTAcceptsBearerAndRawHeader(t *testing.T) {
	svc, codec, _ := setupJWT(t)
	r := protectedRouter(svc)
	access := issueAccess(t, codec)

	for _, header := range []string{"Bearer " + access, access} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "alice")
	}
}

func TestJWTRejectsMissingAndBadTokens(t *testing.T) {
	svc, _, _ := setupJWT(t)
	r := protectedRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "EMPTY_TOKEN")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTRejectsRevokedToken(t *testing.T) {
	svc, codec, revocations := setupJWT(t)
	r := protectedRouter(svc)
	access := issueAccess(t, codec)
	revocations.revoked[access] = true

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestOptionalJWT(t *testing.T) {
	svc, codec, revocations := setupJWT(t)
	r := gin.New()
	r.GET("/open", OptionalJWT(svc), func(c *gin.Context) {
		if principal, ok := CurrentPrincipal(c); ok {
			c.JSON(http.StatusOK, gin.H{"login_id": principal.LoginID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"login_id": "anonymous"})
	})

	// Anonymous passes through.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")

	// A valid token attaches the principal.
	access := issueAccess(t, codec)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "alice")

	// A revoked token is not anonymous; it blocks.
	revocations.revoked[access] = true
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
