package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/todoapp/shared-todo-api/internal/middleware"
	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/service"
	"github.com/todoapp/shared-todo-api/pkg/config"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service. The refresh token
// travels in an http-only cookie; the access token in the response body.
type AuthHandler struct {
	service    *service.AuthService
	metrics    *service.MetricsService
	cookieName string
	refreshTTL time.Duration
	secureOnly bool
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, metrics *service.MetricsService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		service:    svc,
		metrics:    metrics,
		cookieName: cfg.JWT.RefreshCookieName,
		refreshTTL: cfg.JWT.RefreshExpiration,
		secureOnly: cfg.Env == config.EnvProduction,
	}
}

// Signup godoc
// @Summary Register a new account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	info, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}

// Login godoc
// @Summary Authenticate by login id and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	user, pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordLogin(string(models.ProviderLocal), false)
		response.Error(c, err)
		return
	}
	h.metrics.RecordLogin(string(models.ProviderLocal), true)

	h.setRefreshCookie(c, pair.RefreshToken)
	response.JSON(c, http.StatusOK, models.LoginResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   int64(h.service.AccessTTL().Seconds()),
		IssuedAt:    time.Now().UTC(),
		User:        user.Info(),
	}, nil)
}

// Reissue godoc
// @Summary Rotate the refresh token and mint a new access token
// @Description Reads the refresh token from its cookie, falling back to the request body.
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/reissue [post]
func (h *AuthHandler) Reissue(c *gin.Context) {
	presented := h.refreshTokenFromRequest(c)
	if presented == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidRefreshToken, ""))
		return
	}

	user, pair, err := h.service.Reissue(c.Request.Context(), presented)
	if err != nil {
		h.metrics.RecordReissue(false)
		// Only drop the cookie when the token itself was rejected. On an
		// infrastructure failure it may still be good for a retry.
		if refreshRejected(err) {
			h.clearRefreshCookie(c)
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordReissue(true)

	h.setRefreshCookie(c, pair.RefreshToken)
	response.JSON(c, http.StatusOK, models.LoginResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   int64(h.service.AccessTTL().Seconds()),
		IssuedAt:    time.Now().UTC(),
		User:        user.Info(),
	}, nil)
}

// Logout godoc
// @Summary End the current session
// @Description Revokes the access token for its remaining lifetime and deletes the stored refresh token.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 204
// @Failure 503 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	accessToken := middleware.ExtractToken(c)
	refreshToken := h.refreshTokenFromRequest(c)

	revoked, err := h.service.Logout(c.Request.Context(), accessToken, refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	if revoked {
		h.metrics.RecordRevocation()
	}

	h.clearRefreshCookie(c)
	response.NoContent(c)
}

// CheckLoginID godoc
// @Summary Check login id availability
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.CheckLoginIDRequest true "Login id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/check-login-id [post]
func (h *AuthHandler) CheckLoginID(c *gin.Context) {
	var req models.CheckLoginIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.CheckLoginID(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// refreshRejected reports whether a reissue failure means the presented
// refresh token is dead for good, as opposed to a transient store error.
func refreshRejected(err error) bool {
	switch appErrors.FromError(err).Code {
	case appErrors.ErrInvalidRefreshToken.Code,
		appErrors.ErrExpiredToken.Code,
		appErrors.ErrRefreshTokenNotFound.Code,
		appErrors.ErrAccountNotFound.Code:
		return true
	}
	return false
}

func (h *AuthHandler) refreshTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(h.cookieName); err == nil && cookie != "" {
		return cookie
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&payload); err == nil {
		return payload.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.refreshTTL.Seconds()), "/", "", h.secureOnly, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureOnly, true)
}
