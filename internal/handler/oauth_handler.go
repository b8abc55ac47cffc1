package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/service"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/response"
)

// OAuthHandler handles federated login callbacks.
type OAuthHandler struct {
	service *service.OAuthService
	auth    *AuthHandler
	metrics *service.MetricsService
}

// NewOAuthHandler creates a new handler.
func NewOAuthHandler(svc *service.OAuthService, auth *AuthHandler, metrics *service.MetricsService) *OAuthHandler {
	return &OAuthHandler{service: svc, auth: auth, metrics: metrics}
}

// Callback godoc
// @Summary Federated login callback
// @Description Accepts the provider's userinfo payload, finds or provisions the account, and issues a token pair.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param provider path string true "Provider name (google or naver)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/oauth/{provider}/callback [post]
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	var attributes map[string]interface{}
	if err := c.ShouldBindJSON(&attributes); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid userinfo payload"))
		return
	}

	user, pair, err := h.service.Login(c.Request.Context(), provider, attributes)
	if err != nil {
		h.metrics.RecordLogin(provider, false)
		response.Error(c, err)
		return
	}
	h.metrics.RecordLogin(provider, true)

	h.auth.setRefreshCookie(c, pair.RefreshToken)
	response.JSON(c, http.StatusOK, models.LoginResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   int64(h.auth.service.AccessTTL().Seconds()),
		IssuedAt:    time.Now().UTC(),
		User:        user.Info(),
	}, nil)
}
