package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/service"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated principal.
const ContextUserKey = "currentUser"

// JWT protects routes by requiring a valid, non-revoked access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := authService.Authenticate(c.Request.Context(), ExtractToken(c))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, principal)
		c.Next()
	}
}

// OptionalJWT attaches the principal when a usable token is present but does
// not block anonymous requests. A revoked token still blocks: presenting one
// is never treated as anonymous.
func OptionalJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c)
		if raw == "" {
			c.Next()
			return
		}

		principal, err := authService.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if appErrors.FromError(err).Code == appErrors.ErrTokenRevoked.Code {
				response.Error(c, err)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(ContextUserKey, principal)
		c.Next()
	}
}

// ExtractToken pulls the access token from the Authorization header. A
// "Bearer " prefix is stripped when present; otherwise the whole header
// value is taken as the token.
func ExtractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}

// CurrentPrincipal returns the authenticated principal set by JWT.
func CurrentPrincipal(c *gin.Context) (*models.Principal, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*models.Principal)
	return principal, ok
}
