package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/todoapp/shared-todo-api/internal/middleware"
	"github.com/todoapp/shared-todo-api/internal/service"
	"github.com/todoapp/shared-todo-api/pkg/config"
	"github.com/todoapp/shared-todo-api/pkg/logger"
	corsmiddleware "github.com/todoapp/shared-todo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/todoapp/shared-todo-api/pkg/middleware/requestid"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	OAuth       *OAuthHandler
	User        *UserHandler
	Board       *BoardHandler
	Task        *TaskHandler
	Invitation  *InvitationHandler
	Attachment  *AttachmentHandler
	Metrics     *MetricsHandler
	AuthService *service.AuthService
}

// NewRouter assembles the gin engine with the full middleware chain and
// route table.
func NewRouter(cfg *config.Config, logr *zap.Logger, metricsSvc *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/reissue", h.Auth.Reissue)
		auth.POST("/check-login-id", h.Auth.CheckLoginID)
		auth.POST("/oauth/:provider/callback", h.OAuth.Callback)
		// Logout revokes whatever tokens accompany the request, so it does
		// not sit behind the JWT guard: a half-dead session can still end
		// itself.
		auth.POST("/logout", h.Auth.Logout)
	}

	// Signed download links authenticate via the URL token itself; the
	// optional guard only attaches a principal for request logging.
	api.GET("/public/attachments/:token",
		middleware.OptionalJWT(h.AuthService), h.Attachment.PublicDownload)

	protected := api.Group("")
	protected.Use(middleware.JWT(h.AuthService))
	{
		users := protected.Group("/users")
		{
			users.GET("/me", h.User.Me)
			users.PATCH("/me/nickname", h.User.UpdateNickname)
			users.PUT("/me/password", h.User.ChangePassword)
			users.POST("/me/password/verify", h.User.VerifyPassword)
		}

		boards := protected.Group("/boards")
		{
			boards.GET("", h.Board.List)
			boards.POST("", h.Board.Create)
			boards.GET("/:id", h.Board.Get)
			boards.PUT("/:id", h.Board.Rename)
			boards.DELETE("/:id", h.Board.Delete)
			boards.GET("/:id/members", h.Board.Members)
			boards.GET("/:id/export", h.Board.Export)
			boards.GET("/:id/tasks", h.Task.List)
			boards.POST("/:id/tasks", h.Task.Create)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.PATCH("/:id", h.Task.Update)
			tasks.DELETE("/:id", h.Task.Delete)
			tasks.POST("/:id/attachments", h.Attachment.Upload)
			tasks.GET("/:id/attachments", h.Attachment.List)
		}

		attachments := protected.Group("/attachments")
		{
			attachments.DELETE("/:id", h.Attachment.Delete)
			attachments.GET("/:id/download-url", h.Attachment.DownloadURL)
		}

		invitations := protected.Group("/invitations")
		{
			invitations.POST("", h.Invitation.Create)
			invitations.GET("", h.Invitation.ListMine)
			invitations.POST("/:id", h.Invitation.Respond)
		}
	}

	return r
}
