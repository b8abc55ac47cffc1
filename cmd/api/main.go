package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/todoapp/shared-todo-api/api/swagger"
	"github.com/todoapp/shared-todo-api/internal/handler"
	"github.com/todoapp/shared-todo-api/internal/repository"
	"github.com/todoapp/shared-todo-api/internal/service"
	"github.com/todoapp/shared-todo-api/internal/token"
	"github.com/todoapp/shared-todo-api/pkg/cache"
	"github.com/todoapp/shared-todo-api/pkg/config"
	"github.com/todoapp/shared-todo-api/pkg/database"
	"github.com/todoapp/shared-todo-api/pkg/jobs"
	"github.com/todoapp/shared-todo-api/pkg/logger"
	"github.com/todoapp/shared-todo-api/pkg/storage"
)

// @title Shared Todo API
// @version 1.0.0
// @description Multi-user shared todo backend with JWT session lifecycle
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	codec, err := token.NewCodec(cfg.JWT)
	if err != nil {
		logr.Sugar().Fatalw("invalid jwt configuration", "error", err)
	}

	files, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	cleanupQueue := jobs.New("attachment-cleanup", func(ctx context.Context, job jobs.Job) error {
		if err := files.Delete(job.Payload); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}, jobs.Options{Workers: 1, MaxRetries: 5, RetryDelay: 10 * time.Second}, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cleanupQueue.Start(rootCtx)
	defer cleanupQueue.Stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(redisClient)
	revocationRepo := repository.NewRevocationRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, refreshRepo, revocationRepo, codec, validate, logr)
	oauthSvc := service.NewOAuthService(userRepo, authSvc, cfg.OAuth.Providers, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	boardSvc := service.NewBoardService(boardRepo, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, boardRepo, validate, logr)
	invitationSvc := service.NewInvitationService(invitationRepo, boardRepo, userRepo, cfg.Invitations.TTL, validate, logr)
	attachmentSvc := service.NewAttachmentService(attachmentRepo, taskRepo, boardRepo, files, signer, cleanupQueue, cfg.Attachments, logr)
	exportSvc := service.NewExportService(taskRepo, boardRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc, cfg)
	handlers := handler.Handlers{
		Auth:        authHandler,
		OAuth:       handler.NewOAuthHandler(oauthSvc, authHandler, metricsSvc),
		User:        handler.NewUserHandler(userSvc),
		Board:       handler.NewBoardHandler(boardSvc, exportSvc),
		Task:        handler.NewTaskHandler(taskSvc),
		Invitation:  handler.NewInvitationHandler(invitationSvc),
		Attachment:  handler.NewAttachmentHandler(attachmentSvc, logr),
		Metrics:     handler.NewMetricsHandler(metricsSvc, db, redisClient),
		AuthService: authSvc,
	}

	router := handler.NewRouter(cfg, logr, metricsSvc, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
