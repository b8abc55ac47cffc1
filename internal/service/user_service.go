package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/shared-todo-api/internal/models"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
)

type userAccountStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	UpdateNickname(ctx context.Context, id int64, nickname string, updatedAt time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
}

// UserService handles account profile workflows for the calling user.
type UserService struct {
	users     userAccountStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(users userAccountStore, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, validator: validate, logger: logger}
}

// Me returns the calling user's public profile.
func (s *UserService) Me(ctx context.Context, userID int64) (*models.UserInfo, error) {
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := user.Info()
	return &info, nil
}

// UpdateNickname renames the calling account, enforcing nickname uniqueness.
func (s *UserService) UpdateNickname(ctx context.Context, userID int64, req models.UpdateNicknameRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid nickname payload")
	}

	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Nickname != req.Nickname {
		taken, err := s.users.ExistsByNickname(ctx, req.Nickname)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check nickname")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrDuplicateNick, "")
		}
	}

	if err := s.users.UpdateNickname(ctx, userID, req.Nickname, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update nickname")
	}
	user.Nickname = req.Nickname
	info := user.Info()
	return &info, nil
}

// VerifyPassword re-checks the calling user's password. Used to gate
// sensitive actions behind a fresh confirmation.
func (s *UserService) VerifyPassword(ctx context.Context, userID int64, req models.VerifyPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	user, err := s.fetch(ctx, userID)
	if err != nil {
		return err
	}
	if !user.PasswordHash.Valid {
		return appErrors.Clone(appErrors.ErrForbidden, "federated accounts have no password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)); err != nil {
		return appErrors.Clone(appErrors.ErrLoginFailed, "")
	}
	return nil
}

// ChangePassword rotates a local account's password after verifying the
// current one. Federated accounts hold no password and cannot use this.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	user, err := s.fetch(ctx, userID)
	if err != nil {
		return err
	}
	if !user.PasswordHash.Valid {
		return appErrors.Clone(appErrors.ErrForbidden, "federated accounts have no password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrLoginFailed, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.logger.Info("password changed", zap.Int64("user_id", userID))
	return nil
}

func (s *UserService) fetch(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAccountNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}
