package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/repository"
	"github.com/todoapp/shared-todo-api/internal/token"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
)

type userDirectory interface {
	FindByLoginID(ctx context.Context, loginID string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByLoginID(ctx context.Context, loginID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type refreshTokenStore interface {
	Save(ctx context.Context, loginID, token string, ttl time.Duration) error
	Find(ctx context.Context, loginID string) (string, error)
	Replace(ctx context.Context, loginID, presented, next string, ttl time.Duration) error
	Delete(ctx context.Context, loginID string) error
}

type revocationRegistry interface {
	Revoke(ctx context.Context, accessToken string, ttl time.Duration) error
	IsRevoked(ctx context.Context, accessToken string) (bool, error)
}

// AuthService orchestrates the session lifecycle: login issues a token pair
// and persists the refresh token, reissue rotates the pair, logout revokes
// what is still alive. Each operation is a short sequence of store calls,
// not a transaction; the refresh store's atomic replace closes the reissue
// race between concurrent callers.
type AuthService struct {
	users        userDirectory
	refreshStore refreshTokenStore
	revocations  revocationRegistry
	codec        *token.Codec
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users userDirectory, refreshStore refreshTokenStore, revocations revocationRegistry, codec *token.Codec, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:        users,
		refreshStore: refreshStore,
		revocations:  revocations,
		codec:        codec,
		validator:    validate,
		logger:       logger,
	}
}

// AccessTTL exposes the configured access token lifetime.
func (s *AuthService) AccessTTL() time.Duration {
	return s.codec.AccessTTL()
}

// Signup registers a local account.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}

	exists, err := s.users.ExistsByLoginID(ctx, req.LoginID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check login id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateLoginID, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		LoginID:      req.LoginID,
		PasswordHash: sql.NullString{String: string(hash), Valid: true},
		Nickname:     req.Nickname,
		UserCode:     generateUserCode(),
		Provider:     models.ProviderLocal,
		Status:       models.UserStatusCreated,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	info := user.Info()
	return &info, nil
}

// Login authenticates by login id and password and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	// Unknown account and wrong password produce the same wire error; only
	// the log field says which step failed.
	user, err := s.users.FindByLoginID(ctx, req.LoginID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("login rejected", zap.String("login_id", req.LoginID), zap.String("reason", "account_not_found"))
			return nil, nil, appErrors.Clone(appErrors.ErrLoginFailed, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	// Federated accounts carry no password and cannot log in locally.
	if !user.PasswordHash.Valid {
		s.logger.Info("login rejected", zap.String("login_id", req.LoginID), zap.String("reason", "no_password"))
		return nil, nil, appErrors.Clone(appErrors.ErrLoginFailed, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)); err != nil {
		s.logger.Info("login rejected", zap.String("login_id", req.LoginID), zap.String("reason", "password_mismatch"))
		return nil, nil, appErrors.Clone(appErrors.ErrLoginFailed, "")
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// IssuePair mints a fresh access/refresh pair and persists the refresh token
// under the account's login id, displacing any previous one. Shared by local
// and federated login.
func (s *AuthService) IssuePair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	accessToken, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	refreshToken, err := s.codec.IssueRefreshToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign refresh token")
	}

	if err := s.refreshStore.Save(ctx, user.LoginID, refreshToken, s.codec.RefreshTTL()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to persist refresh token")
	}

	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Reissue rotates a refresh token: the presented token must verify against
// the refresh key and byte-for-byte match the stored one. Every success
// overwrites the store, so a token can be used at most once.
func (s *AuthService) Reissue(ctx context.Context, presented string) (*models.User, *models.TokenPair, error) {
	status, claims := s.codec.VerifyRefresh(presented)
	if status != token.StatusValid {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidRefreshToken, "")
	}

	stored, err := s.refreshStore.Find(ctx, claims.LoginID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, nil, appErrors.Clone(appErrors.ErrRefreshTokenNotFound, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "refresh token store unavailable")
	}
	if stored != presented {
		// A newer token already superseded this one (earlier reissue or a
		// concurrent device).
		s.logger.Warn("stale refresh token presented", zap.String("login_id", claims.LoginID))
		return nil, nil, appErrors.Clone(appErrors.ErrExpiredToken, "")
	}

	// The account may have been deleted since issuance.
	user, err := s.users.FindByLoginID(ctx, claims.LoginID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrAccountNotFound, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	accessToken, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	refreshToken, err := s.codec.IssueRefreshToken(user)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign refresh token")
	}

	// Atomic swap: succeeds only if the presented token is still the stored
	// one, so two racing reissues of the same token cannot both win.
	if err := s.refreshStore.Replace(ctx, user.LoginID, presented, refreshToken, s.codec.RefreshTTL()); err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenNotFound):
			return nil, nil, appErrors.Clone(appErrors.ErrRefreshTokenNotFound, "")
		case errors.Is(err, repository.ErrTokenMismatch):
			return nil, nil, appErrors.Clone(appErrors.ErrExpiredToken, "")
		default:
			return nil, nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "refresh token store unavailable")
		}
	}

	return user, &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Logout revokes the access token for its remaining lifetime and deletes the
// stored refresh token. Absent or already-dead tokens are treated as
// already-logged-out; calling Logout twice is not an error. The returned
// flag reports whether a revocation entry was actually written.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) (bool, error) {
	revoked := false
	if remaining := s.codec.RemainingLifetime(accessToken); remaining > 0 {
		if err := s.revocations.Revoke(ctx, accessToken, remaining); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "revocation registry unavailable")
		}
		revoked = true
	}

	status, claims := s.codec.VerifyRefresh(refreshToken)
	if status != token.StatusValid {
		// The refresh token already died on its own; nothing left to delete.
		return revoked, nil
	}
	if err := s.refreshStore.Delete(ctx, claims.LoginID); err != nil {
		return revoked, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "refresh token store unavailable")
	}
	return revoked, nil
}

// Authenticate resolves a bearer access token into a principal. Used by the
// request middleware on every protected call.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.Principal, error) {
	if accessToken == "" {
		return nil, appErrors.Clone(appErrors.ErrEmptyToken, "")
	}

	status, claims := s.codec.VerifyAccess(accessToken)
	switch status {
	case token.StatusExpired:
		return nil, appErrors.Clone(appErrors.ErrExpiredToken, "")
	case token.StatusInvalid:
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}

	revoked, err := s.revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "revocation registry unavailable")
	}
	if revoked {
		s.logger.Warn("revoked access token presented", zap.String("login_id", claims.LoginID))
		return nil, appErrors.Clone(appErrors.ErrTokenRevoked, "")
	}

	userID, err := token.Subject(claims)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}

	return &models.Principal{
		UserID:   userID,
		LoginID:  claims.LoginID,
		Nickname: claims.Nickname,
		UserCode: claims.UserCode,
		Provider: claims.Provider,
		Role:     models.DefaultRole,
	}, nil
}

// CheckLoginID reports whether a login id is available for signup.
func (s *AuthService) CheckLoginID(ctx context.Context, req models.CheckLoginIDRequest) (*models.AvailableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	exists, err := s.users.ExistsByLoginID(ctx, req.LoginID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check login id")
	}
	if exists {
		return &models.AvailableResponse{Available: false, Message: "login id already in use"}, nil
	}
	return &models.AvailableResponse{Available: true, Message: "login id is available"}, nil
}

const userCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateUserCode produces the opaque 10-character invite code assigned to
// every account.
func generateUserCode() string {
	code := make([]byte, 10)
	max := big.NewInt(int64(len(userCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process is in far deeper
			// trouble; fall back to the first symbol.
			code[i] = userCodeAlphabet[0]
			continue
		}
		code[i] = userCodeAlphabet[n.Int64()]
	}
	return string(code)
}
