package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/todoapp/shared-todo-api/internal/models"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
)

// OAuthUserInfo is the provider-neutral identity assertion extracted from a
// provider's userinfo payload.
type OAuthUserInfo struct {
	Provider   models.Provider
	ProviderID string
	Name       string
}

// OAuthService maps federated identity assertions onto local accounts and
// issues tokens through the shared session lifecycle. The local login id is
// derived deterministically from provider and provider-scoped id, so the
// same federated identity always resolves to the same account.
type OAuthService struct {
	users     userDirectory
	auth      *AuthService
	providers map[string]struct{}
	logger    *zap.Logger
}

// NewOAuthService constructs an OAuthService accepting the given providers.
func NewOAuthService(users userDirectory, auth *AuthService, providers []string, logger *zap.Logger) *OAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	accepted := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		accepted[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &OAuthService{users: users, auth: auth, providers: accepted, logger: logger}
}

// ParseUserInfo extracts the identity assertion from a provider userinfo
// payload. Naver nests the payload under a "response" envelope; Google is
// flat with the subject in "sub".
func (s *OAuthService) ParseUserInfo(providerName string, attributes map[string]interface{}) (*OAuthUserInfo, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	if _, ok := s.providers[providerName]; !ok {
		s.logger.Warn("federated login from unconfigured provider", zap.String("provider", providerName))
		return nil, appErrors.Clone(appErrors.ErrUnsupportedProvider, "")
	}

	switch providerName {
	case "google":
		id, name, err := pickAttributes(attributes, "sub", "name")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed google userinfo")
		}
		return &OAuthUserInfo{Provider: models.ProviderGoogle, ProviderID: id, Name: name}, nil
	case "naver":
		if nested, ok := attributes["response"].(map[string]interface{}); ok {
			attributes = nested
		}
		id, name, err := pickAttributes(attributes, "id", "name")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed naver userinfo")
		}
		return &OAuthUserInfo{Provider: models.ProviderNaver, ProviderID: id, Name: name}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedProvider, "")
	}
}

// Resolve finds or auto-provisions the local account for a federated
// identity. Repeat logins return the existing account untouched; there is no
// profile sync on repeat login.
func (s *OAuthService) Resolve(ctx context.Context, info *OAuthUserInfo) (*models.User, error) {
	loginID := strings.ToLower(string(info.Provider)) + "_" + info.ProviderID

	user, err := s.users.FindByLoginID(ctx, loginID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	user = &models.User{
		LoginID:    loginID,
		Nickname:   info.Name,
		UserCode:   generateUserCode(),
		Provider:   info.Provider,
		ProviderID: sql.NullString{String: info.ProviderID, Valid: true},
		Status:     models.UserStatusCreated,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision federated user")
	}

	s.logger.Info("federated account provisioned",
		zap.String("login_id", loginID),
		zap.String("provider", string(info.Provider)),
	)
	return user, nil
}

// Login resolves the federated identity and issues a token pair, skipping
// password verification.
func (s *OAuthService) Login(ctx context.Context, providerName string, attributes map[string]interface{}) (*models.User, *models.TokenPair, error) {
	info, err := s.ParseUserInfo(providerName, attributes)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.Resolve(ctx, info)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.auth.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func pickAttributes(attributes map[string]interface{}, idKey, nameKey string) (string, string, error) {
	rawID, ok := attributes[idKey]
	if !ok || rawID == nil {
		return "", "", fmt.Errorf("missing %q attribute", idKey)
	}
	id := fmt.Sprintf("%v", rawID)
	if id == "" {
		return "", "", fmt.Errorf("empty %q attribute", idKey)
	}

	name := ""
	if rawName, ok := attributes[nameKey]; ok && rawName != nil {
		name = fmt.Sprintf("%v", rawName)
	}
	return id, name, nil
}
