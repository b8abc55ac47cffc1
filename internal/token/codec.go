package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/pkg/config"
)

// Status is the tri-state outcome of token verification.
type Status int

const (
	StatusValid Status = iota
	StatusExpired
	StatusInvalid
)

// Codec signs and verifies access and refresh tokens. The two classes use
// independent symmetric keys: a refresh token can never verify as an access
// token or vice versa. Verification is pure; the codec holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec decodes the base64 key material and builds a codec.
func NewCodec(cfg config.JWTConfig) (*Codec, error) {
	accessKey, err := base64.StdEncoding.DecodeString(cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("decode access secret: %w", err)
	}
	refreshKey, err := base64.StdEncoding.DecodeString(cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("decode refresh secret: %w", err)
	}
	if len(accessKey) == 0 || len(refreshKey) == 0 {
		return nil, fmt.Errorf("signing keys must not be empty")
	}
	if string(accessKey) == string(refreshKey) {
		return nil, fmt.Errorf("access and refresh keys must differ")
	}
	return &Codec{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  cfg.AccessExpiration,
		refreshTTL: cfg.RefreshExpiration,
		now:        time.Now,
	}, nil
}

// WithClock overrides the codec's clock. Test helper.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// AccessTTL reports the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken builds and signs an access-class token for the user.
func (c *Codec) IssueAccessToken(user *models.User) (string, error) {
	issuedAt := c.now()
	claims := &models.AccessClaims{
		LoginID:  user.LoginID,
		Nickname: user.Nickname,
		Provider: user.Provider,
		UserCode: user.UserCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessKey)
}

// IssueRefreshToken builds and signs a refresh-class token for the user.
func (c *Codec) IssueRefreshToken(user *models.User) (string, error) {
	issuedAt := c.now()
	claims := &models.RefreshClaims{
		LoginID:  user.LoginID,
		UserCode: user.UserCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshKey)
}

// VerifyAccess checks signature and expiry against the access key. Expected
// failure modes are reported through the status, never as an error value.
func (c *Codec) VerifyAccess(tokenString string) (Status, *models.AccessClaims) {
	claims := &models.AccessClaims{}
	status := c.verify(tokenString, claims, c.accessKey)
	if status != StatusValid {
		return status, nil
	}
	return StatusValid, claims
}

// VerifyRefresh checks signature and expiry against the refresh key.
func (c *Codec) VerifyRefresh(tokenString string) (Status, *models.RefreshClaims) {
	claims := &models.RefreshClaims{}
	status := c.verify(tokenString, claims, c.refreshKey)
	if status != StatusValid {
		return status, nil
	}
	return StatusValid, claims
}

func (c *Codec) verify(tokenString string, claims jwt.Claims, key []byte) Status {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return StatusExpired
		}
		return StatusInvalid
	}
	if !parsed.Valid {
		return StatusInvalid
	}
	return StatusValid
}

// RemainingLifetime returns how long an access token stays naturally valid,
// clamped at zero. Malformed or already-expired tokens yield zero; used only
// to size revocation entries.
func (c *Codec) RemainingLifetime(tokenString string) time.Duration {
	claims := &models.AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.accessKey, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithoutClaimsValidation())
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Subject extracts the numeric account id from verified claims.
func Subject(claims jwt.Claims) (int64, error) {
	subject, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(subject, 10, 64)
}
