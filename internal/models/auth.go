package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignupRequest registers a new local account.
type SignupRequest struct {
	LoginID  string `json:"login_id" validate:"required,min=4,max=30"`
	Password string `json:"password" validate:"required,min=8"`
	Nickname string `json:"nickname" validate:"required,min=2,max=20"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	LoginID  string `json:"login_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CheckLoginIDRequest asks whether a login id is still available.
type CheckLoginIDRequest struct {
	LoginID string `json:"login_id" validate:"required"`
}

// AvailableResponse reports login-id availability.
type AvailableResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// TokenPair bundles a freshly issued access/refresh pair. The refresh token
// travels to the client as an http-only cookie, the access token in the
// response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
}

// LoginResponse returns the issued access token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// AccessClaims is the fixed claim set of access tokens. Modeling claims as a
// struct instead of an open map makes missing claims a compile error.
type AccessClaims struct {
	LoginID  string   `json:"loginId"`
	Nickname string   `json:"nickname"`
	Provider Provider `json:"provider"`
	UserCode string   `json:"userCode"`
	jwt.RegisteredClaims
}

// RefreshClaims is the fixed claim set of refresh tokens.
type RefreshClaims struct {
	LoginID  string `json:"loginId"`
	UserCode string `json:"userCode"`
	jwt.RegisteredClaims
}

// Principal is the resolved identity attached to an authenticated request.
// Every authenticated caller gets the same static role; there is no role
// modeling beyond identifying the account.
type Principal struct {
	UserID   int64
	LoginID  string
	Nickname string
	UserCode string
	Provider Provider
	Role     string
}

// DefaultRole is the static authority granted to every principal.
const DefaultRole = "ROLE_USER"
