package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors. Codes are stable so client UIs can react
// deterministically (e.g. redirect to login on any reissue failure).
var (
	// Auth & account. Login failures always surface as LOGIN_FAILED,
	// whatever the cause, to avoid account enumeration; ACCOUNT_NOT_FOUND is
	// reserved for flows where the caller already holds a token for the
	// account (reissue, profile reads).
	ErrAccountNotFound  = New("ACCOUNT_NOT_FOUND", http.StatusUnauthorized, "account not found")
	ErrLoginFailed      = New("LOGIN_FAILED", http.StatusUnauthorized, "check your login id or password")
	ErrDuplicateLoginID = New("DUPLICATE_LOGIN_ID", http.StatusConflict, "login id already in use")
	ErrDuplicateNick    = New("DUPLICATE_NICKNAME", http.StatusConflict, "nickname already in use")

	// Tokens.
	ErrInvalidToken         = New("INVALID_TOKEN", http.StatusUnauthorized, "invalid token")
	ErrExpiredToken         = New("EXPIRED_TOKEN", http.StatusUnauthorized, "expired token")
	ErrEmptyToken           = New("EMPTY_TOKEN", http.StatusUnauthorized, "no token provided")
	ErrInvalidRefreshToken  = New("INVALID_REFRESH_TOKEN", http.StatusUnauthorized, "invalid or expired refresh token")
	ErrRefreshTokenNotFound = New("REFRESH_TOKEN_NOT_FOUND", http.StatusUnauthorized, "no stored refresh token for account")
	ErrTokenRevoked         = New("TOKEN_REVOKED", http.StatusUnauthorized, "token has been revoked")

	// Federated login.
	ErrUnsupportedProvider = New("UNSUPPORTED_PROVIDER", http.StatusBadRequest, "unsupported oauth provider")

	// Boards & tasks.
	ErrNotBoardOwner  = New("NOT_BOARD_OWNER", http.StatusForbidden, "not the board owner")
	ErrNotBoardMember = New("NOT_BOARD_MEMBER", http.StatusForbidden, "not a member of this board")

	// Invitations.
	ErrAlreadyInvited    = New("ALREADY_INVITED", http.StatusConflict, "user already invited")
	ErrAlreadyMember     = New("ALREADY_BOARD_MEMBER", http.StatusConflict, "user already joined this board")
	ErrCannotInviteSelf  = New("CANNOT_INVITE_SELF", http.StatusBadRequest, "cannot invite yourself")
	ErrInvitationExpired = New("INVITATION_EXPIRED", http.StatusBadRequest, "invitation has expired")

	// Common.
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Infrastructure failures are retryable and must never be surfaced as
	// bad credentials.
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "dependency unavailable, retry later")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
