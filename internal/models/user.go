package models

import (
	"database/sql"
	"time"
)

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderNaver  Provider = "NAVER"
)

// UserStatus tracks the account lifecycle.
type UserStatus string

const (
	UserStatusCreated UserStatus = "CREATED"
	UserStatusDeleted UserStatus = "DELETED"
)

// User represents an account row in the users table. PasswordHash is null
// for federated accounts, which never authenticate with a password.
type User struct {
	ID           int64          `db:"id" json:"id"`
	LoginID      string         `db:"login_id" json:"login_id"`
	PasswordHash sql.NullString `db:"password_hash" json:"-"`
	Nickname     string         `db:"nickname" json:"nickname"`
	UserCode     string         `db:"user_code" json:"user_code"`
	Provider     Provider       `db:"provider" json:"provider"`
	ProviderID   sql.NullString `db:"provider_id" json:"-"`
	Status       UserStatus     `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public projection of a user returned by the API.
type UserInfo struct {
	ID       int64    `json:"id"`
	LoginID  string   `json:"login_id"`
	Nickname string   `json:"nickname"`
	UserCode string   `json:"user_code"`
	Provider Provider `json:"provider"`
}

// UpdateNicknameRequest renames the calling account.
type UpdateNicknameRequest struct {
	Nickname string `json:"nickname" validate:"required,min=2,max=20"`
}

// VerifyPasswordRequest re-confirms the calling user's password before a
// sensitive action.
type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest rotates a local account's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// Info converts a User into its public projection.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:       u.ID,
		LoginID:  u.LoginID,
		Nickname: u.Nickname,
		UserCode: u.UserCode,
		Provider: u.Provider,
	}
}
