package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/todoapp/shared-todo-api/internal/models"
)

const userColumns = `id, login_id, password_hash, nickname, user_code, provider, provider_id, status, created_at, updated_at`

// UserRepository is the user directory: account lookup and creation keyed by
// login identifier.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByLoginID returns a user by login identifier.
func (r *UserRepository) FindByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login_id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, loginID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by login id: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByUserCode returns a user by their opaque invite code.
func (r *UserRepository) FindByUserCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_code = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by user code: %w", err)
	}
	return &user, nil
}

// ExistsByLoginID reports whether a login identifier is taken.
func (r *UserRepository) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE login_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, loginID); err != nil {
		return false, fmt.Errorf("check login id: %w", err)
	}
	return exists, nil
}

// ExistsByNickname reports whether a nickname is taken.
func (r *UserRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, nickname); err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return exists, nil
}

// Create inserts a new account and fills in the generated id.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (login_id, password_hash, nickname, user_code, provider, provider_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := r.db.QueryRowContext(ctx, query,
		user.LoginID, user.PasswordHash, user.Nickname, user.UserCode,
		user.Provider, user.ProviderID, user.Status, now,
	).Scan(&user.ID); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateNickname changes the display name.
func (r *UserRepository) UpdateNickname(ctx context.Context, id int64, nickname string, updatedAt time.Time) error {
	const query = `UPDATE users SET nickname = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, nickname, updatedAt); err != nil {
		return fmt.Errorf("update nickname: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
