package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/shared-todo-api/internal/models"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
)

type memAccountStore struct {
	users     map[int64]*models.User
	nicknames map[string]bool
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{users: make(map[int64]*models.User), nicknames: make(map[string]bool)}
}

func (m *memAccountStore) add(user *models.User) {
	m.users[user.ID] = user
	m.nicknames[user.Nickname] = true
}

func (m *memAccountStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *memAccountStore) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	return m.nicknames[nickname], nil
}

func (m *memAccountStore) UpdateNickname(ctx context.Context, id int64, nickname string, updatedAt time.Time) error {
	if user, ok := m.users[id]; ok {
		delete(m.nicknames, user.Nickname)
		user.Nickname = nickname
		m.nicknames[nickname] = true
	}
	return nil
}

func (m *memAccountStore) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	if user, ok := m.users[id]; ok {
		user.PasswordHash = sql.NullString{String: passwordHash, Valid: true}
	}
	return nil
}

func seedAccount(t *testing.T, store *memAccountStore, id int64, nickname, password string) {
	t.Helper()
	user := &models.User{ID: id, LoginID: nickname, Nickname: nickname, Provider: models.ProviderLocal}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		user.PasswordHash = sql.NullString{String: string(hash), Valid: true}
	}
	store.add(user)
}

func TestUpdateNicknameRejectsDuplicate(t *testing.T) {
	store := newMemAccountStore()
	seedAccount(t, store, 1, "alice", "secret-pw")
	seedAccount(t, store, 2, "bob", "secret-pw")
	svc := NewUserService(store, nil, nil)

	_, err := svc.UpdateNickname(context.Background(), 1, models.UpdateNicknameRequest{Nickname: "bob"})
	assert.Equal(t, appErrors.ErrDuplicateNick.Code, appErrors.FromError(err).Code)

	// Re-submitting the current nickname is a no-op, not a conflict.
	info, err := svc.UpdateNickname(context.Background(), 1, models.UpdateNicknameRequest{Nickname: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Nickname)

	info, err = svc.UpdateNickname(context.Background(), 1, models.UpdateNicknameRequest{Nickname: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "carol", info.Nickname)
}

func TestVerifyPassword(t *testing.T) {
	store := newMemAccountStore()
	seedAccount(t, store, 1, "alice", "secret-pw")
	seedAccount(t, store, 2, "google_123", "")
	svc := NewUserService(store, nil, nil)

	require.NoError(t, svc.VerifyPassword(context.Background(), 1, models.VerifyPasswordRequest{Password: "secret-pw"}))

	err := svc.VerifyPassword(context.Background(), 1, models.VerifyPasswordRequest{Password: "nope"})
	assert.Equal(t, appErrors.ErrLoginFailed.Code, appErrors.FromError(err).Code)

	err = svc.VerifyPassword(context.Background(), 2, models.VerifyPasswordRequest{Password: "anything"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordGuards(t *testing.T) {
	store := newMemAccountStore()
	seedAccount(t, store, 1, "alice", "original-pw")
	seedAccount(t, store, 2, "google_123", "")
	svc := NewUserService(store, nil, nil)

	err := svc.ChangePassword(context.Background(), 1, models.ChangePasswordRequest{
		CurrentPassword: "wrong-pw",
		NewPassword:     "replacement-pw",
	})
	assert.Equal(t, appErrors.ErrLoginFailed.Code, appErrors.FromError(err).Code)

	// Federated accounts carry no password to rotate.
	err = svc.ChangePassword(context.Background(), 2, models.ChangePasswordRequest{
		CurrentPassword: "anything",
		NewPassword:     "replacement-pw",
	})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), 1, models.ChangePasswordRequest{
		CurrentPassword: "original-pw",
		NewPassword:     "replacement-pw",
	})
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(store.users[1].PasswordHash.String), []byte("replacement-pw")))
}
