package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoapp/shared-todo-api/internal/models"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
)

type memInvitationStore struct {
	mu          sync.Mutex
	invitations map[int64]*models.Invitation
	nextID      int64
}

func newMemInvitationStore() *memInvitationStore {
	return &memInvitationStore{invitations: make(map[int64]*models.Invitation), nextID: 1}
}

func (m *memInvitationStore) FindByID(ctx context.Context, id int64) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *inv
	return &copied, nil
}

func (m *memInvitationStore) ListForInvitee(ctx context.Context, inviteeID int64) ([]models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Invitation
	for _, inv := range m.invitations {
		if inv.InviteeID == inviteeID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *memInvitationStore) ExistsPending(ctx context.Context, boardID, inviteeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.BoardID == boardID && inv.InviteeID == inviteeID && inv.Status == models.InvitationPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInvitationStore) Create(ctx context.Context, invitation *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invitation.ID = m.nextID
	m.nextID++
	copied := *invitation
	m.invitations[invitation.ID] = &copied
	return nil
}

func (m *memInvitationStore) UpdateStatus(ctx context.Context, id int64, status models.InvitationStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invitations[id]; ok {
		inv.Status = status
		inv.UpdatedAt = updatedAt
	}
	return nil
}

type codeDirectory struct {
	byCode map[string]*models.User
}

func (d *codeDirectory) FindByUserCode(ctx context.Context, code string) (*models.User, error) {
	user, ok := d.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type invitationFixture struct {
	svc    *InvitationService
	boards *memBoardStore
	store  *memInvitationStore
	clock  *fakeClock
}

func newInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()
	boards := newMemBoardStore()
	store := newMemInvitationStore()
	users := &codeDirectory{byCode: map[string]*models.User{
		"CODE_OWNER": {ID: 1, UserCode: "CODE_OWNER"},
		"CODE_GUEST": {ID: 2, UserCode: "CODE_GUEST"},
	}}
	svc := NewInvitationService(store, boards, users, 72*time.Hour, nil, nil)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.WithClock(clock.Now)
	return &invitationFixture{svc: svc, boards: boards, store: store, clock: clock}
}

func (f *invitationFixture) seedBoard(t *testing.T, ownerID int64) *models.Board {
	t.Helper()
	board := &models.Board{Title: "shared", OwnerID: ownerID}
	require.NoError(t, f.boards.Create(context.Background(), board))
	return board
}

func TestInviteAndAccept(t *testing.T) {
	f := newInvitationFixture(t)
	board := f.seedBoard(t, 1)

	inv, err := f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_GUEST"})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Equal(t, f.clock.Now().Add(72*time.Hour), inv.ExpiresAt)

	accepted, err := f.svc.Respond(context.Background(), 2, inv.ID, models.RespondInvitationRequest{Action: "ACCEPT"})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, accepted.Status)

	member, err := f.boards.IsMember(context.Background(), board.ID, 2)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestInviteGuards(t *testing.T) {
	f := newInvitationFixture(t)
	board := f.seedBoard(t, 1)

	_, err := f.svc.Invite(context.Background(), 2, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_OWNER"})
	assert.Equal(t, appErrors.ErrNotBoardOwner.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_OWNER"})
	assert.Equal(t, appErrors.ErrCannotInviteSelf.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_GHOST"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_GUEST"})
	require.NoError(t, err)
	_, err = f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_GUEST"})
	assert.Equal(t, appErrors.ErrAlreadyInvited.Code, appErrors.FromError(err).Code)
}

func TestInviteExistingMember(t *testing.T) {
	f := newInvitationFixture(t)
	board := f.seedBoard(t, 1)
	require.NoError(t, f.boards.AddMember(context.Background(), board.ID, 2))

	_, err := f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_GUEST"})
	assert.Equal(t, appErrors.ErrAlreadyMember.Code, appErrors.FromError(err).Code)
}

func TestRespondGuards(t *testing.T) {
	f := newInvitationFixture(t)
	board := f.seedBoard(t, 1)

	inv, err := f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_GUEST"})
	require.NoError(t, err)

	// Only the invitee may answer.
	_, err = f.svc.Respond(context.Background(), 3, inv.ID, models.RespondInvitationRequest{Action: "ACCEPT"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Declining does not enroll and cannot be answered twice.
	declined, err := f.svc.Respond(context.Background(), 2, inv.ID, models.RespondInvitationRequest{Action: "DECLINE"})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, declined.Status)

	member, err := f.boards.IsMember(context.Background(), board.ID, 2)
	require.NoError(t, err)
	assert.False(t, member)

	_, err = f.svc.Respond(context.Background(), 2, inv.ID, models.RespondInvitationRequest{Action: "ACCEPT"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRespondAfterExpiry(t *testing.T) {
	f := newInvitationFixture(t)
	board := f.seedBoard(t, 1)

	inv, err := f.svc.Invite(context.Background(), 1, models.CreateInvitationRequest{BoardID: board.ID, UserCode: "CODE_GUEST"})
	require.NoError(t, err)

	f.clock.Advance(73 * time.Hour)
	_, err = f.svc.Respond(context.Background(), 2, inv.ID, models.RespondInvitationRequest{Action: "ACCEPT"})
	assert.Equal(t, appErrors.ErrInvitationExpired.Code, appErrors.FromError(err).Code)
}
